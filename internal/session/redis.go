package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore persists session state in Redis so it survives restarts
// and can be shared by several instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis (redis://host:port/db) and verifies
// the connection. Sessions idle longer than ttl expire; ttl <= 0
// disables expiry.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: c, ttl: ttl}, nil
}

func (s *RedisStore) key(sid string) string {
	return fmt.Sprintf("session:%s:state", sid)
}

func (s *RedisStore) Set(ctx context.Context, sid string, st State) error {
	m := map[string]interface{}{
		"index":          st.Index,
		"doc_digest":     st.DocDigest,
		"records_digest": st.RecordsDigest,
	}
	if err := s.client.HSet(ctx, s.key(sid), m).Err(); err != nil {
		return err
	}
	if s.ttl > 0 {
		return s.client.Expire(ctx, s.key(sid), s.ttl).Err()
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sid string) (State, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(sid)).Result()
	if err != nil {
		return State{}, false, err
	}
	if len(res) == 0 {
		return State{}, false, nil
	}

	st := State{
		DocDigest:     res["doc_digest"],
		RecordsDigest: res["records_digest"],
	}
	if v := res["index"]; v != "" {
		// ignore parse error; default 0
		st.Index, _ = strconv.Atoi(v)
	}

	if s.ttl > 0 {
		// sliding expiration: reading a session keeps it alive
		_ = s.client.Expire(ctx, s.key(sid), s.ttl).Err()
	}
	return st, true, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
