package session

import (
	"context"
	"sync"
)

// State is what the viewer remembers per browser session: the current
// record position and which uploads override the bundled defaults.
// Empty digests mean the default document or records file is in use.
type State struct {
	Index         int
	DocDigest     string
	RecordsDigest string
}

// Store persists per-session viewer state.
type Store interface {
	Get(ctx context.Context, sid string) (State, bool, error)
	Set(ctx context.Context, sid string, st State) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryStore keeps session state in process memory. It is the
// default backend; state is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]State
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]State)}
}

func (s *MemoryStore) Get(_ context.Context, sid string) (State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sid]
	return st, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, sid string, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = st
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
