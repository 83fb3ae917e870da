package rendercache

import (
	"container/list"
	"context"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/local/traceview/internal/limiter"
	"github.com/local/traceview/internal/metrics"
	"github.com/local/traceview/internal/render"
)

const (
	// DefaultMaxSizeMB is the default memory budget for cached rasters.
	DefaultMaxSizeMB = 256
	bytesPerMB       = 1024 * 1024
)

// PageRenderer produces the rasters the cache stores on a miss.
// *render.Renderer satisfies it; tests inject counting fakes.
type PageRenderer interface {
	RenderPage(src render.Source, pageIndex int, zoom float64) (*image.RGBA, error)
}

// Options configure a Cache.
type Options struct {
	// Renderer handles misses. Required.
	Renderer PageRenderer
	// MaxSizeMB is the memory budget for cached rasters. Zero selects
	// DefaultMaxSizeMB; a negative value disables eviction entirely.
	MaxSizeMB int
	// MaxConcurrentRenders caps how many misses may rasterize at
	// once. Zero leaves rendering unbounded.
	MaxConcurrentRenders int
}

// Cache memoizes rendered pages keyed by document identity, page and
// zoom. Identical requests are collapsed into one render and repeat
// requests are served from memory, so stepping back and forth between
// records costs one rasterization per page. Failed renders are never
// stored: a failure is retried on every request.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	lru     *list.List // front = most recent
	size    int64
	maxSize int64 // <= 0 means unbounded

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	group    singleflight.Group
	gate     *limiter.Gate // nil = unbounded
	renderer PageRenderer
}

type entry struct {
	key     Key
	img     *image.RGBA
	size    int64
	element *list.Element
}

// Stats is a point-in-time snapshot of cache state for monitoring.
type Stats struct {
	Size      int64   `json:"size_bytes"`
	MaxSize   int64   `json:"max_size_bytes"`
	Entries   int     `json:"entries"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	Evictions uint64  `json:"evictions"`
}

// New creates a Cache with the given options.
func New(opts Options) *Cache {
	maxSize := int64(opts.MaxSizeMB) * bytesPerMB
	if opts.MaxSizeMB == 0 {
		maxSize = DefaultMaxSizeMB * bytesPerMB
	}
	var gate *limiter.Gate
	if opts.MaxConcurrentRenders > 0 {
		gate = limiter.NewGate(opts.MaxConcurrentRenders)
	}
	return &Cache{
		entries:  make(map[Key]*entry),
		lru:      list.New(),
		maxSize:  maxSize,
		gate:     gate,
		renderer: opts.Renderer,
	}
}

// GetOrRender returns the raster for one page of src at the given
// zoom, rendering and storing it on first request. Concurrent
// requests for the same key share a single render. The context only
// bounds the wait: an abandoned render still completes and fills the
// cache.
func (c *Cache) GetOrRender(ctx context.Context, src render.Source, pageIndex int, zoom float64) (*image.RGBA, error) {
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return nil, &render.InvalidZoomError{Zoom: zoom}
	}

	key, err := newKey(src, pageIndex, zoom)
	if err != nil {
		return nil, err
	}

	if img, ok := c.lookup(key); ok {
		return img, nil
	}

	ch := c.group.DoChan(key.id(), func() (interface{}, error) {
		// A finished flight may have stored the entry while this one
		// was queued.
		if img, ok := c.lookup(key); ok {
			return img, nil
		}

		release := c.gate.Acquire()
		defer release()

		start := time.Now()
		img, err := c.renderer.RenderPage(src, pageIndex, zoom)
		if err != nil {
			metrics.ObserveRender(sourceLabel(src), "error", time.Since(start))
			return nil, err
		}
		metrics.ObserveRender(sourceLabel(src), "ok", time.Since(start))

		c.store(key, img)
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*image.RGBA), nil
	}
}

func sourceLabel(src render.Source) string {
	if src.Path != "" {
		return "file"
	}
	return "memory"
}

// lookup fetches an entry and refreshes its LRU position.
func (c *Cache) lookup(key Key) (*image.RGBA, bool) {
	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		metrics.CacheMiss()
		return nil, false
	}

	c.mu.Lock()
	ent, ok := c.entries[key]
	if !ok {
		// Evicted between the two locks.
		c.mu.Unlock()
		c.misses.Add(1)
		metrics.CacheMiss()
		return nil, false
	}
	c.lru.MoveToFront(ent.element)
	img := ent.img
	c.mu.Unlock()

	c.hits.Add(1)
	metrics.CacheHit()
	return img, true
}

// store inserts a rendered raster, evicting least recently used
// entries if the budget is exceeded.
func (c *Cache) store(key Key, img *image.RGBA) {
	entrySize := int64(len(img.Pix))

	if c.maxSize > 0 && entrySize > c.maxSize {
		log.Debug().
			Str("key", key.id()).
			Int64("bytes", entrySize).
			Int64("budget", c.maxSize).
			Msg("raster exceeds cache budget, not stored")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.size -= existing.size
		c.lru.Remove(existing.element)
	}

	if c.maxSize > 0 {
		c.evictUntilSize(c.maxSize - entrySize)
	}

	ent := &entry{key: key, img: img, size: entrySize}
	ent.element = c.lru.PushFront(ent)
	c.entries[key] = ent
	c.size += entrySize
	metrics.SetCacheBytes(c.size)
}

// evictUntilSize drops LRU entries until size is at or below target.
// Must be called with c.mu held.
func (c *Cache) evictUntilSize(target int64) {
	for c.size > target && c.lru.Len() > 0 {
		elem := c.lru.Back()
		if elem == nil {
			break
		}
		ent := elem.Value.(*entry)
		c.lru.Remove(elem)
		c.size -= ent.size
		delete(c.entries, ent.key)
		c.evictions.Add(1)
		metrics.CacheEviction()
	}
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	size := c.size
	maxSize := c.maxSize
	count := len(c.entries)
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		MaxSize:   maxSize,
		Entries:   count,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Evictions: c.evictions.Load(),
	}
}
