package limiter

import "sync/atomic"

// Gate bounds how many callers may hold a costly resource at once.
// The render pipeline uses one to cap concurrent rasterizations: the
// native decoder allocates full page buffers, so a burst of distinct
// pages can exhaust memory long before the CPU saturates.
//
// A nil *Gate admits everyone, so callers can hold one optionally
// without guarding every use.
type Gate struct {
	slots    chan struct{}
	inflight atomic.Int64
}

// NewGate returns a gate admitting at most capacity concurrent
// holders. Capacity below one falls back to one.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free and returns the release func
// for it. Callers must invoke the release exactly once, typically via
// defer.
func (g *Gate) Acquire() func() {
	if g == nil {
		return func() {}
	}
	g.slots <- struct{}{}
	g.inflight.Add(1)
	return g.releaseFunc()
}

// TryAcquire is the non-blocking variant. It returns the release func
// and true when a slot was free, and a no-op func and false when the
// gate is full.
func (g *Gate) TryAcquire() (func(), bool) {
	if g == nil {
		return func() {}, true
	}
	select {
	case g.slots <- struct{}{}:
		g.inflight.Add(1)
		return g.releaseFunc(), true
	default:
		return func() {}, false
	}
}

func (g *Gate) releaseFunc() func() {
	var done atomic.Bool
	return func() {
		if done.Swap(true) {
			return
		}
		g.inflight.Add(-1)
		<-g.slots
	}
}

// InFlight reports how many slots are currently held.
func (g *Gate) InFlight() int {
	if g == nil {
		return 0
	}
	return int(g.inflight.Load())
}
