// Package gate admits at most one session at a time.
package gate

import "sync/atomic"

// Gate is a single exclusivity slot. The zero value is open.
type Gate struct {
	held atomic.Bool
}

// TryAcquire claims the slot and reports whether this caller won it.
func (g *Gate) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release frees the slot for the next caller.
func (g *Gate) Release() {
	g.held.Store(false)
}

func (g *Gate) Held() bool {
	return g.held.Load()
}
