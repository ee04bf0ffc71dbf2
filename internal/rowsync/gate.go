package rowsync

import "sync/atomic"

// Gate admits one save at a time across every row of a session.
type Gate struct {
	held atomic.Bool
}

func (g *Gate) TryAcquire() bool { return g.held.CompareAndSwap(false, true) }

func (g *Gate) Release() { g.held.Store(false) }

func (g *Gate) Held() bool { return g.held.Load() }
