package pool

import "sync"

// Guard is a scoped acquisition of a pooled connection. Whoever holds the
// guard owns the connection exclusively; releasing hands it back to the
// pool, or drops it if it was poisoned in the meantime.
//
// Release is idempotent and never blocks or fails, so the canonical use is
//
//	guard, err := p.Acquire(ctx)
//	if err != nil { ... }
//	defer guard.Release()
//
// which returns the connection on every exit path, panics included.
type Guard struct {
	pool *Pool
	conn *Conn
	once sync.Once
}

// Conn returns the held connection.
func (g *Guard) Conn() *Conn {
	return g.conn
}

// Release returns the connection to the pool. Only the first call has an
// effect.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.pool.release(g.conn)
	})
}
