// Package pool implements the client-side connection pool: a fixed-size
// FIFO queue of long-lived framed connections with health probing on
// acquire, dead-connection detection, and a background task that rebuilds
// the whole pool after a fault.
//
// The recovery policy is deliberately blunt. The first dead connection
// sets a pool-wide marker; the reconnect task then drops every remaining
// connection and redials the full pool. Siblings of a dead connection
// usually share its fate (same peer restart, same broken path), and with
// pools of tens of connections the rebuild is cheap. Clearing the marker
// even after a partial rebuild keeps the pool from locking out while the
// upstream flaps; the next bad acquire simply sets it again.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/wirecache/internal/logger"
	"github.com/marmos91/wirecache/pkg/metrics"
)

// Tunable defaults.
const (
	// DefaultAcquireTimeout bounds how long Acquire waits for a usable
	// connection.
	DefaultAcquireTimeout = 1 * time.Second

	// DefaultCheckInterval is how often the reconnect task looks for the
	// dead-marker.
	DefaultCheckInterval = 1 * time.Second
)

// Pool manages connections to one upstream cache server.
//
// Invariants: available never exceeds the pool size, and it always equals
// the number of connections resident in the queue. The counters are
// atomics for cheap reads; the queue itself is the authority and is only
// touched under the mutex.
type Pool struct {
	url string

	available atomic.Int64
	poolSize  atomic.Int64
	dead      atomic.Bool

	mu    sync.Mutex
	conns []*Conn // FIFO: acquire pops the front, release pushes the back

	acquireTimeout time.Duration
	checkInterval  time.Duration

	metrics *metrics.PoolMetrics

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithAcquireTimeout overrides DefaultAcquireTimeout.
func WithAcquireTimeout(d time.Duration) Option {
	return func(p *Pool) { p.acquireTimeout = d }
}

// WithCheckInterval overrides DefaultCheckInterval.
func WithCheckInterval(d time.Duration) Option {
	return func(p *Pool) { p.checkInterval = d }
}

// WithMetrics attaches pool collectors.
func WithMetrics(m *metrics.PoolMetrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// New creates a pool of size connections to url, fully populated, and
// starts the background reconnect task. If any dial fails the already
// opened connections are closed and the error is returned.
func New(ctx context.Context, url string, size int, opts ...Option) (*Pool, error) {
	p := &Pool{
		url:            url,
		acquireTimeout: DefaultAcquireTimeout,
		checkInterval:  DefaultCheckInterval,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	conns := make([]*Conn, 0, size)
	for i := 0; i < size; i++ {
		conn, err := dial(ctx, url)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return nil, err
		}
		conns = append(conns, conn)
	}

	p.mu.Lock()
	p.conns = conns
	p.mu.Unlock()
	p.available.Store(int64(size))
	p.poolSize.Store(int64(size))

	p.metrics.SetAvailable(size)
	p.metrics.SetPoolSize(size)

	go p.reconnectLoop()

	logger.Info("Connection pool ready", "upstream", url, "size", size)
	return p, nil
}

// Available returns the number of connections currently resident in the
// queue.
func (p *Pool) Available() int {
	return int(p.available.Load())
}

// Size returns the target pool size.
func (p *Pool) Size() int {
	return int(p.poolSize.Load())
}

// Dead reports whether the dead-marker is currently set.
func (p *Pool) Dead() bool {
	return p.dead.Load()
}

// Acquire races TryAcquire against the acquire timeout and returns
// whichever resolves first. On timeout the guard produced by the late
// TryAcquire, if any, is released back to the pool.
func (p *Pool) Acquire(ctx context.Context) (*Guard, error) {
	ctx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	type result struct {
		guard *Guard
		err   error
	}
	ch := make(chan result, 1)

	go func() {
		guard, err := p.TryAcquire(ctx)
		ch <- result{guard, err}
	}()

	select {
	case r := <-ch:
		return r.guard, r.err
	case <-ctx.Done():
		// Discard whatever the straggler produces.
		go func() {
			if r := <-ch; r.guard != nil {
				r.guard.Release()
			}
		}()
		p.metrics.RecordAcquireError("timeout")
		return nil, ErrAcquireTimeout
	}
}

// TryAcquire pops the front connection, health-probes it, and hands it
// out wrapped in a guard. A failed probe sets the dead-marker and drops
// the connection; recovery then belongs to the reconnect task, not the
// caller.
func (p *Pool) TryAcquire(ctx context.Context) (*Guard, error) {
	if p.dead.Load() {
		logger.Debug("Acquire refused, pool is rebuilding")
		p.metrics.RecordAcquireError("dead")
		return nil, ErrNoConnectionAvailable
	}

	// Cheap pre-check; the pop below is the authoritative one.
	if p.available.Load() == 0 {
		p.metrics.RecordAcquireError("empty")
		return nil, ErrNoConnectionAvailable
	}

	p.mu.Lock()
	var conn *Conn
	if len(p.conns) > 0 {
		conn = p.conns[0]
		p.conns = p.conns[1:]
		p.available.Add(-1)
	}
	p.mu.Unlock()

	if conn == nil {
		p.metrics.RecordAcquireError("empty")
		return nil, ErrNoConnectionAvailable
	}
	p.metrics.SetAvailable(p.Available())

	if err := conn.Ping(ctx); err != nil {
		logger.Warn("Health probe failed, marking pool dead", "upstream", p.url, "error", err)
		p.dead.Store(true)
		conn.Close()
		p.metrics.RecordAcquireError("unhealthy")
		return nil, ErrCannotConnect
	}

	p.metrics.RecordAcquire()
	return &Guard{pool: p, conn: conn}, nil
}

// release hands a connection back from a guard. Healthy connections go to
// the back of the queue; poisoned ones are closed and the dead-marker is
// set so the reconnect task rebuilds the pool.
func (p *Pool) release(conn *Conn) {
	select {
	case <-p.done:
		conn.Close()
		return
	default:
	}

	if !conn.Healthy() {
		logger.Warn("Dropping poisoned connection", "upstream", p.url)
		conn.Close()
		p.dead.Store(true)
		return
	}

	p.mu.Lock()
	// A guard released after a full rebuild would overfill the queue;
	// the pool already holds its target size, so the extra one goes away.
	if int64(len(p.conns)) >= p.poolSize.Load() {
		p.mu.Unlock()
		conn.Close()
		return
	}
	p.conns = append(p.conns, conn)
	p.mu.Unlock()
	p.available.Add(1)
	p.metrics.SetAvailable(p.Available())
}

// ScaleUp opens count new connections and appends them to the queue. If
// any dial fails, the connections opened by this call are closed and
// nothing is added.
func (p *Pool) ScaleUp(ctx context.Context, count int) error {
	conns := make([]*Conn, 0, count)
	for i := 0; i < count; i++ {
		conn, err := dial(ctx, p.url)
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return err
		}
		conns = append(conns, conn)
	}

	p.mu.Lock()
	p.conns = append(p.conns, conns...)
	p.mu.Unlock()

	p.poolSize.Add(int64(count))
	p.available.Add(int64(count))
	p.metrics.SetAvailable(p.Available())
	p.metrics.SetPoolSize(p.Size())

	logger.Info("Pool scaled up", "added", count, "size", p.Size())
	return nil
}

// ScaleDown closes count connections from the front of the queue. It
// fails when the pool is smaller than count, or when fewer than count
// connections are currently available.
func (p *Pool) ScaleDown(count int) error {
	if p.poolSize.Load() < int64(count) {
		return ErrNotEnoughConnectionsInPool
	}
	if p.available.Load() < int64(count) {
		return ErrNotEnoughConnectionsAvailable
	}

	p.poolSize.Add(-int64(count))
	p.available.Add(-int64(count))

	p.mu.Lock()
	for i := 0; i < count && len(p.conns) > 0; i++ {
		p.conns[0].Close()
		p.conns = p.conns[1:]
	}
	p.mu.Unlock()

	p.metrics.SetAvailable(p.Available())
	p.metrics.SetPoolSize(p.Size())

	logger.Info("Pool scaled down", "removed", count, "size", p.Size())
	return nil
}

// reconnectLoop is the background recovery task. Every check interval it
// looks at the dead-marker; when set, it drops every queued connection
// and redials the full pool. The marker is cleared even when some dials
// failed, so a flapping upstream cannot lock the pool out permanently.
func (p *Pool) reconnectLoop() {
	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if !p.dead.Load() {
				continue
			}
			p.rebuild()
		}
	}
}

// rebuild performs one nuke-and-redial cycle.
func (p *Pool) rebuild() {
	logger.Warn("Dead connection detected, rebuilding pool", "upstream", p.url)
	p.metrics.RecordReconnect()

	p.mu.Lock()
	for _, conn := range p.conns {
		conn.Close()
		p.available.Add(-1)
	}
	p.conns = nil
	p.mu.Unlock()
	p.metrics.SetAvailable(p.Available())

	size := int(p.poolSize.Load())
	opened := 0
	for i := 0; i < size; i++ {
		conn, err := dial(context.Background(), p.url)
		if err != nil {
			logger.Warn("Redial failed", "upstream", p.url, "error", err)
			continue
		}
		p.mu.Lock()
		p.conns = append(p.conns, conn)
		p.mu.Unlock()
		p.available.Add(1)
		opened++
	}
	p.metrics.SetAvailable(p.Available())

	// When not a single dial succeeded there is nothing an acquire could
	// re-probe, so the marker stays set and the next interval retries.
	// After a partial rebuild the marker is cleared; the next acquire
	// re-sets it if the upstream is still down.
	if opened == 0 && size > 0 {
		logger.Warn("Pool rebuild failed, retrying next interval", "upstream", p.url)
		return
	}
	p.dead.Store(false)

	logger.Info("Pool rebuilt", "upstream", p.url, "opened", opened, "size", size)
}

// Close stops the reconnect task and closes every queued connection.
// Guards still outstanding close their connections on release.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		for _, conn := range p.conns {
			conn.Close()
			p.available.Add(-1)
		}
		p.conns = nil
		p.mu.Unlock()

		// Anything released after Close must be dropped, not requeued.
		p.dead.Store(true)
	})
}
