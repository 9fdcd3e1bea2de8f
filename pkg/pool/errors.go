package pool

import "errors"

// Pool errors. They are returned to the caller of Acquire, TryAcquire,
// ScaleUp, and ScaleDown; none of them is fatal to the pool itself.
var (
	// ErrNoConnectionAvailable reports an empty queue, or a pool whose
	// dead-marker is set and whose rebuild has not completed yet.
	ErrNoConnectionAvailable = errors.New("pool: no connection available")

	// ErrCannotConnect reports a failed dial or a failed health probe.
	ErrCannotConnect = errors.New("pool: cannot connect to upstream")

	// ErrNotEnoughConnectionsInPool reports a scale-down larger than the
	// pool.
	ErrNotEnoughConnectionsInPool = errors.New("pool: not enough connections in pool")

	// ErrNotEnoughConnectionsAvailable reports a scale-down larger than
	// what is currently resident in the queue.
	ErrNotEnoughConnectionsAvailable = errors.New("pool: not enough connections available")

	// ErrAcquireTimeout reports that no connection could be produced
	// within the acquire timeout.
	ErrAcquireTimeout = errors.New("pool: timeout getting connection")
)
