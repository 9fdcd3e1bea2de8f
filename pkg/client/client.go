// Package client provides the typed command surface over a connection
// pool. A Client binds one namespace id to its key and value codecs; each
// command acquires a pooled connection, runs one request/response
// exchange, and releases the connection on every exit path.
//
// Any transport or codec failure mid-command leaves the connection
// misaligned, so the failing connection is poisoned: the pool drops it on
// release and schedules a rebuild instead of handing it to the next
// caller.
package client

import (
	"context"
	"fmt"

	"github.com/marmos91/wirecache/pkg/pool"
	"github.com/marmos91/wirecache/pkg/protocol"
	"github.com/marmos91/wirecache/pkg/wire"
)

// Maybe carries one MGet result slot: the value when the key existed,
// in the same position the key had in the request.
type Maybe[V any] struct {
	Value V
	OK    bool
}

// StatusError is the in-band failure reply of a write command. The
// connection stays usable after one; only the command failed.
type StatusError struct {
	Op     protocol.Opcode
	Status uint8
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %s failed with status %d", e.Op, e.Status)
}

// Client runs commands against one namespace. K and V must match the
// schemas the server-side namespace was built with; the protocol is not
// self-describing and a mismatch corrupts the stream.
type Client[K comparable, V any] struct {
	Pool      *pool.Pool
	Namespace uint8
	keys      wire.Codec[K]
	values    wire.Codec[V]
}

// New binds a command surface to a pool, a namespace id, and its schemas.
func New[K comparable, V any](p *pool.Pool, ns uint8, keys wire.Codec[K], values wire.Codec[V]) *Client[K, V] {
	return &Client[K, V]{Pool: p, Namespace: ns, keys: keys, values: values}
}

// withConn runs fn over an acquired connection. A non-nil error from fn
// poisons the connection before release.
func (c *Client[K, V]) withConn(ctx context.Context, fn func(pc *protocol.Conn) error) error {
	guard, err := c.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	if err := fn(guard.Conn().Proto()); err != nil {
		guard.Conn().MarkUnhealthy()
		return err
	}
	return nil
}

// begin writes the opcode and namespace bytes that start every command.
func (c *Client[K, V]) begin(pc *protocol.Conn, op protocol.Opcode) error {
	if err := pc.WriteOpcode(op); err != nil {
		return err
	}
	return pc.WriteNamespace(c.Namespace)
}

// readStatus finishes a write command. A nonzero status is reported via
// nsErr, not as a transport error: the stream is still aligned.
func readStatus(pc *protocol.Conn, op protocol.Opcode, nsErr *error) error {
	status, err := pc.ReadStatus()
	if err != nil {
		return err
	}
	if status != 0 {
		*nsErr = &StatusError{Op: op, Status: status}
	}
	return nil
}

// Get fetches the value stored under key.
func (c *Client[K, V]) Get(ctx context.Context, key K) (v V, ok bool, err error) {
	err = c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpGet); err != nil {
			return err
		}
		if err := c.keys.Encode(pc.W, key); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}
		var rerr error
		v, ok, rerr = wire.ReadOption(pc.R, c.values)
		return rerr
	})
	return v, ok, err
}

// MGet fetches many keys in one round trip. The reply preserves request
// order, with missing keys present as empty slots.
func (c *Client[K, V]) MGet(ctx context.Context, keys []K) (results []Maybe[V], err error) {
	err = c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpMGet); err != nil {
			return err
		}
		if err := wire.WriteSeq(pc.W, c.keys, keys); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}

		n, err := wire.ReadUint32(pc.R)
		if err != nil {
			return err
		}
		if n > wire.MaxSequenceLen {
			return fmt.Errorf("%w: mget reply length %d", wire.ErrLengthLimit, n)
		}
		results = make([]Maybe[V], 0, len(keys))
		for i := uint32(0); i < n; i++ {
			v, ok, err := wire.ReadOption(pc.R, c.values)
			if err != nil {
				return err
			}
			results = append(results, Maybe[V]{Value: v, OK: ok})
		}
		return nil
	})
	return results, err
}

// Keys lists every key in the namespace.
func (c *Client[K, V]) Keys(ctx context.Context) (keys []K, err error) {
	err = c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpKeys); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}
		var rerr error
		keys, rerr = wire.ReadSeq(pc.R, c.keys)
		return rerr
	})
	return keys, err
}

// Exists reports whether key is stored.
func (c *Client[K, V]) Exists(ctx context.Context, key K) (ok bool, err error) {
	err = c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpExists); err != nil {
			return err
		}
		if err := c.keys.Encode(pc.W, key); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}
		var rerr error
		ok, rerr = wire.ReadBool(pc.R)
		return rerr
	})
	return ok, err
}

// MExists checks many keys in one round trip, preserving request order.
func (c *Client[K, V]) MExists(ctx context.Context, keys []K) (flags []bool, err error) {
	err = c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpMExists); err != nil {
			return err
		}
		if err := wire.WriteSeq(pc.W, c.keys, keys); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}
		var rerr error
		flags, rerr = wire.ReadSeq(pc.R, wire.BoolCodec)
		return rerr
	})
	return flags, err
}

// Set stores value under key.
func (c *Client[K, V]) Set(ctx context.Context, key K, value V) error {
	var nsErr error
	err := c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpSet); err != nil {
			return err
		}
		if err := c.keys.Encode(pc.W, key); err != nil {
			return err
		}
		if err := c.values.Encode(pc.W, value); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}
		return readStatus(pc, protocol.OpSet, &nsErr)
	})
	if err != nil {
		return err
	}
	return nsErr
}

// MSet stores every entry of m in one round trip.
func (c *Client[K, V]) MSet(ctx context.Context, m map[K]V) error {
	var nsErr error
	err := c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpMSet); err != nil {
			return err
		}
		if err := wire.WriteMap(pc.W, c.keys, c.values, m); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}
		return readStatus(pc, protocol.OpMSet, &nsErr)
	})
	if err != nil {
		return err
	}
	return nsErr
}

// Del removes key.
func (c *Client[K, V]) Del(ctx context.Context, key K) error {
	var nsErr error
	err := c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpDel); err != nil {
			return err
		}
		if err := c.keys.Encode(pc.W, key); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}
		return readStatus(pc, protocol.OpDel, &nsErr)
	})
	if err != nil {
		return err
	}
	return nsErr
}

// MDel removes many keys in one round trip.
func (c *Client[K, V]) MDel(ctx context.Context, keys []K) error {
	var nsErr error
	err := c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpMDel); err != nil {
			return err
		}
		if err := wire.WriteSeq(pc.W, c.keys, keys); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}
		return readStatus(pc, protocol.OpMDel, &nsErr)
	})
	if err != nil {
		return err
	}
	return nsErr
}

// Save asks the namespace to persist itself.
func (c *Client[K, V]) Save(ctx context.Context) error {
	var nsErr error
	err := c.withConn(ctx, func(pc *protocol.Conn) error {
		if err := c.begin(pc, protocol.OpSave); err != nil {
			return err
		}
		if err := pc.Flush(); err != nil {
			return err
		}
		return readStatus(pc, protocol.OpSave, &nsErr)
	})
	if err != nil {
		return err
	}
	return nsErr
}

// Ping probes liveness over a pooled connection.
func (c *Client[K, V]) Ping(ctx context.Context) error {
	guard, err := c.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	return guard.Conn().Ping(ctx)
}

// Broadcast sends sig to the control namespace, which fans it out to
// every registered namespace's listener. The reply is the control
// namespace's marker byte.
func Broadcast(ctx context.Context, p *pool.Pool, sig protocol.Opcode) error {
	guard, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	pc := guard.Conn().Proto()
	if err := pc.WriteOpcode(sig); err != nil {
		guard.Conn().MarkUnhealthy()
		return err
	}
	if err := pc.WriteNamespace(protocol.ControlNamespace); err != nil {
		guard.Conn().MarkUnhealthy()
		return err
	}
	if err := pc.Flush(); err != nil {
		guard.Conn().MarkUnhealthy()
		return err
	}
	if err := wire.ReadEmpty(pc.R); err != nil {
		guard.Conn().MarkUnhealthy()
		return err
	}
	return nil
}
