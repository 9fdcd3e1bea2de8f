package pool

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/marmos91/wirecache/pkg/protocol"
)

// Conn is one pooled upstream connection: a TCP stream behind buffered
// framing, plus the health flag derived from its last probe or I/O
// outcome.
//
// A Conn is owned exclusively by whoever holds it: the pool while queued,
// the guard holder while acquired. Nothing here is synchronized.
type Conn struct {
	nc        net.Conn
	pc        *protocol.Conn
	unhealthy bool
}

// dial opens one upstream connection.
func dial(ctx context.Context, url string) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCannotConnect, url, err)
	}

	if tcp, ok := nc.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	return &Conn{nc: nc, pc: protocol.NewConn(nc)}, nil
}

// Proto returns the framed view used to run commands.
func (c *Conn) Proto() *protocol.Conn {
	return c.pc
}

// Ping probes liveness with the one-byte ping frame. Any successfully
// read reply byte counts as alive. A failed probe marks the connection
// unhealthy.
//
// When ctx carries a deadline it bounds the probe; the deadline is lifted
// again afterwards so later commands are not affected.
func (c *Conn) Ping(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.nc.SetDeadline(deadline)
		defer func() { _ = c.nc.SetDeadline(time.Time{}) }()
	}

	if err := c.pc.Ping(); err != nil {
		c.unhealthy = true
		return err
	}
	return nil
}

// MarkUnhealthy poisons the connection. The pool drops poisoned
// connections on release instead of requeueing them.
func (c *Conn) MarkUnhealthy() {
	c.unhealthy = true
}

// Healthy reports whether the connection may be reused.
func (c *Conn) Healthy() bool {
	return !c.unhealthy
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.nc.Close()
}
