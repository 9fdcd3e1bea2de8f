// Package namespace defines the cache objects a server multiplexes between:
// the Namespace contract, the id registry, the control broadcast hub, and a
// generic in-memory store implementing the full capability set.
//
// A namespace owns its key and value schemas. The dispatcher never sees
// them: it hands the namespace the opcode and the framed connection, and
// the namespace decodes its own arguments and writes its own reply.
package namespace

import (
	"context"

	"github.com/marmos91/wirecache/pkg/protocol"
)

// Namespace is a capability-bearing cache object addressable by one byte.
//
// Handle processes a single command. The implementation must fully consume
// the command's argument bytes from conn.R and fully write its reply to
// conn.W before returning; the caller flushes. Returning an error is fatal
// to the connection, so in-band failures (a failed save, a rejected key)
// are reported through the reply instead.
//
// Handle is called concurrently from every connection task; internal
// synchronization is the namespace's responsibility.
//
// ControlListener runs as one long-lived goroutine per namespace. It
// receives administrative signals broadcast through the control namespace
// and must return when ctx is cancelled.
type Namespace interface {
	Name() string
	Handle(ctx context.Context, op protocol.Opcode, conn *protocol.Conn) error
	ControlListener(ctx context.Context, signals <-chan protocol.Opcode)
}
