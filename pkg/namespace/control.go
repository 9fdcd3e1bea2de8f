package namespace

import (
	"context"
	"sync"

	"github.com/marmos91/wirecache/internal/logger"
	"github.com/marmos91/wirecache/pkg/protocol"
	"github.com/marmos91/wirecache/pkg/wire"
)

// Hub is the single-producer broadcast channel behind the control
// namespace. Each registered namespace subscribes once; a published signal
// reaches every subscriber.
//
// Delivery is latest-wins: a subscriber that has not drained its previous
// signal sees only the newest one. Listeners react to signals, they do not
// consume a queue, so dropping superseded signals is the intended behavior
// and Publish never blocks on a slow listener.
type Hub struct {
	mu   sync.Mutex
	subs []chan protocol.Opcode
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a new listener channel and returns its receive side.
func (h *Hub) Subscribe() <-chan protocol.Opcode {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan protocol.Opcode, 1)
	h.subs = append(h.subs, ch)
	return ch
}

// Publish delivers op to every subscriber, replacing an undelivered
// previous signal where one is still pending.
func (h *Hub) Publish(op protocol.Opcode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- op:
		default:
			// Drop the stale signal, then retry. The subscriber may have
			// drained in between, so the retry is best-effort too.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- op:
			default:
			}
		}
	}
}

// controlNamespace is the namespace auto-registered at id 255. It holds no
// data: any command addressed to it is rebroadcast as a control signal to
// every registered namespace, and the reply is a single marker byte.
type controlNamespace struct {
	hub *Hub
}

func (c *controlNamespace) Name() string {
	return "control"
}

func (c *controlNamespace) Handle(_ context.Context, op protocol.Opcode, conn *protocol.Conn) error {
	c.hub.Publish(op)
	logger.Debug("Control signal published", "signal", op.String())
	return wire.WriteEmpty(conn.W)
}

func (c *controlNamespace) ControlListener(ctx context.Context, _ <-chan protocol.Opcode) {
	<-ctx.Done()
}
