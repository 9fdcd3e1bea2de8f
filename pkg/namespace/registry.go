package namespace

import (
	"fmt"
	"sync"

	"github.com/marmos91/wirecache/pkg/protocol"
)

// ErrReservedNamespace reports an attempt to register over the control
// namespace id.
var ErrReservedNamespace = fmt.Errorf("namespace id %d is reserved for the control namespace", protocol.ControlNamespace)

// Registry maps namespace ids to namespace objects and preserves
// registration order. The control namespace is installed at construction
// under id 255 and cannot be replaced.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	order   []uint8
	entries map[uint8]Namespace
	hub     *Hub
}

// NewRegistry creates a registry holding only the control namespace.
func NewRegistry() *Registry {
	hub := NewHub()
	r := &Registry{
		entries: make(map[uint8]Namespace),
		hub:     hub,
	}
	r.entries[protocol.ControlNamespace] = &controlNamespace{hub: hub}
	r.order = append(r.order, protocol.ControlNamespace)
	return r
}

// Hub returns the control broadcast hub. Embedders subscribe here when
// they want control signals outside a registered namespace.
func (r *Registry) Hub() *Hub {
	return r.hub
}

// Add registers ns under id, replacing a previous registration of the same
// id in place. Registering id 255 fails with ErrReservedNamespace.
func (r *Registry) Add(id uint8, ns Namespace) error {
	if id == protocol.ControlNamespace {
		return ErrReservedNamespace
	}
	if ns == nil {
		return fmt.Errorf("cannot register nil namespace at id %d", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; !exists {
		r.order = append(r.order, id)
	}
	r.entries[id] = ns
	return nil
}

// Get retrieves the namespace registered under id.
func (r *Registry) Get(id uint8) (Namespace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.entries[id]
	return ns, ok
}

// IDs returns all registered ids in registration order. The returned slice
// is a copy and safe to modify.
func (r *Registry) IDs() []uint8 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint8, len(r.order))
	copy(ids, r.order)
	return ids
}

// Len returns the number of registered namespaces, control included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
