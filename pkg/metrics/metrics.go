// Package metrics holds the process-wide Prometheus registry and the
// collectors for the cache server and the client connection pool.
//
// Metrics are opt-in. Until InitRegistry is called the constructors return
// nil, and every collector method is nil-receiver safe, so instrumented
// code pays nothing when metrics are disabled.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process registry. Safe to call once at startup;
// later calls replace the registry, which only tests should do.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
}

// GetRegistry returns the process registry, or nil when metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
