package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PoolMetrics tracks the client connection pool: acquire traffic, pool
// occupancy, and reconnect cycles.
type PoolMetrics struct {
	acquires      prometheus.Counter
	acquireErrors *prometheus.CounterVec
	available     prometheus.Gauge
	poolSize      prometheus.Gauge
	reconnects    prometheus.Counter
}

// NewPoolMetrics creates the pool collectors, or nil when metrics are
// disabled.
func NewPoolMetrics() *PoolMetrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()

	return &PoolMetrics{
		acquires: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "wirecache_pool_acquires_total",
			Help: "Total number of successful connection acquisitions",
		}),
		acquireErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "wirecache_pool_acquire_errors_total",
			Help: "Total number of failed acquisitions by reason",
		}, []string{"reason"}),
		available: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "wirecache_pool_available_connections",
			Help: "Connections currently resident in the pool queue",
		}),
		poolSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "wirecache_pool_size",
			Help: "Target number of pooled connections",
		}),
		reconnects: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "wirecache_pool_reconnects_total",
			Help: "Total number of full pool rebuilds after a dead connection",
		}),
	}
}

// RecordAcquire counts a successful acquisition.
func (m *PoolMetrics) RecordAcquire() {
	if m == nil {
		return
	}
	m.acquires.Inc()
}

// RecordAcquireError counts a failed acquisition.
func (m *PoolMetrics) RecordAcquireError(reason string) {
	if m == nil {
		return
	}
	m.acquireErrors.WithLabelValues(reason).Inc()
}

// SetAvailable updates the available connection gauge.
func (m *PoolMetrics) SetAvailable(n int) {
	if m == nil {
		return
	}
	m.available.Set(float64(n))
}

// SetPoolSize updates the target size gauge.
func (m *PoolMetrics) SetPoolSize(n int) {
	if m == nil {
		return
	}
	m.poolSize.Set(float64(n))
}

// RecordReconnect counts one full rebuild cycle.
func (m *PoolMetrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}
