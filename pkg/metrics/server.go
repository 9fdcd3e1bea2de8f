package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServerMetrics counts what the TCP multiplexer does: connection
// lifecycle, commands by opcode and namespace, and connection-fatal
// errors.
type ServerMetrics struct {
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	activeConnections   prometheus.Gauge
	commands            *prometheus.CounterVec
	commandDuration     *prometheus.HistogramVec
	connectionErrors    *prometheus.CounterVec
}

// NewServerMetrics creates the server collectors, or nil when metrics are
// disabled.
func NewServerMetrics() *ServerMetrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()

	return &ServerMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "wirecache_server_connections_accepted_total",
			Help: "Total number of accepted client connections",
		}),
		connectionsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "wirecache_server_connections_closed_total",
			Help: "Total number of closed client connections",
		}),
		activeConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "wirecache_server_active_connections",
			Help: "Number of currently open client connections",
		}),
		commands: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "wirecache_server_commands_total",
			Help: "Total number of handled commands by opcode and namespace",
		}, []string{"opcode", "namespace"}),
		commandDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wirecache_server_command_duration_milliseconds",
			Help:    "Duration of command handling in milliseconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500},
		}, []string{"opcode"}),
		connectionErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "wirecache_server_connection_errors_total",
			Help: "Total number of connection-fatal errors by kind",
		}, []string{"kind"}),
	}
}

// RecordConnectionAccepted counts a new connection.
func (m *ServerMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

// RecordConnectionClosed counts a finished connection.
func (m *ServerMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

// SetActiveConnections updates the live connection gauge.
func (m *ServerMetrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

// RecordCommand counts one handled command and its duration.
func (m *ServerMetrics) RecordCommand(opcode, ns string, durationMs float64) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(opcode, ns).Inc()
	m.commandDuration.WithLabelValues(opcode).Observe(durationMs)
}

// RecordConnectionError counts a connection-fatal error of the given kind
// (codec, protocol, io).
func (m *ServerMetrics) RecordConnectionError(kind string) {
	if m == nil {
		return
	}
	m.connectionErrors.WithLabelValues(kind).Inc()
}
