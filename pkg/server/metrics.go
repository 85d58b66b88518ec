package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks server runtime statistics on a per-server Prometheus
// registry, so multiple servers (notably in tests) never collide on
// registration.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsTotal prometheus.Counter
	ActiveSessions   prometheus.Gauge
	AuthSuccess      prometheus.Counter
	AuthFailed       prometheus.Counter
	Disconnects      prometheus.Counter
	Messages         *prometheus.CounterVec // kind: broadcast | whisper | group
	SendErrors       prometheus.Counter
	GroupsCreated    prometheus.Counter
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "connections_total",
			Help:      "Lifetime client connections accepted.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "confab",
			Name:      "active_sessions",
			Help:      "Currently authenticated sessions.",
		}),
		AuthSuccess: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "auth_success_total",
			Help:      "Successful authentication attempts.",
		}),
		AuthFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "auth_failed_total",
			Help:      "Failed authentication attempts, including already-active collisions.",
		}),
		Disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "disconnects_total",
			Help:      "Session disconnects, clean and unclean.",
		}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "messages_total",
			Help:      "Messages routed, by kind.",
		}, []string{"kind"}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "send_errors_total",
			Help:      "Individual delivery failures (receiver transport gone).",
		}),
		GroupsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "confab",
			Name:      "groups_created_total",
			Help:      "Groups created during this run.",
		}),
	}
}

// Handler returns the /metrics HTTP handler for this server's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
