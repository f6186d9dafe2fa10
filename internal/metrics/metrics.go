package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	WSConnectionsActive prometheus.Gauge
	WSBroadcastsTotal   *prometheus.CounterVec
	WSDroppedClients    prometheus.Counter

	InvitationsAccepted *prometheus.CounterVec
	AuthzDenied         *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		WSConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskboard_ws_connections_active",
			Help: "Number of connected realtime clients",
		}),
		WSBroadcastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_ws_broadcasts_total",
				Help: "Realtime events broadcast, by event name",
			},
			[]string{"event"},
		),
		WSDroppedClients: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_ws_dropped_clients_total",
			Help: "Realtime clients disconnected because their send buffer was full",
		}),
		InvitationsAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_invitations_accept_total",
				Help: "Invitation accept attempts, by outcome",
			},
			[]string{"outcome"},
		),
		AuthzDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_authz_denied_total",
				Help: "Requests rejected by the authorization guard",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WSConnectionsActive,
		m.WSBroadcastsTotal,
		m.WSDroppedClients,
		m.InvitationsAccepted,
		m.AuthzDenied,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
