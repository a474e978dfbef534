package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Poll metrics
	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnwatch_polls_total",
			Help: "Total number of status polls by result",
		},
		[]string{"result"},
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vpnwatch_poll_duration_seconds",
			Help:    "Time taken by a reconciliation tick in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ConsecutiveFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpnwatch_consecutive_failures",
			Help: "Current number of consecutive failed status polls",
		},
	)

	// Roster metrics
	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpnwatch_connected_clients",
			Help: "Number of clients in the last successful roster",
		},
	)

	ClientEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnwatch_client_events_total",
			Help: "Total number of client events by type",
		},
		[]string{"type"},
	)

	// Notification metrics
	AlertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vpnwatch_alerts_total",
			Help: "Total number of escalation alerts raised",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnwatch_notifications_total",
			Help: "Total number of notification deliveries by result",
		},
		[]string{"result"},
	)
)

// Label values
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultDropped   = "dropped"

	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

func init() {
	prometheus.MustRegister(PollsTotal)
	prometheus.MustRegister(PollDuration)
	prometheus.MustRegister(ConsecutiveFailures)
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(ClientEventsTotal)
	prometheus.MustRegister(AlertsTotal)
	prometheus.MustRegister(NotificationsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
