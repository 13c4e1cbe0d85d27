package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Decision path
	SignalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_decision_duration_seconds",
			Help:    "Time spent in the signal filter",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
		[]string{"op"},
	)
	TradeExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trade_execution_duration_seconds",
			Help:    "End-to-end tick processing time including persistence",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_decisions_total",
			Help: "Tick decisions by action",
		},
		[]string{"action"},
	)
	PersistenceFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_persistence_failures_total",
			Help: "Ticks aborted because the store failed to commit",
		},
	)
	IdempotentReplaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotent_replays_total",
			Help: "Requests answered from the idempotency cache",
		},
		[]string{"op"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_sessions_running",
			Help: "Users with a running bot session known to this instance",
		},
	)

	// Notifications
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)
	NotificationsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Events dropped because the dispatch queue was full",
		},
	)

	// Streaming
	StreamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_stream_connections",
			Help: "Open websocket tick streams",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		SignalDuration,
		TradeExecutionDuration,
		DecisionsTotal,
		PersistenceFailuresTotal,
		IdempotentReplaysTotal,
		ActiveSessions,
		NotificationsTotal,
		NotificationsDroppedTotal,
		StreamConnections,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
