package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	connectionState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "meshlink",
			Subsystem: "connection",
			Name:      "state",
			Help:      "Connection state (0 closed, 1 connecting, 2 open).",
		},
	)
	connectionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "connection",
			Name:      "events_total",
			Help:      "Transport lifecycle events.",
		},
		[]string{"event"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "frames",
			Name:      "sent_total",
			Help:      "Frames written to the transport.",
		},
		[]string{"subject"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "frames",
			Name:      "received_total",
			Help:      "Inbound frames by dispatch outcome.",
		},
		[]string{"outcome"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "meshlink",
			Subsystem: "outbox",
			Name:      "depth",
			Help:      "Messages waiting for the transport.",
		},
	)
	queueDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "outbox",
			Name:      "dropped_total",
			Help:      "Messages dropped because the outbound queue was full.",
		},
	)
	pendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "meshlink",
			Subsystem: "requests",
			Name:      "pending",
			Help:      "Requests awaiting a response.",
		},
	)
	requestsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meshlink",
			Subsystem: "requests",
			Name:      "expired_total",
			Help:      "Requests dropped without a response.",
		},
	)
)

// Inbound dispatch outcomes.
const (
	OutcomeSession    = "session"
	OutcomeResponse   = "response"
	OutcomeSubscribed = "subscribed"
	OutcomeUnroutable = "unroutable"
	OutcomeMalformed  = "malformed"
)

// Connection events.
const (
	EventConnect   = "connect"
	EventOpen      = "open"
	EventError     = "error"
	EventClose     = "close"
	EventReconnect = "reconnect"
)

// RegisterMetrics registers all collectors with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectionState, connectionEvents,
			framesSent, framesReceived,
			queueDepth, queueDropped,
			pendingRequests, requestsExpired,
		)
	})
}

func SetConnectionState(state int) {
	RegisterMetrics()
	connectionState.Set(float64(state))
}

func RecordConnectionEvent(event string) {
	RegisterMetrics()
	connectionEvents.WithLabelValues(event).Inc()
}

func RecordFrameSent(subject string) {
	RegisterMetrics()
	framesSent.WithLabelValues(subject).Inc()
}

func RecordFrameReceived(outcome string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(outcome).Inc()
}

func SetQueueDepth(n int) {
	RegisterMetrics()
	queueDepth.Set(float64(n))
}

func RecordQueueDrop() {
	RegisterMetrics()
	queueDropped.Inc()
}

func SetPendingRequests(n int) {
	RegisterMetrics()
	pendingRequests.Set(float64(n))
}

func RecordRequestExpired() {
	RegisterMetrics()
	requestsExpired.Inc()
}
