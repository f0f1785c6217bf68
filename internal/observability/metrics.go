package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WebSocket metrics
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketEventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_sent_total",
			Help: "Total number of events delivered over WebSocket",
		},
		[]string{"type"},
	)

	WebSocketSendDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_send_drops_total",
			Help: "Connections dropped because their send buffer was full",
		},
	)

	// Chat core metrics
	ChatRoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_rooms_active",
			Help: "Number of active chat rooms",
		},
	)

	ChatMessagesAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_accepted_total",
			Help: "Messages accepted through the admission pipeline",
		},
		[]string{"room_id"},
	)

	ChatAdmissionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_admission_rejections_total",
			Help: "Messages rejected by the admission pipeline",
		},
		[]string{"reason"},
	)

	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_moderation_actions_total",
			Help: "Moderation actions applied",
		},
		[]string{"action"},
	)

	// Relay metrics
	RelayEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_events_published_total",
			Help: "Room events published to the message broker",
		},
	)

	RelayEventsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_events_consumed_total",
			Help: "Room events consumed from peer nodes",
		},
	)

	RelayEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_events_dropped_total",
			Help: "Room events dropped because the publish queue was full",
		},
	)
)
