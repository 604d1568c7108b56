package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the room relay.
//
// Naming convention: namespace_subsystem_name
// - namespace: reactive_rooms (application-level grouping)
// - subsystem: websocket, room, fabric, http (feature-level grouping)
// - name: specific metric (connections_active, rooms_active, etc.)

var (
	// ActiveConnections tracks the current number of upgraded sockets, host and user alike.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reactive_rooms",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of rooms in the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reactive_rooms",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of rooms in the registry",
	})

	// RoomMembers tracks the number of joined users per room.
	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "reactive_rooms",
		Subsystem: "room",
		Name:      "members_count",
		Help:      "Number of joined users in each room",
	}, []string{"room_id"})

	// MessagesRelayed counts envelopes accepted by a mailbox, by direction.
	MessagesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reactive_rooms",
		Subsystem: "fabric",
		Name:      "messages_total",
		Help:      "Total messages delivered into mailboxes",
	}, []string{"direction"})

	// MessagesDropped counts envelopes lost to a full or missing mailbox.
	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reactive_rooms",
		Subsystem: "fabric",
		Name:      "messages_dropped_total",
		Help:      "Total messages dropped by the best-effort deliver",
	}, []string{"direction"})

	// SessionsClosed counts session teardowns by reason.
	SessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reactive_rooms",
		Subsystem: "websocket",
		Name:      "sessions_closed_total",
		Help:      "Total sessions closed, by cause",
	}, []string{"kind", "cause"})

	// RateLimitRequests counts requests that passed the rate limiter.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reactive_rooms",
		Subsystem: "http",
		Name:      "rate_limit_requests_total",
		Help:      "Total requests checked by the rate limiter",
	}, []string{"path"})

	// RateLimitExceeded counts requests rejected by the rate limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reactive_rooms",
		Subsystem: "http",
		Name:      "rate_limit_exceeded_total",
		Help:      "Total requests rejected by the rate limiter",
	}, []string{"path", "kind"})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
