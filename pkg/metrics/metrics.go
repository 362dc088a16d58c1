package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tripmate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripmate_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// CacheLookups counts read-through lookups per key scope and result (hit|miss|error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripmate_cache_lookups_total",
			Help: "Cache lookups by scope and result",
		},
		[]string{"scope", "result"},
	)

	// CacheInvalidations counts explicit key deletions by scope and result (ok|error).
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripmate_cache_invalidations_total",
			Help: "Cache key invalidations by scope and result",
		},
		[]string{"scope", "result"},
	)

	// QueueState reports the connection manager state (0 disconnected, 1 connecting, 2 connected, 3 closed).
	QueueState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tripmate_queue_connection_state",
			Help: "Message queue connection state",
		},
	)

	// QueueConnectAttempts counts broker dial attempts by trigger (explicit|background) and result.
	QueueConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripmate_queue_connect_attempts_total",
			Help: "Broker connection attempts",
		},
		[]string{"trigger", "result"},
	)

	// NotificationsPublished counts producer sends by notification type and result (ack|nack|error).
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripmate_notifications_published_total",
			Help: "Notification messages published to the queue",
		},
		[]string{"type", "result"},
	)

	// NotificationsConsumed counts consumer outcomes (persisted|requeued|dead_lettered).
	NotificationsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripmate_notifications_consumed_total",
			Help: "Notification deliveries handled by the consumer",
		},
		[]string{"result"},
	)

	// NotificationsDeadLettered counts deliveries routed to the dead-letter queue by reason.
	NotificationsDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripmate_notifications_dead_lettered_total",
			Help: "Notification deliveries routed to the dead-letter queue",
		},
		[]string{"reason"},
	)

	// RealtimeSubscribers tracks connected websocket inbox subscribers.
	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tripmate_realtime_subscribers",
			Help: "Connected realtime notification subscribers",
		},
	)

	// MaintenanceRuns counts maintenance job executions by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripmate_maintenance_runs_total",
			Help: "Maintenance job executions",
		},
		[]string{"job", "result"},
	)
)
