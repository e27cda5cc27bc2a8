package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by cache family and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_cache_lookups_total",
		Help: "Cache lookups by cache family and result",
	}, []string{"cache", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "earthhome_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PropertyMutations counts successful listing writes.
	PropertyMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_property_mutations_total",
		Help: "Property create, update and delete operations",
	}, []string{"operation"})

	// FavoriteToggles counts favorite additions and removals.
	FavoriteToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_favorite_toggles_total",
		Help: "Favorite toggles by resulting action",
	}, []string{"action"})

	// AuthEvents counts sign-up, sign-in and sign-out attempts by outcome.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_auth_events_total",
		Help: "Authentication events by type and result",
	}, []string{"event", "result"})

	// UploadedFiles counts files accepted or rejected per upload route.
	UploadedFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_uploaded_files_total",
		Help: "Uploaded files by route and result",
	}, []string{"route", "result"})

	// UploadedBytes sums accepted upload sizes per route.
	UploadedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_uploaded_bytes_total",
		Help: "Bytes written to object storage by upload route",
	}, []string{"route"})

	// RateLimitRejections counts requests refused by the rate limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_rate_limit_rejections_total",
		Help: "Requests rejected by rate limiting, by resource",
	}, []string{"resource"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "earthhome_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts broadcast events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earthhome_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics records query latency for repository calls.
type DatabaseMetrics struct{}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

// ObserveQuery records the latency of a database query.
func (*DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
