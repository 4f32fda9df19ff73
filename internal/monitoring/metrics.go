package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Review metrics
	ReviewsCreated        *prometheus.CounterVec
	UpdateNumberConflicts prometheus.Counter
	ReviewVotes           *prometheus.CounterVec

	// Verification metrics
	ProofDecisions    *prometheus.CounterVec
	IdentityDecisions *prometheus.CounterVec

	// Stats projector metrics
	StatsRecomputeDuration prometheus.Histogram
	StatsRecomputesTotal   prometheus.Counter

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

var metrics *Metrics

// Init initializes all Prometheus metrics
func Init() *Metrics {
	if metrics != nil {
		return metrics
	}

	metrics = &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		ReviewsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviews_created_total",
				Help: "Total number of reviews created",
			},
			[]string{"kind"},
		),
		UpdateNumberConflicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "review_update_number_conflicts_total",
				Help: "Total number of concurrent update-number assignment conflicts",
			},
		),
		ReviewVotes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_votes_total",
				Help: "Total number of review votes",
			},
			[]string{"direction"},
		),

		ProofDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proof_decisions_total",
				Help: "Total number of admin proof decisions",
			},
			[]string{"decision"},
		),
		IdentityDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "identity_decisions_total",
				Help: "Total number of admin identity decisions",
			},
			[]string{"decision"},
		),

		StatsRecomputeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stats_recompute_duration_seconds",
				Help:    "Business stats recompute duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		StatsRecomputesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "stats_recomputes_total",
				Help: "Total number of business stats recomputes",
			},
		),

		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),

		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	return metrics
}

// Get returns the global metrics instance
func Get() *Metrics {
	if metrics == nil {
		return Init()
	}
	return metrics
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware is a Gin middleware for collecting HTTP metrics
func MetricsMiddleware() gin.HandlerFunc {
	m := Get()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// RecordReviewCreated records a review submission
func RecordReviewCreated(isUpdate bool) {
	kind := "original"
	if isUpdate {
		kind = "update"
	}
	Get().ReviewsCreated.WithLabelValues(kind).Inc()
}

// RecordUpdateNumberConflict records a concurrent update-number race
func RecordUpdateNumberConflict() {
	Get().UpdateNumberConflicts.Inc()
}

// RecordReviewVote records an upvote or downvote
func RecordReviewVote(up bool) {
	direction := "down"
	if up {
		direction = "up"
	}
	Get().ReviewVotes.WithLabelValues(direction).Inc()
}

// RecordProofDecision records an admin proof decision
func RecordProofDecision(decision string) {
	Get().ProofDecisions.WithLabelValues(decision).Inc()
}

// RecordIdentityDecision records an admin identity decision
func RecordIdentityDecision(decision string) {
	Get().IdentityDecisions.WithLabelValues(decision).Inc()
}

// RecordStatsRecompute records one projector recompute
func RecordStatsRecompute(duration time.Duration) {
	m := Get()
	m.StatsRecomputesTotal.Inc()
	m.StatsRecomputeDuration.Observe(duration.Seconds())
}

// RecordDBPoolStats records connection pool gauges
func RecordDBPoolStats(active, idle int) {
	m := Get()
	m.DBConnectionsActive.Set(float64(active))
	m.DBConnectionsIdle.Set(float64(idle))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(cacheType string) {
	Get().CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(cacheType string) {
	Get().CacheMisses.WithLabelValues(cacheType).Inc()
}

// SetDBConnections sets database connection metrics
func SetDBConnections(active, idle int) {
	m := Get()
	m.DBConnectionsActive.Set(float64(active))
	m.DBConnectionsIdle.Set(float64(idle))
}
