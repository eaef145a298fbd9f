package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_redis_errors_total",
		Help: "Total number of Redis errors by operation",
	}, []string{"operation"})

	// DatabaseQueryLatency records database statement latency by operation.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quill_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// PostsCreated counts created blog posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_posts_created_total",
		Help: "Total number of blog posts created",
	})

	// LikeEvents counts like and unlike actions.
	LikeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_likes_total",
		Help: "Total like and unlike actions",
	}, []string{"action"})

	// AuthAttempts counts signup/login attempts by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_auth_attempts_total",
		Help: "Authentication attempts by action and result",
	}, []string{"action", "result"})

	// ThumbnailBytes records the size of stored thumbnails.
	ThumbnailBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quill_thumbnail_bytes",
		Help:    "Size of stored thumbnails in bytes",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
	})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"resource"})
)

// ObserveQuery records the latency of one SQL statement, labelled by its
// leading verb (SELECT, INSERT, ...).
func ObserveQuery(sql string, elapsed time.Duration) {
	DatabaseQueryLatency.WithLabelValues(statementVerb(sql)).Observe(elapsed.Seconds())
}

func statementVerb(sql string) string {
	sql = strings.TrimSpace(sql)
	if i := strings.IndexAny(sql, " \n\t"); i > 0 {
		sql = sql[:i]
	}
	switch verb := strings.ToUpper(sql); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "BEGIN", "COMMIT", "ROLLBACK":
		return verb
	default:
		return "OTHER"
	}
}
