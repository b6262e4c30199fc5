package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmail_cache_requests_total",
			Help: "Thread cache lookups by kind (message, list) and result (hit, miss, error).",
		},
		[]string{"kind", "result"},
	)
	providerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webmail_provider_request_duration_seconds",
			Help:    "Latency of upstream mailbox calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "operation", "status"},
	)
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webmail_http_requests_total",
			Help: "HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)
	cachePurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webmail_cache_purged_entries_total",
			Help: "Expired cache entries removed by the purge job.",
		},
	)
)

const (
	CacheKindMessage = "message"
	CacheKindList    = "list"

	CacheResultHit   = "hit"
	CacheResultMiss  = "miss"
	CacheResultError = "error"
)

func ObserveCache(kind, result string) {
	cacheRequests.WithLabelValues(kind, result).Inc()
}

// ObserveProvider records one upstream call. status is "ok" or an error class.
func ObserveProvider(provider, operation, status string, started time.Time) {
	providerDuration.WithLabelValues(provider, operation, status).Observe(time.Since(started).Seconds())
}

func ObservePurge(n int) {
	if n > 0 {
		cachePurged.Add(float64(n))
	}
}

// GinMiddleware counts requests by route template, not raw path.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
