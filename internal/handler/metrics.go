package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rigRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rigforge_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	rigRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rigforge_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	rigSignupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rigforge_signups_total",
		Help: "Total account signups by method.",
	}, []string{"method"})

	rigBuildsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rigforge_builds_created_total",
		Help: "Total builds created.",
	})

	rigCheckoutSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rigforge_checkout_sessions_total",
		Help: "Total checkout sessions by result.",
	}, []string{"result"})

	rigOrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rigforge_orders_completed_total",
		Help: "Total orders moved to completed.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		rigRequestsTotal.WithLabelValues(method, path, status).Inc()
		rigRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordSignup records an account signup. method is "email" or "google".
func RecordSignup(method string) {
	rigSignupsTotal.WithLabelValues(method).Inc()
}

// RecordBuildCreated records a new build.
func RecordBuildCreated() {
	rigBuildsCreatedTotal.Inc()
}

// RecordCheckoutSession records a checkout session attempt.
func RecordCheckoutSession(success bool) {
	if success {
		rigCheckoutSessionsTotal.WithLabelValues("success").Inc()
	} else {
		rigCheckoutSessionsTotal.WithLabelValues("failure").Inc()
	}
}

// RecordOrderCompleted records a completed order.
func RecordOrderCompleted() {
	rigOrdersCompletedTotal.Inc()
}
