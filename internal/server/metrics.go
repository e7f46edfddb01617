package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmerrifield20/synthscan/internal/media"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synthscan_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "synthscan_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synthscan_analyses_total",
		Help: "Total analyses by outcome (succeeded, failed, discarded).",
	}, []string{"outcome"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "synthscan_analysis_duration_seconds",
		Help:    "Time from submission to backend reply, by outcome.",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"outcome"})

	admissionRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synthscan_admission_rejections_total",
		Help: "Total uploads refused before submission, by reason.",
	}, []string{"reason"})

	backendProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synthscan_backend_probes_total",
		Help: "Total backend health probes by result.",
	}, []string{"result"})
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
			path = "unmatched"
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAnalysis records a finished analysis. It matches
// analysis.MetricsRecordFunc.
func RecordAnalysis(outcome string, elapsed time.Duration) {
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordAdmissionRejection records an upload refused by the admission check.
func RecordAdmissionRejection(reason media.Reason) {
	admissionRejectionsTotal.WithLabelValues(string(reason)).Inc()
}

// RecordBackendProbe records a health probe result. It matches
// health.MetricsRecordFunc.
func RecordBackendProbe(success bool) {
	if success {
		backendProbesTotal.WithLabelValues("success").Inc()
	} else {
		backendProbesTotal.WithLabelValues("failure").Inc()
	}
}
