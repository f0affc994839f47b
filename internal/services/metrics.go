package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Model calls by operation (chat, pipeline step, tool, rewrite)
	GenerationRequests *prometheus.CounterVec
	GenerationLatency  *prometheus.HistogramVec
	GenerationErrors   *prometheus.CounterVec

	// Degraded results: embedding, retrieval, rewrite
	Fallbacks *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		GenerationRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentegen_generation_requests_total",
			Help: "Total number of model generation requests by operation",
		}, []string{"operation"}),

		GenerationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentegen_generation_duration_seconds",
			Help:    "Model generation latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"operation"}),

		GenerationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentegen_generation_errors_total",
			Help: "Total number of failed model generation requests by operation",
		}, []string{"operation"}),

		Fallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agentegen_fallbacks_total",
			Help: "Total number of degraded results by kind",
		}, []string{"kind"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// observeGeneration records one model call. Safe to call before InitMetrics.
func observeGeneration(operation string, started time.Time, err error) {
	m := globalMetrics
	if m == nil {
		return
	}
	m.GenerationRequests.WithLabelValues(operation).Inc()
	m.GenerationLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		m.GenerationErrors.WithLabelValues(operation).Inc()
	}
}

// recordFallback counts a degraded result. Safe to call before InitMetrics.
func recordFallback(kind string) {
	if m := globalMetrics; m != nil {
		m.Fallbacks.WithLabelValues(kind).Inc()
	}
}
