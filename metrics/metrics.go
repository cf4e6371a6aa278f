package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SourceScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eduminer_source_scrapes_total",
			Help: "Total number of per-source extractions by outcome",
		},
		[]string{"source", "status"},
	)

	SourceItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eduminer_source_items_total",
			Help: "Total number of items extracted per source",
		},
		[]string{"source"},
	)

	SourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eduminer_source_duration_seconds",
			Help:    "Duration of per-source extractions in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"source"},
	)

	ScoringRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eduminer_scoring_requests_total",
			Help: "Total number of LLM relevance scoring calls by outcome",
		},
		[]string{"status"},
	)

	SessionLaunchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eduminer_session_launch_failures_total",
			Help: "Total number of browser sessions that failed to start",
		},
	)
)

// RecordSource updates the per-source metrics for one extraction.
func RecordSource(source, status string, items int, d time.Duration) {
	SourceScrapesTotal.WithLabelValues(source, status).Inc()
	SourceItemsTotal.WithLabelValues(source).Add(float64(items))
	SourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordScoring counts one scoring call.
func RecordScoring(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	ScoringRequestsTotal.WithLabelValues(status).Inc()
}

// Handler exposes the default registry for mounting on the gin router.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
