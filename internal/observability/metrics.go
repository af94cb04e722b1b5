package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveRequests    prometheus.Gauge
	RepliesTotal      *prometheus.CounterVec
	BackendErrors     *prometheus.CounterVec
	MemoryExtractions *prometheus.CounterVec
	ReplyLatency      prometheus.Histogram

	stageWindow *stageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of reply requests currently in flight.",
		}),
		RepliesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Completed reply requests by outcome.",
		}, []string{"outcome"}),
		BackendErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Backend dispatch errors by backend and mode.",
		}, []string{"backend", "mode"}),
		MemoryExtractions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_extractions_total",
			Help:      "Structured extraction results by outcome.",
		}, []string{"outcome"}),
		ReplyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_latency_ms",
			Help:      "End-to-end reply latency in milliseconds.",
			Buckets:   []float64{200, 500, 1000, 2000, 3000, 5000, 8000, 15000},
		}),
		stageWindow: newStageWindow(256),
	}
}

// ObserveStage records a pipeline stage duration in the sliding window and,
// for the request_total stage, the Prometheus histogram.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.stageWindow.Observe(stage, ms)
	if stage == StageRequestTotal {
		m.ReplyLatency.Observe(ms)
	}
}

// LatencySnapshot reports recent per-stage latency percentiles.
func (m *Metrics) LatencySnapshot() StageSnapshot {
	return m.stageWindow.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
