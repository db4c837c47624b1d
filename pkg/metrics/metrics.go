package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ReconcileIssued  = "issued"
	ReconcileApplied = "applied"
	ReconcileStale   = "stale"
	ReconcileFailed  = "failed"
)

type collectors struct {
	reconcileTotal  *prometheus.CounterVec
	visitLatency    *prometheus.HistogramVec
	previewCreated  prometheus.Counter
	previewReleased prometheus.Counter
	previewLive     prometheus.Gauge
	viewsActive     prometheus.Gauge
	uploadTotal     *prometheus.CounterVec
}

var collectorsSingleton = sync.OnceValue(func() *collectors {
	return &collectors{
		reconcileTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Name:      "reconcile_total",
			Help:      "Reconciliations by resource and outcome (issued, applied, stale, failed).",
		}, []string{"resource", "result"}),
		visitLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "console",
			Name:      "backend_visit_seconds",
			Help:      "Latency of page visits against the backend.",
			Buckets: []float64{
				0.005, 0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5, 10,
			},
		}, []string{"method", "status"}),
		previewCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "console",
			Name:      "preview_handles_created_total",
			Help:      "Preview handles minted.",
		}),
		previewReleased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "console",
			Name:      "preview_handles_released_total",
			Help:      "Preview handles revoked.",
		}),
		previewLive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "console",
			Name:      "preview_handles_live",
			Help:      "Preview handles currently held.",
		}),
		viewsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "console",
			Name:      "views_active",
			Help:      "Views currently bound to a browser connection.",
		}),
		uploadTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Name:      "upload_total",
			Help:      "Upload submissions by outcome.",
		}, []string{"result"}),
	}
})

func get() *collectors {
	return collectorsSingleton()
}

func RecordReconcile(resource, result string) {
	get().reconcileTotal.WithLabelValues(resource, result).Inc()
}

func RecordVisit(method, status string, d time.Duration) {
	get().visitLatency.WithLabelValues(method, status).Observe(d.Seconds())
}

func PreviewCreated() {
	c := get()
	c.previewCreated.Inc()
	c.previewLive.Inc()
}

func PreviewReleased() {
	c := get()
	c.previewReleased.Inc()
	c.previewLive.Dec()
}

func ViewOpened() {
	get().viewsActive.Inc()
}

func ViewClosed() {
	get().viewsActive.Dec()
}

func RecordUpload(result string) {
	get().uploadTotal.WithLabelValues(result).Inc()
}
