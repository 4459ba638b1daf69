package metrics

import "github.com/prometheus/client_golang/prometheus"

// Catalog ingestion Prometheus metrics.
var (
	IngestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursemap",
			Name:      "ingest_runs_total",
			Help:      "Total number of catalog ingestion runs",
		},
		[]string{"status"}, // "ok" / "error" / "rejected"
	)

	IngestCoursesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursemap",
			Name:      "ingest_courses_total",
			Help:      "Total courses processed during ingestion",
		},
		[]string{"result"}, // "indexed" / "skipped"
	)

	IngestBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursemap",
			Name:      "ingest_batches_total",
			Help:      "Total upsert batches written during ingestion",
		},
		[]string{"status"},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "coursemap",
			Name:      "ingest_duration_seconds",
			Help:      "Full catalog ingestion run duration in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
	)

	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursemap",
			Name:      "catalog_requests_total",
			Help:      "Total HTTP requests made against the course catalog",
		},
		[]string{"endpoint", "status"},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers Prometheus ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestRunsTotal)
	prometheus.MustRegister(IngestCoursesTotal)
	prometheus.MustRegister(IngestBatchesTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(CatalogRequestsTotal)
	ingestMetricsRegistered = true
}
