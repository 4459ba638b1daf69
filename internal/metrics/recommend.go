package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation pipeline Prometheus metrics.
var (
	RecommendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursemap",
			Name:      "recommend_requests_total",
			Help:      "Total recommendation requests by outcome",
		},
		[]string{"outcome"}, // "direct" / "selector" / "empty" / "degraded"
	)

	RecommendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "coursemap",
			Name:      "recommend_duration_seconds",
			Help:      "End-to-end recommendation request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SelectorAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursemap",
			Name:      "selector_attempts_total",
			Help:      "Total LLM selector attempts by result",
		},
		[]string{"result"}, // "ok" / "failed"
	)

	RetrievedCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "coursemap",
			Name:      "retrieved_candidates",
			Help:      "Number of candidates retrieved per request after score filtering",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)
)

var recommendMetricsRegistered bool

// RegisterRecommendMetrics registers Prometheus recommendation metrics. Must be called once from main.
func RegisterRecommendMetrics() {
	if recommendMetricsRegistered {
		return
	}
	prometheus.MustRegister(RecommendRequestsTotal)
	prometheus.MustRegister(RecommendDuration)
	prometheus.MustRegister(SelectorAttemptsTotal)
	prometheus.MustRegister(RetrievedCandidates)
	recommendMetricsRegistered = true
}
