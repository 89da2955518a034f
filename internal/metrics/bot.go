package metrics

import "github.com/prometheus/client_golang/prometheus"

// Bot Prometheus metrics.
var (
	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geminibot",
			Name:      "quota_decisions_total",
			Help:      "Daily quota gate decisions",
		},
		[]string{"result"}, // allowed / denied / check_failed
	)

	QuotaUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "geminibot",
			Name:      "quota_usage_count",
			Help:      "Usage count of the current day as last seen by this process",
		},
	)

	MentionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geminibot",
			Name:      "mentions_total",
			Help:      "Handled mention events by outcome",
		},
		[]string{"outcome"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geminibot",
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geminibot",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)

	GenerationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geminibot",
			Name:      "generation_errors_total",
			Help:      "Total generation errors",
		},
		[]string{"model", "error_type"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geminibot",
			Name:      "generation_tokens_total",
			Help:      "Tokens reported by the generation provider",
		},
		[]string{"model", "type"}, // prompt / candidates / total
	)
)

var botMetricsRegistered bool

// RegisterBotMetrics registers bot Prometheus metrics. Must be called once from main.
func RegisterBotMetrics() {
	if botMetricsRegistered {
		return
	}
	prometheus.MustRegister(QuotaDecisionsTotal)
	prometheus.MustRegister(QuotaUsage)
	prometheus.MustRegister(MentionsTotal)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationErrorsTotal)
	prometheus.MustRegister(GenerationTokensTotal)
	botMetricsRegistered = true
}
