package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(aiTokensTotal, aiCallsLatencyMs)
}

var (
	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Sum of total tokens per model.",
		},
		[]string{"model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 30000},
		},
		[]string{"model", "success"},
	)
)

func ObserveAICall(model string, tokens int, latencyMs float64, success bool) {
	aiTokensTotal.WithLabelValues(norm(model)).Add(float64(tokens))
	aiCallsLatencyMs.WithLabelValues(norm(model), strconv.FormatBool(success)).Observe(latencyMs)
}
