package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		verifyTotal,
		usageRecordedTotal,
		sessionsReaped,
	)
}

var (
	verifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_verify_total",
			Help: "Verification attempts by outcome (valid or rejection reason).",
		},
		[]string{"outcome"},
	)

	usageRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_usage_recorded_total",
			Help: "Successfully recorded assessment usages.",
		},
	)

	sessionsReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_sessions_reaped_total",
			Help: "Expired admin sessions removed by the reaper job.",
		},
	)
)

func IncVerify(outcome string) {
	verifyTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncUsageRecorded() {
	usageRecordedTotal.Inc()
}

func AddSessionsReaped(n int64) {
	if n > 0 {
		sessionsReaped.Add(float64(n))
	}
}
