package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rihla_gateway_calls_total",
			Help: "Model gateway invocations by content kind and outcome code",
		},
		[]string{"kind", "outcome"},
	)

	GatewayRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rihla_gateway_retries_total",
			Help: "Transient provider failures that were retried",
		},
		[]string{"kind"},
	)

	GatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rihla_gateway_latency_seconds",
			Help:    "Wall clock time of a gateway invocation including retries",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"kind"},
	)

	Tokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rihla_tokens_total",
			Help: "Prompt and completion tokens consumed per content kind",
		},
		[]string{"kind", "type"},
	)

	Extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rihla_extractions_total",
			Help: "Extraction results per content kind (extracted or absent)",
		},
		[]string{"kind", "result"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rihla_result_cache_lookups_total",
			Help: "Result cache lookups by backend and result",
		},
		[]string{"backend", "result"},
	)
)

// ObserveUsage records token counters for a completed call.
func ObserveUsage(kind string, usage TokenUsage) {
	if usage.IsZero() {
		return
	}
	Tokens.WithLabelValues(kind, "prompt").Add(float64(usage.PromptTokens))
	Tokens.WithLabelValues(kind, "completion").Add(float64(usage.CompletionTokens))
}
