package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "academy_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	QuotaChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_quota_checks_total",
			Help: "Total quota checks by service and outcome (allowed, denied, error).",
		},
		[]string{"service", "result"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_llm_requests_total",
			Help: "Total LLM generation calls by service and status.",
		},
		[]string{"service", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "academy_llm_request_duration_seconds",
			Help:    "LLM generation latency in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"service"},
	)

	TranscriptFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_transcript_fetches_total",
			Help: "Total transcript fetches by result (hit, miss, error).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		QuotaChecksTotal,
		LLMRequestsTotal,
		LLMRequestDuration,
		TranscriptFetchesTotal,
	)
}
