package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_tool_calls_total",
			Help: "MCP tool invocations by outcome (ok, failed, error).",
		},
		[]string{"tool", "outcome"},
	)

	toolDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcp_tool_duration_seconds",
			Help:    "Duration of MCP tool invocations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 13), // 10ms to ~40s
		},
		[]string{"tool"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 13),
		},
		[]string{"upstream"},
	)

	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Upstream calls by HTTP status; status=error for transport failures.",
		},
		[]string{"upstream", "status"},
	)

	autoCRSOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auto_crs_outcomes_total",
			Help: "Terminal states of the AUTO CRS resolution protocol.",
		},
		[]string{"outcome"},
	)

	sinkOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_sink_ops_total",
			Help: "Export sink operations by result (ok, error).",
		},
		[]string{"sink", "op", "result"},
	)

	sinkOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "export_sink_op_duration_seconds",
			Help:    "Duration of export sink operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"sink", "op"},
	)

	exportNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_notifications_total",
			Help: "export.completed events by outcome (queued, dropped, error).",
		},
		[]string{"outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "app_build_info",
			Help:        "Build information for the binary.",
			ConstLabels: nil,
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveToolCall(tool, outcome string, durationSeconds float64) {
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
	toolDurationSeconds.WithLabelValues(tool).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

// ObserveUpstreamStatus counts one upstream call. status 0 means the request
// never produced a response.
func ObserveUpstreamStatus(upstream string, status int) {
	st := "error"
	if status > 0 {
		st = strconv.Itoa(status)
	}
	upstreamRequestsTotal.WithLabelValues(upstream, st).Inc()
}

func IncAutoCRSOutcome(outcome string) {
	autoCRSOutcomes.WithLabelValues(outcome).Inc()
}

func ObserveSinkOp(sink, op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	sinkOpsTotal.WithLabelValues(sink, op, result).Inc()
	sinkOpDurationSeconds.WithLabelValues(sink, op).Observe(durationSeconds)
}

func IncExportNotification(outcome string) {
	exportNotificationsTotal.WithLabelValues(outcome).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
