package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	ObserveHTTP("POST", "/mcp", 200, 0.001)

	body := scrape(t)
	if !strings.Contains(body, "app_build_info") && !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics payload did not contain expected metric names; got:\n%s", body)
	}
}

func TestToolAndUpstreamMetrics_Labels(t *testing.T) {
	ObserveToolCall("parcela_gml_por_rc", "ok", 0.2)
	ObserveUpstreamLatency("wfs", 0.05)
	ObserveUpstreamStatus("wfs", 503)
	ObserveUpstreamStatus("callejero", 0)
	IncAutoCRSOutcome("succeed_degraded")

	body := scrape(t)
	for _, want := range []string{
		`mcp_tool_calls_total{outcome="ok",tool="parcela_gml_por_rc"} `,
		`mcp_tool_duration_seconds_bucket{tool="parcela_gml_por_rc",`,
		`upstream_latency_seconds_bucket{upstream="wfs",`,
		`upstream_requests_total{status="503",upstream="wfs"} `,
		`upstream_requests_total{status="error",upstream="callejero"} `,
		`auto_crs_outcomes_total{outcome="succeed_degraded"} `,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}
