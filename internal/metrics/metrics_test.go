package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReloadCounters(t *testing.T) {
	m := New()
	m.ObserveReload(ResultSuccess, 10*time.Millisecond)
	m.ObserveReload(ResultSuccess, 20*time.Millisecond)
	m.ObserveReload(ResultFailure, time.Millisecond)

	if got := testutil.ToFloat64(m.reloads.WithLabelValues(ResultSuccess)); got != 2 {
		t.Fatalf("success reloads = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.reloads.WithLabelValues(ResultFailure)); got != 1 {
		t.Fatalf("failed reloads = %v, want 1", got)
	}

	m.SetSnapshot(7, 3)
	if got := testutil.ToFloat64(m.generation); got != 7 {
		t.Fatalf("generation = %v, want 7", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveReload(ResultSuccess, time.Second)
	m.SetSnapshot(1, 0)
	m.ObserveReport("summary", time.Millisecond)
	m.CacheLookup(true)
	m.ObserveHTTP("/healthz", 200)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.CacheLookup(false)
	m.ObserveHTTP("/reports/summary", http.StatusServiceUnavailable)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`villaledger_report_cache_lookups_total{outcome="miss"} 1`,
		`villaledger_http_requests_total{code="5xx",route="/reports/summary"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
