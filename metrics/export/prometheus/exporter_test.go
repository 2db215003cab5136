package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/rotauth"
)

type fakeSource struct {
	snapshot rotauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() rotauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: rotauth.MetricsSnapshot{
			Counters:   map[rotauth.MetricID]uint64{},
			Histograms: map[rotauth.MetricID]rotauth.HistogramSnapshot{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: rotauth.MetricsSnapshot{
			Counters: map[rotauth.MetricID]uint64{
				rotauth.MetricRefreshReuseDetected: 7,
			},
			Histograms: map[rotauth.MetricID]rotauth.HistogramSnapshot{
				rotauth.MetricRefreshLatency: {
					Buckets: []uint64{1, 2, 3, 4, 5, 6, 7, 8},
					Sum:     1500 * time.Millisecond,
				},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"rotauth_refresh_reuse_detected_total 7",
		"rotauth_login_success_total 0",
		`rotauth_refresh_latency_seconds_bucket{le="0.0001"} 1`,
		`rotauth_refresh_latency_seconds_bucket{le="+Inf"} 36`,
		"rotauth_refresh_latency_seconds_sum 1.5",
		"rotauth_refresh_latency_seconds_count 36",
		"rotauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "rotauth_validate_latency_seconds") {
		t.Fatalf("absent histogram must not be rendered:\n%s", out)
	}
}

func TestRenderFromEngineMetrics(t *testing.T) {
	m := rotauth.NewMetrics(rotauth.MetricsConfig{Enabled: true})
	m.Inc(rotauth.MetricLogout)
	exp := NewPrometheusExporterFromSource(fakeSource{snapshot: m.Snapshot()})

	if out := exp.Render(); !strings.Contains(out, "rotauth_logout_total 1") {
		t.Fatalf("expected logout counter, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: rotauth.MetricsSnapshot{
			Counters: map[rotauth.MetricID]uint64{rotauth.MetricLoginSuccess: 1},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
