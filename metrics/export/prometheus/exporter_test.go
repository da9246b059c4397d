package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goCrud "github.com/MrEthical07/goCrud"
)

type fakeSource struct {
	snapshot goCrud.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goCrud.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goCrud.MetricsSnapshot{
			Counters:   map[goCrud.MetricID]uint64{},
			Histograms: map[goCrud.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goCrud.MetricsSnapshot{
			Counters: map[goCrud.MetricID]uint64{
				goCrud.MetricLoginSuccess: 7,
			},
			Histograms: map[goCrud.MetricID][]uint64{
				goCrud.MetricOperationLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "gocrud_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "gocrud_operation_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "gocrud_operation_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "gocrud_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goCrud.MetricsSnapshot{
			Counters:   map[goCrud.MetricID]uint64{goCrud.MetricLoginSuccess: 1},
			Histograms: map[goCrud.MetricID][]uint64{},
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

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goCrud.MetricsSnapshot{
			Counters: map[goCrud.MetricID]uint64{
				goCrud.MetricLoginSuccess:     1000,
				goCrud.MetricLoginFailure:     40,
				goCrud.MetricUserCreated:      800,
				goCrud.MetricGroupMemberAdded: 120,
				goCrud.MetricCASConflict:      9,
				goCrud.MetricCSRFRejected:     3,
			},
			Histograms: map[goCrud.MetricID][]uint64{
				goCrud.MetricOperationLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}

func TestRenderWritesHelpAndType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goCrud.MetricsSnapshot{
			Counters:   map[goCrud.MetricID]uint64{goCrud.MetricCASConflict: 2},
			Histograms: map[goCrud.MetricID][]uint64{},
		},
	})

	out := exp.Render()
	for _, line := range []string{
		"# TYPE gocrud_cas_conflict_total counter",
		"# TYPE gocrud_operation_latency_seconds histogram",
		"gocrud_operation_latency_seconds_count 0",
		"gocrud_cas_conflict_total 2",
	} {
		if !strings.Contains(out, line+"\n") {
			t.Fatalf("missing %q in output:\n%s", line, out)
		}
	}
}
