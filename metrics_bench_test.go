package goCrud

import (
	"context"
	"testing"
	"time"
)

func BenchmarkMetrics(b *testing.B) {
	for _, bc := range []struct {
		name string
		cfg  MetricsConfig
	}{
		{"disabled", MetricsConfig{}},
		{"enabled", MetricsConfig{Enabled: true}},
	} {
		b.Run(bc.name, func(b *testing.B) {
			m := NewMetrics(bc.cfg)
			b.ReportAllocs()
			for b.Loop() {
				m.Inc(MetricLoginSuccess)
			}
		})
	}
}

func BenchmarkMetricsParallel(b *testing.B) {
	hot := [...]MetricID{
		MetricLoginSuccess,
		MetricLoginFailure,
		MetricCSRFIssued,
		MetricGroupMemberAdded,
		MetricCASConflict,
		MetricUserUpdated,
	}
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for i := 0; pb.Next(); i++ {
			m.Inc(hot[i%len(hot)])
			m.Observe(MetricOperationLatency, time.Duration(i%600)*time.Millisecond)
		}
	})
}

func BenchmarkGetUser(b *testing.B) {
	e, err := New().WithConfig(testConfig()).WithStore(newTestKV()).Build()
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	defer e.Close()

	view, err := e.CreateUser(context.Background(), UserCreate{Nickname: "ann", Email: "ann@x.com", Password: "pw1"})
	if err != nil {
		b.Fatalf("create: %v", err)
	}
	q := UserQuery{Nid: view.Nid}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := e.GetUser(context.Background(), q); err != nil {
				b.Errorf("get: %v", err)
				return
			}
		}
	})
}
