package goCrud

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsToggles(t *testing.T) {
	off := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	off.Inc(MetricLoginSuccess)
	off.Observe(MetricOperationLatency, time.Millisecond)
	assert.Zero(t, off.Value(MetricLoginSuccess))
	assert.False(t, off.LatencyEnabled(), "latency needs metrics enabled")
	assert.Empty(t, off.Snapshot().Counters)

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	assert.Zero(t, nilMetrics.Value(MetricLoginSuccess))

	on := NewMetrics(MetricsConfig{Enabled: true})
	for range 3 {
		on.Inc(MetricLoginSuccess)
	}
	on.Inc(metricIDCount)
	assert.EqualValues(t, 3, on.Value(MetricLoginSuccess))
	assert.Zero(t, on.Value(metricIDCount))
}

func TestMetricsConcurrentIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines, perG = 32, 4000
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perG {
				m.Inc(MetricGroupMemberAdded)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, goroutines*perG, m.Value(MetricGroupMemberAdded))
}

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{5*time.Millisecond + 1, 1},
		{10 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{700 * time.Millisecond, 7},
		{time.Hour, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketIndex(tt.d), "%v", tt.d)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)
	m.Inc(MetricLoginFailure)
	m.Observe(MetricOperationLatency, 2*time.Millisecond)
	m.Observe(MetricOperationLatency, time.Second)
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	assert.Len(t, snap.Counters, int(metricIDCount))
	assert.EqualValues(t, 1, snap.Counters[MetricLoginSuccess])
	assert.EqualValues(t, 2, snap.Counters[MetricLoginFailure])
	assert.Equal(t, []uint64{1, 0, 0, 0, 0, 0, 0, 1}, snap.Histograms[MetricOperationLatency])
	assert.NotContains(t, snap.Histograms, MetricLoginSuccess)

	// Snapshots are copies.
	snap.Histograms[MetricOperationLatency][0] = 99
	assert.EqualValues(t, 1, m.Snapshot().Histograms[MetricOperationLatency][0])
}

func TestEngineOperationsRecordMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.EnableLatencyHistograms = true
	e := newMemoryEngine(t, cfg)
	ctx := context.Background()

	mustCreateUser(t, e, "ann", "ann@x.com", "pw1")
	_, err := e.CreateUser(ctx, UserCreate{Nickname: "ann", Email: "ann@x.com", Password: "pw1"})
	require.ErrorIs(t, err, ErrExists)
	sess, token := loginSession(t, e, "ann@x.com", "pw1")
	_, err = e.Logout(ctx, sess, token)
	require.NoError(t, err)

	snap := e.MetricsSnapshot()
	for id, want := range map[MetricID]uint64{
		MetricUserCreated:         1,
		MetricUserCreateDuplicate: 1,
		MetricLoginSuccess:        1,
		MetricCSRFIssued:          1,
		MetricLogout:              1,
	} {
		assert.Equal(t, want, snap.Counters[id], "metric %d", id)
	}

	var observed uint64
	for _, v := range snap.Histograms[MetricOperationLatency] {
		observed += v
	}
	assert.GreaterOrEqual(t, observed, uint64(3))
}
