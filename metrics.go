package goCrud

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter. The zero-based values index a
// fixed array, so new IDs are appended before metricIDCount.
type MetricID uint16

const (
	// MetricUserCreated counts accounts created.
	MetricUserCreated MetricID = iota
	// MetricUserCreateDuplicate counts account creations refused because the
	// email is already reserved.
	MetricUserCreateDuplicate
	// MetricLoginSuccess counts logins that bound a session.
	MetricLoginSuccess
	// MetricLoginFailure counts logins refused for an unknown email or a
	// wrong password.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the throttle.
	MetricLoginRateLimited
	// MetricLogout counts cleared session cookies.
	MetricLogout
	// MetricUserUpdated counts successful profile updates.
	MetricUserUpdated
	// MetricUserDeleted counts deleted accounts.
	MetricUserDeleted
	// MetricCSRFIssued counts CSRF tokens issued.
	MetricCSRFIssued
	// MetricCSRFRejected counts mutating requests refused for a bad token.
	MetricCSRFRejected
	// MetricGroupCreated counts groups created.
	MetricGroupCreated
	// MetricGroupMemberAdded counts successful membership additions.
	MetricGroupMemberAdded
	// MetricGroupDeleted counts deleted groups.
	MetricGroupDeleted
	// MetricGrantCreated counts authorization grants created.
	MetricGrantCreated
	// MetricGrantUpdated counts authorization grants updated.
	MetricGrantUpdated
	// MetricGrantDeleted counts authorization grants deleted.
	MetricGrantDeleted
	// MetricCASConflict counts writes lost to a concurrent change.
	MetricCASConflict
	// MetricStoreUnavailable counts operations failed by the backing store.
	MetricStoreUnavailable
	// MetricOperationLatency is the latency histogram of engine operations.
	MetricOperationLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the first seven latency
// buckets. Anything slower lands in the last one.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

// counter sits on its own cache line so hot counters do not false-share.
type counter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free counters and an optional latency histogram. A nil
// or disabled Metrics ignores every write.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counter
	latency       [histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool { return m != nil && m.enableLatency }

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m.Enabled() && id < metricIDCount {
		m.counters[id].Add(1)
	}
}

// Observe records d in the latency histogram. Only MetricOperationLatency
// carries one; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if id != MetricOperationLatency || !m.LatencyEnabled() {
		return
	}
	m.latency[bucketIndex(d)].Add(1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter and, when enabled, the latency histogram.
// A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := range metricIDCount {
		s.Counters[id] = m.counters[id].Load()
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.latency[i].Load()
		}
		s.Histograms[MetricOperationLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
