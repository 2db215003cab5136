package rotauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts refresh tokens presented after their family had
	// already rotated past them, including lost compare-and-swap races.
	MetricRefreshReuseDetected
	MetricFamilyRevokedOnReuse
	MetricLogout
	MetricRegistryUnavailable
	MetricSessionCreated
	MetricValidateLatency
	MetricRefreshLatency
	metricIDCount
)

// HistogramBucketCount is the number of latency buckets, the last one being +Inf.
const HistogramBucketCount = 8

const cacheLineSize = 64

// histogramBounds are the inclusive upper bounds of the finite buckets.
var histogramBounds = [HistogramBucketCount - 1]time.Duration{
	100 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	250 * time.Millisecond,
}

type metricHistogram struct {
	buckets [HistogramBucketCount]uint64
	sumNano uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// HistogramSnapshot is a point-in-time copy of one latency histogram. Buckets are
// non-cumulative.
type HistogramSnapshot struct {
	Buckets []uint64
	Sum     time.Duration
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID]HistogramSnapshot
}

// NewMetrics creates a metrics set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in histogram id. Only latency metrics accept observations.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !isHistogram(id) {
		return
	}
	if d < 0 {
		d = 0
	}
	h := &m.histograms[id]
	atomic.AddUint64(&h.buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&h.sumNano, uint64(d))
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, the latency histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID]HistogramSnapshot{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricValidateLatency, MetricRefreshLatency} {
			h := &m.histograms[id]
			buckets := make([]uint64, HistogramBucketCount)
			for i := range buckets {
				buckets[i] = atomic.LoadUint64(&h.buckets[i])
			}
			s.Histograms[id] = HistogramSnapshot{
				Buckets: buckets,
				Sum:     time.Duration(atomic.LoadUint64(&h.sumNano)),
			}
		}
	}
	return s
}

// HistogramBounds returns the finite bucket upper bounds.
func HistogramBounds() []time.Duration {
	out := make([]time.Duration, len(histogramBounds))
	copy(out, histogramBounds[:])
	return out
}

func isHistogram(id MetricID) bool {
	return id == MetricValidateLatency || id == MetricRefreshLatency
}

func bucketIndex(d time.Duration) int {
	for i, bound := range histogramBounds {
		if d <= bound {
			return i
		}
	}
	return HistogramBucketCount - 1
}
