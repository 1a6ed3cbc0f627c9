package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricSessionCreated counts sessions persisted by Create.
	MetricSessionCreated MetricID = iota
	// MetricSessionLoaded counts tokens resolved to a stored session.
	MetricSessionLoaded
	// MetricSessionMissing counts valid tokens whose session expired or was destroyed.
	MetricSessionMissing
	// MetricTokenInvalid counts tokens rejected by verification.
	MetricTokenInvalid
	// MetricNoToken counts requests that carried no token.
	MetricNoToken
	// MetricSessionTouched counts TTL refreshes.
	MetricSessionTouched
	// MetricSessionUpdated counts full data rewrites.
	MetricSessionUpdated
	// MetricSessionReloaded counts reloads from storage.
	MetricSessionReloaded
	// MetricSessionDestroyed counts single-session deletions.
	MetricSessionDestroyed
	// MetricBulkUpdated counts sessions rewritten by owner bulk updates.
	MetricBulkUpdated
	// MetricBulkDestroyed counts sessions removed by owner bulk deletes.
	MetricBulkDestroyed
	// MetricStorageFailure counts backend errors surfaced to callers.
	MetricStorageFailure
	// MetricSerializationFailure counts payloads that could not be encoded or decoded.
	MetricSerializationFailure
	// MetricLoadLatency is the histogram of Open round trips.
	MetricLoadLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets  [histBucketCount]uint64
	sumNanos uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. A nil or disabled *Metrics is a no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter. Histogram buckets
// are non-cumulative; HistogramSums are in seconds.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]float64
}

// NewMetrics allocates engine metrics for cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the load latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to a counter.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records a latency sample. Only [MetricLoadLatency] has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricLoadLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
	if d > 0 {
		atomic.AddUint64(&m.histograms[id].sumNanos, uint64(d))
	}
}

// Value returns the current value of one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies the current values. Disabled metrics return empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]float64{},
		}
	}

	s := MetricsSnapshot{
		Counters:      make(map[MetricID]uint64, int(metricIDCount)),
		Histograms:    make(map[MetricID][]uint64, 1),
		HistogramSums: make(map[MetricID]float64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricLoadLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		h := &m.histograms[MetricLoadLatency]
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&h.buckets[i])
		}
		s.Histograms[MetricLoadLatency] = buckets
		s.HistogramSums[MetricLoadLatency] = time.Duration(atomic.LoadUint64(&h.sumNanos)).Seconds()
	}

	return s
}

// Bucket upper bounds: 1ms 2ms 5ms 10ms 25ms 50ms 100ms +Inf.
func bucketIndex(d time.Duration) int {
	switch {
	case d <= time.Millisecond:
		return 0
	case d <= 2*time.Millisecond:
		return 1
	case d <= 5*time.Millisecond:
		return 2
	case d <= 10*time.Millisecond:
		return 3
	case d <= 25*time.Millisecond:
		return 4
	case d <= 50*time.Millisecond:
		return 5
	case d <= 100*time.Millisecond:
		return 6
	default:
		return 7
	}
}
