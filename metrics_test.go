package goSession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSessionCreated)

	if got := m.Value(MetricSessionCreated); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricSessionLoaded)
	m.Inc(MetricSessionLoaded)
	m.Add(MetricBulkDestroyed, 5)
	m.Add(MetricBulkDestroyed, 0)

	if got := m.Value(MetricSessionLoaded); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := m.Value(MetricBulkDestroyed); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestMetricsNilReceiverIsNoOp(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSessionCreated)
	m.Observe(MetricLoadLatency, time.Millisecond)
	if m.Enabled() || m.Value(MetricSessionCreated) != 0 {
		t.Fatal("nil metrics must report nothing")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricSessionTouched)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricSessionTouched); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricLoadLatency, d)
	}
	// Only the load latency has a histogram.
	m.Observe(MetricSessionCreated, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricLoadLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Histograms[MetricSessionCreated]; ok {
		t.Fatal("unexpected histogram for a counter metric")
	}

	var total time.Duration
	for _, d := range observations {
		total += d
	}
	if got := snap.HistogramSums[MetricLoadLatency]; got != total.Seconds() {
		t.Fatalf("expected sum %v, got %v", total.Seconds(), got)
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricTokenInvalid)
	m.Inc(MetricStorageFailure)
	m.Inc(MetricStorageFailure)
	m.Observe(MetricLoadLatency, 2*time.Millisecond)

	snap := m.Snapshot()
	if snap.Counters[MetricTokenInvalid] != 1 {
		t.Fatalf("expected MetricTokenInvalid=1 got %d", snap.Counters[MetricTokenInvalid])
	}
	if snap.Counters[MetricStorageFailure] != 2 {
		t.Fatalf("expected MetricStorageFailure=2 got %d", snap.Counters[MetricStorageFailure])
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("expected no histograms when latency histograms are disabled")
	}
	if len(snap.Counters) != int(metricIDCount)-1 {
		t.Fatalf("expected every counter in snapshot, got %d", len(snap.Counters))
	}
}
