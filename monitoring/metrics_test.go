package monitoring

import (
	"testing"
	"time"
)

func TestMetricsCounters(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordRequest("model", 20*time.Millisecond)
	metrics.RecordRequest("rules", 10*time.Millisecond)
	metrics.RecordRequest("model", 30*time.Millisecond)
	metrics.RecordCacheHit()
	metrics.RecordFailure()

	snap := metrics.Snapshot()
	if snap.Requests != 3 {
		t.Fatalf("expected 3 requests, got %d", snap.Requests)
	}
	if snap.ModelResults != 2 || snap.RulesResults != 1 {
		t.Fatalf("unexpected source counters: model=%d rules=%d",
			snap.ModelResults, snap.RulesResults)
	}
	if snap.CacheHits != 1 || snap.Failures != 1 {
		t.Fatalf("unexpected cache/failure counters: %+v", snap)
	}
	if snap.AvgLatencyMS <= 0 {
		t.Fatalf("expected positive average latency, got %f", snap.AvgLatencyMS)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordRequest("model", time.Millisecond)

	snap := metrics.Snapshot()
	snap.Requests = 99

	if metrics.Snapshot().Requests != 1 {
		t.Fatal("snapshot mutation leaked into metrics")
	}
}
