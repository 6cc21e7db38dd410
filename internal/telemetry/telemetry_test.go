package telemetry

import (
	"testing"
	"time"
)

func TestAggregatorRecordsReloadStats(t *testing.T) {
	agg := NewAggregator(nil, nil)

	agg.recordReload(ReloadEvent{Type: EventReloadCompleted, Fingerprint: "abc", LocationCount: 100, DurationMs: 200, Timestamp: time.Unix(1000, 0)})
	agg.recordReload(ReloadEvent{Type: EventReloadFailed, DurationMs: 50})
	agg.recordReload(ReloadEvent{Type: EventReloadCompleted, Fingerprint: "def", LocationCount: 150, DurationMs: 100, Timestamp: time.Unix(2000, 0)})

	stats := agg.ReloadStats()
	if stats.TotalReloads != 3 {
		t.Fatalf("TotalReloads = %d, want 3", stats.TotalReloads)
	}
	if stats.FailedReloads != 1 {
		t.Fatalf("FailedReloads = %d, want 1", stats.FailedReloads)
	}
	if stats.LastFingerprint != "def" || stats.LastLocationCount != 150 {
		t.Fatalf("last reload = %q/%d, want def/150", stats.LastFingerprint, stats.LastLocationCount)
	}
	wantAvg := (200.0 + 50.0 + 100.0) / 3.0
	if stats.AvgDurationMs != wantAvg {
		t.Fatalf("AvgDurationMs = %v, want %v", stats.AvgDurationMs, wantAvg)
	}
}

func TestAggregatorRecordsQueryStats(t *testing.T) {
	agg := NewAggregator(nil, nil)

	agg.recordQuery(QueryEvent{Operation: "search", LatencyMs: 10, CacheHit: true})
	agg.recordQuery(QueryEvent{Operation: "search", LatencyMs: 20})
	agg.recordQuery(QueryEvent{Operation: "nearest", LatencyMs: 5})

	stats := agg.QueryStats()
	if stats.TotalSampled != 3 {
		t.Fatalf("TotalSampled = %d, want 3", stats.TotalSampled)
	}
	if stats.CacheHits != 1 {
		t.Fatalf("CacheHits = %d, want 1", stats.CacheHits)
	}
	if len(stats.ByOperation) != 2 || stats.ByOperation[0].Operation != "search" || stats.ByOperation[0].Count != 2 {
		t.Fatalf("ByOperation = %+v, want search:2 first", stats.ByOperation)
	}
}

func TestCollectorShouldSampleClampsRate(t *testing.T) {
	always := NewCollector(nil, nil, 4, 2.0)
	if !always.shouldSample() {
		t.Fatalf("sampleRate clamped to 1 should always sample")
	}

	never := NewCollector(nil, nil, 4, -1.0)
	if never.shouldSample() {
		t.Fatalf("sampleRate clamped to 0 should never sample")
	}
}

func TestCollectorEnqueueDropsOnFullBuffer(t *testing.T) {
	c := NewCollector(nil, nil, 1, 1.0)
	c.TrackReload(ReloadEvent{Type: EventReloadCompleted})
	if len(c.eventCh) != 1 {
		t.Fatalf("eventCh len = %d, want 1 after first enqueue", len(c.eventCh))
	}

	c.TrackReload(ReloadEvent{Type: EventReloadCompleted})
	if len(c.eventCh) != 1 {
		t.Fatalf("eventCh len = %d, want still 1 (second event dropped, buffer full)", len(c.eventCh))
	}
}
