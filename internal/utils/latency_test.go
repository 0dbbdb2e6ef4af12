package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(16)
	analyses := []time.Duration{
		12 * time.Millisecond,
		25 * time.Millisecond,
		31 * time.Millisecond,
		48 * time.Millisecond,
		260 * time.Millisecond, // slow path with LLM synthesis
	}
	for _, d := range analyses {
		tracker.Observe(d)
	}

	if tracker.Count() != len(analyses) {
		t.Fatalf("count = %d, want %d", tracker.Count(), len(analyses))
	}
	if p95 := tracker.Percentile(95); p95 < 48*time.Millisecond {
		t.Fatalf("p95 = %v, want at least 48ms", p95)
	}
	if p0 := tracker.Percentile(0); p0 != 12*time.Millisecond {
		t.Fatalf("p0 = %v, want fastest analysis", p0)
	}
	if p100 := tracker.Percentile(100); p100 != 260*time.Millisecond {
		t.Fatalf("p100 = %v, want slowest analysis", p100)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(8)
	if p95 := tracker.Percentile(95); p95 != 0 {
		t.Fatalf("p95 of empty tracker = %v, want 0", p95)
	}
}

func TestLatencyTrackerBoundedWindow(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("window size = %d, want 3", tracker.Count())
	}
	if p0 := tracker.Percentile(0); p0 != 7*time.Millisecond {
		t.Fatalf("oldest retained sample = %v, want 7ms", p0)
	}
}
