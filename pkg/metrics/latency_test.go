package metrics

import (
	"testing"
	"time"
)

func TestLatencyTrackerStats(t *testing.T) {
	lt := NewLatencyTracker(100)

	for i := 1; i <= 100; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	stats := lt.Stats()
	if stats.Samples != 100 {
		t.Fatalf("samples = %d, want 100", stats.Samples)
	}
	if stats.Min != 1*time.Millisecond {
		t.Errorf("min = %v, want 1ms", stats.Min)
	}
	if stats.Max != 100*time.Millisecond {
		t.Errorf("max = %v, want 100ms", stats.Max)
	}
	if stats.P50 < 45*time.Millisecond || stats.P50 > 55*time.Millisecond {
		t.Errorf("p50 = %v, want around 50ms", stats.P50)
	}
	if stats.P99 < 95*time.Millisecond {
		t.Errorf("p99 = %v, want near the top of the distribution", stats.P99)
	}
}

func TestLatencyTrackerWindowSlides(t *testing.T) {
	lt := NewLatencyTracker(10)

	for i := 0; i < 25; i++ {
		lt.Record(time.Millisecond)
	}

	if c := lt.Count(); c > 10 {
		t.Errorf("count = %d, want at most the window size", c)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	lt := NewLatencyTracker(10)
	if stats := lt.Stats(); stats.Samples != 0 || stats.Count != 0 {
		t.Errorf("empty tracker stats = %+v, want zero value", stats)
	}
}
