package observability

import (
	"testing"
	"time"
)

func TestPerfMonitorBoundedWindow(t *testing.T) {
	m := NewPerfMonitor(3)
	for i := 0; i < 5; i++ {
		m.Record(Sample{Status: 200, Latency: time.Duration(i+1) * time.Millisecond})
	}

	snap := m.Snapshot()
	if snap.Count != 3 || snap.Capacity != 3 {
		t.Fatalf("count/capacity = %d/%d, want 3/3", snap.Count, snap.Capacity)
	}
	// Oldest two samples were overwritten; the window holds 3ms, 4ms, 5ms.
	if snap.Samples[0].Latency != 3*time.Millisecond || snap.Samples[2].Latency != 5*time.Millisecond {
		t.Fatalf("unexpected window %+v", snap.Samples)
	}
	if snap.MaxLatency != 5*time.Millisecond {
		t.Fatalf("max = %s", snap.MaxLatency)
	}
	if snap.AvgLatency != 4*time.Millisecond {
		t.Fatalf("avg = %s", snap.AvgLatency)
	}
}

func TestPerfMonitorCountsErrors(t *testing.T) {
	m := NewPerfMonitor(10)
	m.Record(Sample{Status: 200})
	m.Record(Sample{Status: 404})
	m.Record(Sample{Status: 500})
	m.Record(Sample{Status: 503})

	snap := m.Snapshot()
	if snap.ErrorCount != 2 {
		t.Fatalf("error count = %d, want 2", snap.ErrorCount)
	}
	if snap.StatusCounts[404] != 1 || snap.StatusCounts[200] != 1 {
		t.Fatalf("status counts = %v", snap.StatusCounts)
	}
}

func TestPerfMonitorEmptySnapshot(t *testing.T) {
	m := NewPerfMonitor(0)
	snap := m.Snapshot()
	if snap.Count != 0 || snap.Capacity != defaultPerfCapacity {
		t.Fatalf("unexpected empty snapshot %+v", snap)
	}
}
