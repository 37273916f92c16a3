package observability

import (
	"sort"
	"sync"
	"time"
)

const defaultPerfCapacity = 512

// Sample is one recorded request timing.
type Sample struct {
	Method  string        `json:"method"`
	Route   string        `json:"route"`
	Status  int           `json:"status"`
	Latency time.Duration `json:"latencyNs"`
	Bytes   int64         `json:"bytes"`
	At      time.Time     `json:"at"`
}

// PerfMonitor keeps the most recent request timings in a fixed-size ring.
// Older samples are overwritten once the ring is full, so memory stays bounded
// no matter how long the process runs.
type PerfMonitor struct {
	mu      sync.Mutex
	samples []Sample
	next    int
	filled  bool
}

// NewPerfMonitor creates a monitor retaining up to capacity samples. A
// non-positive capacity falls back to the default.
func NewPerfMonitor(capacity int) *PerfMonitor {
	if capacity <= 0 {
		capacity = defaultPerfCapacity
	}
	return &PerfMonitor{samples: make([]Sample, capacity)}
}

// Record stores a sample, overwriting the oldest once the ring is full.
func (m *PerfMonitor) Record(sample Sample) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[m.next] = sample
	m.next++
	if m.next == len(m.samples) {
		m.next = 0
		m.filled = true
	}
}

// PerfSnapshot summarises the retained window.
type PerfSnapshot struct {
	Count        int           `json:"count"`
	Capacity     int           `json:"capacity"`
	AvgLatency   time.Duration `json:"avgLatencyNs"`
	P95Latency   time.Duration `json:"p95LatencyNs"`
	MaxLatency   time.Duration `json:"maxLatencyNs"`
	ErrorCount   int           `json:"errorCount"`
	StatusCounts map[int]int   `json:"statusCounts"`
	Samples      []Sample      `json:"samples"`
}

// Snapshot returns aggregate statistics plus the raw window, oldest first.
func (m *PerfMonitor) Snapshot() PerfSnapshot {
	if m == nil {
		return PerfSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var window []Sample
	if m.filled {
		window = make([]Sample, 0, len(m.samples))
		window = append(window, m.samples[m.next:]...)
		window = append(window, m.samples[:m.next]...)
	} else {
		window = make([]Sample, m.next)
		copy(window, m.samples[:m.next])
	}

	snapshot := PerfSnapshot{
		Count:        len(window),
		Capacity:     len(m.samples),
		StatusCounts: make(map[int]int),
		Samples:      window,
	}
	if len(window) == 0 {
		return snapshot
	}

	latencies := make([]time.Duration, 0, len(window))
	var total time.Duration
	for _, sample := range window {
		latencies = append(latencies, sample.Latency)
		total += sample.Latency
		snapshot.StatusCounts[sample.Status]++
		if sample.Status >= 500 {
			snapshot.ErrorCount++
		}
		if sample.Latency > snapshot.MaxLatency {
			snapshot.MaxLatency = sample.Latency
		}
	}
	snapshot.AvgLatency = total / time.Duration(len(window))

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	idx := (len(latencies) * 95) / 100
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	snapshot.P95Latency = latencies[idx]

	return snapshot
}
