package llm

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	durationMs int64
	failed     bool
}

// StatsSnapshot aggregates model call latencies inside the window.
type StatsSnapshot struct {
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// LLMStats keeps a rolling window of call samples.
type LLMStats struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
}

func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{samples: make([]sample, 0, 256), window: window}
}

// Record adds a successful call.
func (s *LLMStats) Record(durationMs int64) {
	s.add(durationMs, false)
}

// RecordFailure adds a call that returned an error.
func (s *LLMStats) RecordFailure(durationMs int64) {
	s.add(durationMs, true)
}

func (s *LLMStats) add(durationMs int64, failed bool) {
	durationMs = max(durationMs, 0)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropBefore(now.Add(-s.window))
	s.samples = append(s.samples, sample{at: now, durationMs: durationMs, failed: failed})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropBefore(now.Add(-s.window))
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	var snap StatsSnapshot
	values := make([]int64, len(s.samples))
	var sum int64
	for i, sm := range s.samples {
		values[i] = sm.durationMs
		sum += sm.durationMs
		if sm.failed {
			snap.Failures++
		}
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *LLMStats) dropBefore(cutoff time.Time) {
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[n-1])
	}
	rank := float64(n-1) * pct / 100
	lo := int(rank)
	if lo+1 >= n {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + float64(sorted[lo+1]-sorted[lo])*frac
}
