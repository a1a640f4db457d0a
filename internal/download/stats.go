package download

import (
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// LatencySummary holds fetch latency percentiles for successful jobs.
type LatencySummary struct {
	Count int64
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// Stats accumulates per-job fetch latency and byte counts.
//
// Latencies are tracked in a DDSketch with 1% relative accuracy, so
// memory stays bounded regardless of job count.
type Stats struct {
	mu     sync.Mutex
	sketch *ddsketch.DDSketch
	count  int64
	bytes  int64
	max    time.Duration
}

// NewStats creates an empty Stats.
func NewStats() *Stats {
	sketch, _ := ddsketch.NewDefaultDDSketch(0.01)
	return &Stats{sketch: sketch}
}

// Add records one successful fetch.
func (s *Stats) Add(latency time.Duration, bytes int64) {
	if latency < 0 {
		latency = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sketch != nil {
		_ = s.sketch.Add(float64(latency) / float64(time.Millisecond))
	}
	s.count++
	s.bytes += bytes
	if latency > s.max {
		s.max = latency
	}
}

// Bytes returns the total bytes recorded.
func (s *Stats) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// Summary returns the latency percentiles recorded so far.
func (s *Stats) Summary() LatencySummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := LatencySummary{Count: s.count, Max: s.max}
	if s.count == 0 || s.sketch == nil {
		return sum
	}

	sum.P50 = s.quantile(0.50)
	sum.P90 = s.quantile(0.90)
	sum.P99 = s.quantile(0.99)
	return sum
}

func (s *Stats) quantile(q float64) time.Duration {
	v, err := s.sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0
	}
	return time.Duration(v * float64(time.Millisecond))
}
