package download

import (
	"testing"
	"time"
)

func TestStatsSummary(t *testing.T) {
	s := NewStats()

	if sum := s.Summary(); sum.Count != 0 || sum.P50 != 0 {
		t.Errorf("empty summary = %+v", sum)
	}

	for i := 1; i <= 100; i++ {
		s.Add(time.Duration(i)*time.Millisecond, 10)
	}

	sum := s.Summary()
	if sum.Count != 100 {
		t.Errorf("Count = %d, want 100", sum.Count)
	}
	if s.Bytes() != 1000 {
		t.Errorf("Bytes() = %d, want 1000", s.Bytes())
	}
	if sum.Max != 100*time.Millisecond {
		t.Errorf("Max = %v, want 100ms", sum.Max)
	}

	// DDSketch guarantees 1% relative accuracy.
	checks := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"p50", sum.P50, 50 * time.Millisecond},
		{"p90", sum.P90, 90 * time.Millisecond},
		{"p99", sum.P99, 99 * time.Millisecond},
	}
	for _, c := range checks {
		lo := time.Duration(float64(c.want) * 0.97)
		hi := time.Duration(float64(c.want) * 1.03)
		if c.got < lo || c.got > hi {
			t.Errorf("%s = %v, want about %v", c.name, c.got, c.want)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindFetch:      "fetch",
		KindFilesystem: "filesystem",
		KindInvalidKey: "invalid_key",
		Kind(9):        "Kind(9)",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %s, want %s", int(k), got, want)
		}
	}
}
