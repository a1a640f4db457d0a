package download

import (
	"fmt"
	"sort"
	"time"

	"github.com/xtxerr/seisfetch/internal/errors"
)

// Kind classifies a job failure.
type Kind int

const (
	// KindFetch is a blob store failure: network, missing key, short body.
	KindFetch Kind = iota
	// KindFilesystem is a local failure: directory creation, disk write.
	KindFilesystem
	// KindInvalidKey marks a key that cannot be mapped below the output
	// directory.
	KindInvalidKey
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindFilesystem:
		return "filesystem"
	case KindInvalidKey:
		return "invalid_key"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// kindOf derives the failure kind from an error chain.
func kindOf(err error) Kind {
	switch {
	case errors.IsFilesystemError(err):
		return KindFilesystem
	case errors.Is(err, errors.ErrInvalidKey):
		return KindInvalidKey
	default:
		return KindFetch
	}
}

// Failure is one job that did not complete.
type Failure struct {
	Job      Job
	Kind     Kind
	Err      error
	Attempts int
}

// Report summarizes a dispatch.
type Report struct {
	Total     int
	Succeeded int
	Failures  []Failure
	Bytes     int64
	Workers   int
	Elapsed   time.Duration
	Latency   LatencySummary
}

// Failed returns the number of failed jobs.
func (r *Report) Failed() int {
	return len(r.Failures)
}

// FailedKeys returns the keys of failed jobs in input order.
func (r *Report) FailedKeys() []string {
	keys := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		keys[i] = f.Job.Key
	}
	return keys
}

// Err returns nil when every job succeeded. Otherwise it returns an error
// wrapping errors.ErrFilesystem when only local failures occurred and
// errors.ErrFetch in all other cases.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}

	sentinel := errors.ErrFilesystem
	for _, f := range r.Failures {
		if f.Kind != KindFilesystem {
			sentinel = errors.ErrFetch
			break
		}
	}

	return fmt.Errorf("%d of %d downloads failed: %w", len(r.Failures), r.Total, sentinel)
}

func (r *Report) sortFailures() {
	sort.Slice(r.Failures, func(i, j int) bool {
		return r.Failures[i].Job.Index < r.Failures[j].Job.Index
	})
}
