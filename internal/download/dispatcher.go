package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/blob"
	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/logging"
)

// Options configures a Dispatcher.
type Options struct {
	// Workers fixes the pool size. Zero derives it from WorkersPerCPU.
	Workers       int
	WorkersPerCPU int
	MaxWorkers    int

	// Retries is the number of additional attempts after a retriable
	// fetch failure.
	Retries        int
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	DirPerm os.FileMode

	// Progress receives one event per terminal job. Nil discards them.
	Progress Progress
}

// DefaultOptions returns options populated from the config defaults.
func DefaultOptions() Options {
	return Options{
		WorkersPerCPU:  config.DefaultWorkersPerCPU,
		MaxWorkers:     config.DefaultMaxWorkers,
		Retries:        config.DefaultFetchRetries,
		BackoffInitial: config.DefaultBackoffInitial,
		BackoffMax:     config.DefaultBackoffMax,
		DirPerm:        config.DefaultDirPerm,
	}
}

// PoolSize returns the number of concurrent fetches for o. The result is
// always at least 1.
func PoolSize(o Options) int {
	n := o.Workers
	if n <= 0 {
		perCPU := o.WorkersPerCPU
		if perCPU <= 0 {
			perCPU = 1
		}
		n = runtime.NumCPU() * perCPU
		if o.MaxWorkers > 0 && n > o.MaxWorkers {
			n = o.MaxWorkers
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Dispatcher downloads keys from a blob store with bounded concurrency.
type Dispatcher struct {
	store blob.Store
	opts  Options
}

// New creates a Dispatcher fetching from store.
func New(store blob.Store, opts Options) *Dispatcher {
	if opts.Progress == nil {
		opts.Progress = Nop{}
	}
	if opts.DirPerm == 0 {
		opts.DirPerm = config.DefaultDirPerm
	}
	return &Dispatcher{
		store: store,
		opts:  opts,
	}
}

// Plan expands outDir and derives the jobs for keys without touching the
// filesystem. Keys that cannot be mapped are returned as failures.
func (d *Dispatcher) Plan(outDir string, keys []string) ([]Job, []Failure, error) {
	dir, err := ExpandHome(outDir)
	if err != nil {
		return nil, nil, err
	}
	dir = filepath.Clean(dir)

	jobs, rejected := Derive(dir, keys)
	return jobs, rejected, nil
}

// taskContext is shared read-only by every worker of one dispatch.
type taskContext struct {
	store    blob.Store
	opts     Options
	progress Progress
	stats    *Stats
	total    int
	done     *atomic.Int64
	logger   *slog.Logger
}

// outcome is the terminal state of one job.
type outcome struct {
	job      Job
	bytes    int64
	attempts int
	err      error
}

// Dispatch downloads every key below outDir and returns once all jobs are
// terminal. Per-job failures are reported in the Report; the returned
// error is non-nil only when no job could be attempted at all.
func (d *Dispatcher) Dispatch(ctx context.Context, outDir string, keys []string) (*Report, error) {
	start := time.Now()
	logger := logging.ComponentContext(ctx, "download")

	jobs, rejected, err := d.Plan(outDir, keys)
	if err != nil {
		return nil, err
	}

	workers := PoolSize(d.opts)
	report := &Report{Total: len(keys), Workers: workers}

	tc := taskContext{
		store:    d.store,
		opts:     d.opts,
		progress: d.opts.Progress,
		stats:    NewStats(),
		total:    len(keys),
		done:     new(atomic.Int64),
		logger:   logger,
	}

	logger.Info("dispatch started",
		"jobs", len(keys),
		"workers", workers,
		"store", d.store.Name())

	tc.progress.Start(len(keys))

	for _, f := range rejected {
		report.Failures = append(report.Failures, f)
		tc.emit(f.Job, 0, 0, f.Err)
	}

	dirErrs := PrepareDirs(jobs, d.opts.DirPerm)

	runnable := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if derr, ok := dirErrs[filepath.Dir(j.Dest)]; ok {
			report.Failures = append(report.Failures, Failure{Job: j, Kind: KindFilesystem, Err: derr})
			tc.emit(j, 0, 0, derr)
			continue
		}
		runnable = append(runnable, j)
	}

	results := make([]outcome, len(runnable))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range runnable {
		g.Go(func() error {
			results[i] = runTask(ctx, tc, job)
			return nil
		})
	}
	_ = g.Wait()

	tc.progress.Finish()

	for _, r := range results {
		if r.err != nil {
			report.Failures = append(report.Failures, Failure{
				Job:      r.job,
				Kind:     kindOf(r.err),
				Err:      r.err,
				Attempts: r.attempts,
			})
			continue
		}
		report.Succeeded++
	}
	report.sortFailures()

	report.Bytes = tc.stats.Bytes()
	report.Latency = tc.stats.Summary()
	report.Elapsed = time.Since(start)

	logger.Info("dispatch completed",
		"succeeded", report.Succeeded,
		"failed", report.Failed(),
		"bytes", report.Bytes,
		"p50", report.Latency.P50,
		"p99", report.Latency.P99,
		"elapsed", report.Elapsed)

	return report, nil
}

// runTask fetches one job. A panic in the store is converted into a
// failed outcome so the remaining jobs keep running.
func runTask(ctx context.Context, tc taskContext, job Job) (out outcome) {
	start := time.Now()
	out.job = job

	defer func() {
		if r := recover(); r != nil {
			tc.logger.Error("panic in fetch",
				"key", job.Key,
				"panic", r)
			out.err = fmt.Errorf("%s: %w: %v", job.Key, errors.ErrPanic, r)
		}

		elapsed := time.Since(start)
		if out.err == nil {
			tc.stats.Add(elapsed, out.bytes)
		}
		tc.emit(job, out.bytes, elapsed, out.err)
	}()

	out.bytes, out.attempts, out.err = fetchWithRetry(ctx, tc, job)
	return out
}

// fetchWithRetry retries retriable failures with exponential backoff.
func fetchWithRetry(ctx context.Context, tc taskContext, job Job) (int64, int, error) {
	attempts := 0

	op := func() (int64, error) {
		attempts++
		n, err := tc.store.Fetch(ctx, job.Key, job.Dest)
		if err != nil && !errors.IsRetriable(err) {
			return n, backoff.Permanent(err)
		}
		return n, err
	}

	notify := func(err error, wait time.Duration) {
		tc.logger.Debug("retrying fetch",
			"key", job.Key,
			"attempt", attempts,
			"wait", wait,
			"error", err)
	}

	n, err := backoff.RetryNotifyWithData(op, newBackOff(ctx, tc.opts), notify)
	return n, attempts, err
}

func newBackOff(ctx context.Context, o Options) backoff.BackOff {
	if o.Retries <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}

	initial := o.BackoffInitial
	if initial <= 0 {
		initial = config.DefaultBackoffInitial
	}
	maxWait := o.BackoffMax
	if maxWait < initial {
		maxWait = initial
	}

	eb := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initial),
		backoff.WithMaxInterval(maxWait),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(o.Retries)), ctx)
}

func (tc taskContext) emit(job Job, bytes int64, elapsed time.Duration, err error) {
	done := tc.done.Add(1)
	tc.progress.Update(Event{
		Done:    int(done),
		Total:   tc.total,
		Job:     job,
		Bytes:   bytes,
		Err:     err,
		Elapsed: elapsed,
	})
}
