// Package testing provides test utilities for seisfetch.
//
// It carries the error channel pattern for asserting from goroutines, a
// fake blob store with failure injection and a probe that records peak
// concurrency.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Error Channel Pattern
// =============================================================================

// GoroutineTest collects errors from goroutines started by a test.
//
// t.Fatal only stops the goroutine that calls it, so functions started
// with Go or GoWithContext return errors instead and Wait reports them on
// the test goroutine:
//
//	gt := testing.NewGoroutineTestWithTimeout(t, 5*time.Second)
//	gt.GoWithContext(func(ctx context.Context) error {
//	    _, err := d.Dispatch(ctx, dir, keys)
//	    return err
//	})
//	gt.Cancel()
//	gt.Wait()
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGoroutineTestWithTimeout creates a GoroutineTest whose context ends
// after timeout or on Cancel.
func NewGoroutineTestWithTimeout(t *testing.T, timeout time.Duration) *GoroutineTest {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return &GoroutineTest{
		t:      t,
		errors: make(chan error, 100),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go runs fn in a goroutine and records its error.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.GoWithContext(func(context.Context) error { return fn() })
}

// GoWithContext runs fn in a goroutine with the test context and records
// its error. Errors returned after Cancel are still reported.
func (gt *GoroutineTest) GoWithContext(fn func(ctx context.Context) error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(gt.ctx); err != nil {
			gt.record(err)
		}
	}()
}

func (gt *GoroutineTest) record(err error) {
	select {
	case gt.errors <- err:
	default:
		gt.t.Logf("error channel full, dropping error: %v", err)
	}
}

// Cancel ends the test context.
func (gt *GoroutineTest) Cancel() {
	gt.cancel()
}

// Wait blocks until every goroutine returned and fails the test if any
// of them returned an error. Call it exactly once.
func (gt *GoroutineTest) Wait() {
	gt.wg.Wait()
	gt.cancel()
	close(gt.errors)

	var errs []error
	for err := range gt.errors {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return
	}

	for i, err := range errs {
		gt.t.Errorf("goroutine error [%d/%d]: %v", i+1, len(errs), err)
	}
	gt.t.FailNow()
}

// =============================================================================
// Polling Helper
// =============================================================================

// Eventually polls condition every interval until it holds or timeout
// passes.
func Eventually(timeout, interval time.Duration, condition func() bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return nil
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("condition not met within %v", timeout)
}
