package testing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/seisfetch/internal/errors"
)

func TestGoroutineTestBasic(t *testing.T) {
	gt := NewGoroutineTestWithTimeout(t, 5*time.Second)
	defer gt.Wait()

	for i := 0; i < 5; i++ {
		gt.Go(func() error {
			time.Sleep(5 * time.Millisecond)
			if i < 0 {
				return errors.New("unexpected negative index")
			}
			return nil
		})
	}
}

func TestGoroutineTestCancel(t *testing.T) {
	gt := NewGoroutineTestWithTimeout(t, 5*time.Second)

	started := make(chan struct{})
	stopped := make(chan error, 1)
	gt.GoWithContext(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		stopped <- ctx.Err()
		return nil
	})

	<-started
	gt.Cancel()
	gt.Wait()

	if err := <-stopped; !errors.Is(err, context.Canceled) {
		t.Errorf("context error = %v, want context.Canceled", err)
	}
}

func TestEventually(t *testing.T) {
	start := time.Now()
	err := Eventually(time.Second, 5*time.Millisecond, func() bool {
		return time.Since(start) > 20*time.Millisecond
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := Eventually(20*time.Millisecond, 5*time.Millisecond, func() bool { return false }); err == nil {
		t.Error("expected error for unmet condition")
	}
}

func TestConcurrencyProbe(t *testing.T) {
	var p ConcurrencyProbe
	p.Enter()
	p.Enter()
	p.Leave()
	p.Enter()
	p.Leave()
	p.Leave()

	if p.Current() != 0 {
		t.Errorf("Current() = %d, want 0", p.Current())
	}
	if p.Peak() != 2 {
		t.Errorf("Peak() = %d, want 2", p.Peak())
	}
}

func TestFakeStoreFetch(t *testing.T) {
	dir := t.TempDir()
	s := NewFakeStore()
	s.Put("a/b.ms", []byte("data"))
	s.FailWith("a/b.ms", errors.ErrTimeout)

	dest := filepath.Join(dir, "b.ms")

	if _, err := s.Fetch(context.Background(), "a/b.ms", dest); !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("first fetch error = %v, want ErrTimeout", err)
	}

	n, err := s.Fetch(context.Background(), "a/b.ms", dest)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if n != 4 {
		t.Errorf("bytes = %d, want 4", n)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q, want %q", got, "data")
	}
	if s.Calls("a/b.ms") != 2 {
		t.Errorf("Calls() = %d, want 2", s.Calls("a/b.ms"))
	}
}

func TestFakeStoreMissingKey(t *testing.T) {
	s := NewFakeStore()
	_, err := s.Fetch(context.Background(), "missing", filepath.Join(t.TempDir(), "x"))
	if !errors.Is(err, errors.ErrObjectNotFound) {
		t.Errorf("error = %v, want ErrObjectNotFound", err)
	}
}

func TestFakeStoreHold(t *testing.T) {
	s := NewFakeStore()
	s.Put("k", []byte("x"))
	s.Hold()

	gt := NewGoroutineTestWithTimeout(t, 5*time.Second)
	defer gt.Wait()
	defer s.Release()

	dest := filepath.Join(t.TempDir(), "k")
	gt.Go(func() error {
		_, err := s.Fetch(context.Background(), "k", dest)
		return err
	})

	if err := Eventually(time.Second, time.Millisecond, func() bool { return s.Probe().Current() == 1 }); err != nil {
		t.Fatal(err)
	}
	s.Release()
}
