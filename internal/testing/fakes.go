package testing

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/seisfetch/internal/blob"
	"github.com/xtxerr/seisfetch/internal/errors"
)

// =============================================================================
// Concurrency Probe
// =============================================================================

// ConcurrencyProbe records how many callers are inside a section at once.
type ConcurrencyProbe struct {
	current atomic.Int64
	peak    atomic.Int64
}

// Enter marks one caller entering the section.
func (p *ConcurrencyProbe) Enter() {
	n := p.current.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}

// Leave marks one caller leaving the section.
func (p *ConcurrencyProbe) Leave() {
	p.current.Add(-1)
}

// Current returns the number of callers inside the section.
func (p *ConcurrencyProbe) Current() int64 {
	return p.current.Load()
}

// Peak returns the highest number of simultaneous callers observed.
func (p *ConcurrencyProbe) Peak() int64 {
	return p.peak.Load()
}

// =============================================================================
// Fake Blob Store
// =============================================================================

// FakeStore is an in-memory blob.Store.
//
// Objects are written to dest with blob.WriteFile, so callers observe the
// same filesystem behavior as with a real store. Per-key errors and
// panics can be queued to exercise failure handling.
type FakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	errs    map[string][]error
	panics  map[string]any
	calls   map[string]int
	delay   time.Duration
	gate    chan struct{}

	probe ConcurrencyProbe
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		objects: make(map[string][]byte),
		errs:    make(map[string][]error),
		panics:  make(map[string]any),
		calls:   make(map[string]int),
	}
}

// Name implements blob.Store.
func (*FakeStore) Name() string {
	return "fake"
}

// Put stores data under key.
func (s *FakeStore) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

// FailWith queues errors for key. Each Fetch of key pops one error until
// the queue is empty.
func (s *FakeStore) FailWith(key string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[key] = append(s.errs[key], errs...)
}

// PanicOn makes every Fetch of key panic with v.
func (s *FakeStore) PanicOn(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panics[key] = v
}

// SetDelay makes every Fetch sleep for d before returning.
func (s *FakeStore) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Hold makes every Fetch block until Release is called.
func (s *FakeStore) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
}

// Release unblocks fetches waiting after Hold.
func (s *FakeStore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// Calls returns the number of Fetch calls for key.
func (s *FakeStore) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// Probe returns the probe tracking concurrent Fetch calls.
func (s *FakeStore) Probe() *ConcurrencyProbe {
	return &s.probe
}

// Fetch implements blob.Store.
func (s *FakeStore) Fetch(ctx context.Context, key, dest string) (int64, error) {
	s.probe.Enter()
	defer s.probe.Leave()

	s.mu.Lock()
	s.calls[key]++
	var queued error
	if q := s.errs[key]; len(q) > 0 {
		queued, s.errs[key] = q[0], q[1:]
	}
	panicValue, panics := s.panics[key]
	data, ok := s.objects[key]
	delay, gate := s.delay, s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	if panics {
		panic(panicValue)
	}
	if queued != nil {
		return 0, queued
	}
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, errors.ErrObjectNotFound)
	}

	return blob.WriteFile(dest, bytes.NewReader(data), 0o644)
}

// Verify interface compliance.
var _ blob.Store = (*FakeStore)(nil)
