// Package store owns the rate-limit state shared across requests. The table
// is behind the RateLimitStore interface so the process-wide map is an
// injected component rather than ambient global state, and so a distributed
// store can be swapped in for multi-instance deployments.
package store

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of a rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// RateLimitStore bounds request volume per identity per time window.
//
// The window is a fixed window with lazy reset: the first request from an
// identity opens a window of the configured length, requests past the
// maximum are denied without extending it, and a request after expiry opens
// a fresh window. A burst of up to twice the maximum is therefore possible
// across a window boundary; this mirrors the deployed behavior and is kept
// deliberately.
type RateLimitStore interface {
	// Check atomically performs the check-and-increment for one identity.
	// Denial is a normal outcome, not an error.
	Check(ctx context.Context, identity string, maxRequests int, window time.Duration) (Result, error)
	// Sweep removes expired entries to bound memory growth.
	Sweep(ctx context.Context) error
}

type memoryEntry struct {
	count     int
	resetTime time.Time
}

// MemoryStore is the in-process RateLimitStore. State is volatile and lost
// on restart; limits are per instance only.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	// now is replaceable in tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory rate-limit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Check implements RateLimitStore. The check-and-increment is atomic with
// respect to concurrent requests from the same identity.
func (s *MemoryStore) Check(_ context.Context, identity string, maxRequests int, window time.Duration) (Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[identity]
	if ok && entry.resetTime.Before(now) {
		// Lazy reset: the old window has passed.
		delete(s.entries, identity)
		ok = false
	}
	if !ok {
		entry = &memoryEntry{count: 0, resetTime: now.Add(window)}
		s.entries[identity] = entry
	}

	if entry.count >= maxRequests {
		return Result{Allowed: false, Remaining: 0, ResetTime: entry.resetTime}, nil
	}

	entry.count++
	return Result{
		Allowed:   true,
		Remaining: maxRequests - entry.count,
		ResetTime: entry.resetTime,
	}, nil
}

// Sweep implements RateLimitStore.
func (s *MemoryStore) Sweep(_ context.Context) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if entry.resetTime.Before(now) {
			delete(s.entries, key)
		}
	}
	return nil
}

// Len reports the number of live entries. Used by tests and the sweeper log.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartSweeper runs Sweep every interval until ctx is cancelled. It returns
// immediately; the sweeper goroutine exits on shutdown.
func StartSweeper(ctx context.Context, s RateLimitStore, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Sweep(ctx)
			}
		}
	}()
}
