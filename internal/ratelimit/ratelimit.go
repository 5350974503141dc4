// Package ratelimit bounds the outbound request rate to the model provider.
// It uses a sliding window of request timestamps. The in-memory limiter is
// advisory throttling for a single instance; the Redis limiter coordinates
// replicas sharing one provider key.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultMaxRequests = 60
	DefaultWindow      = time.Minute
)

// Limiter is the interface satisfied by both backends.
type Limiter interface {
	// Allow reports whether another outbound request may be made now.
	// A denied request is not recorded against the window.
	Allow(ctx context.Context) (bool, error)

	// ResetAfter returns how long until the oldest recorded request leaves
	// the window, or zero when the window is empty.
	ResetAfter(ctx context.Context) (time.Duration, error)
}

// SlidingWindow is the in-memory limiter. Check-and-record is atomic under
// the mutex, which is the sole synchronization point shared by concurrent
// callers.
type SlidingWindow struct {
	mu          sync.Mutex
	timestamps  []time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &SlidingWindow{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

func (s *SlidingWindow) Allow(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	if len(s.timestamps) >= s.maxRequests {
		return false, nil
	}

	s.timestamps = append(s.timestamps, now)
	return true, nil
}

func (s *SlidingWindow) ResetAfter(ctx context.Context) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.timestamps) == 0 {
		return 0, nil
	}

	remaining := s.timestamps[0].Add(s.window).Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// prune drops timestamps that have left the window. Caller holds the lock.
func (s *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.timestamps) && !s.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		s.timestamps = append(s.timestamps[:0], s.timestamps[i:]...)
	}
}
