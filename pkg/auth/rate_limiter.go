package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether one more request for key fits its budget
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// SlidingWindowLimiter allows limit requests per key within any window of
// the configured size, plus a burst allowance on top.
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string][]time.Time
	limit      int
	windowSize time.Duration
	now        func() time.Time
}

// NewSlidingWindowLimiter creates a limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string][]time.Time),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Allow records a request for key if it fits
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	start := now.Add(-l.windowSize)
	kept := l.windows[key][:0]
	for _, t := range l.windows[key] {
		if t.After(start) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.windows[key] = kept
		return false, nil
	}
	l.windows[key] = append(kept, now)
	return true, nil
}

// Reset forgets every request for key
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

// Prune drops keys with no request inside the window
func (l *SlidingWindowLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := l.now().Add(-l.windowSize)
	pruned := 0
	for key, times := range l.windows {
		if len(times) == 0 || !times[len(times)-1].After(start) {
			delete(l.windows, key)
			pruned++
		}
	}
	return pruned
}

// IPRateLimiter limits requests per client address
type IPRateLimiter struct {
	limiter *SlidingWindowLimiter
	limit   int
}

// NewIPRateLimiter allows requestsPerMinute plus burst per address
func NewIPRateLimiter(requestsPerMinute, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute+burst, time.Minute),
		limit:   requestsPerMinute + burst,
	}
}

// Limit returns the number of requests allowed per minute
func (l *IPRateLimiter) Limit() int { return l.limit }

// Allow checks the budget for ip
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, "ip:"+ip)
}

// Reset forgets ip
func (l *IPRateLimiter) Reset(ctx context.Context, ip string) error {
	return l.limiter.Reset(ctx, "ip:"+ip)
}

// RunCleanup prunes idle addresses every interval until ctx is done
func (l *IPRateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.limiter.Prune()
		}
	}
}
