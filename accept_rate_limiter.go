package main

import (
	"context"
	"sync"
	"time"
)

// acceptRateLimiter is a token-bucket limiter for new TCP accepts. It smooths
// reconnect storms after a restart: an average rate with a burst allowance
// instead of a hard per-second cutoff. A nil limiter admits everything.
type acceptRateLimiter struct {
	rate   float64   // tokens per second
	burst  float64   // maximum tokens
	tokens float64   // current tokens
	last   time.Time // last refill time
	mu     sync.Mutex
}

func newAcceptRateLimiter(maxPerSecond, burst int) *acceptRateLimiter {
	if maxPerSecond <= 0 {
		return nil
	}
	rate := float64(maxPerSecond)
	burstSize := float64(burst)
	if burstSize <= 0 {
		burstSize = rate
	}
	return &acceptRateLimiter{
		rate:   rate,
		burst:  burstSize,
		tokens: burstSize,
		last:   time.Now(),
	}
}

// wait blocks until an accept token is available or ctx is cancelled, so
// shutdown is never delayed by the limiter. Reports false on cancellation.
func (l *acceptRateLimiter) wait(ctx context.Context) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	if l.rate <= 0 {
		l.mu.Unlock()
		return true
	}

	now := time.Now()
	if l.last.IsZero() {
		l.last = now
	}
	elapsed := now.Sub(l.last).Seconds()
	if elapsed > 0 {
		l.tokens += elapsed * l.rate
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		l.last = now
	}

	if l.tokens >= 1 {
		l.tokens -= 1
		l.mu.Unlock()
		return true
	}

	need := 1 - l.tokens
	rate := l.rate
	l.mu.Unlock()

	wait := time.Duration(need / rate * float64(time.Second))
	if wait <= 0 {
		wait = time.Millisecond
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	l.mu.Lock()
	l.last = time.Now()
	if l.tokens < 1 {
		l.tokens = 0
	} else {
		l.tokens -= 1
	}
	l.mu.Unlock()
	return true
}
