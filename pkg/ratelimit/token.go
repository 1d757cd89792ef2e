package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenLimiter caps the number of tokens (e.g. LLM prompt tokens) spent per
// refill period. The budget resets in full at the start of each period.
type TokenLimiter struct {
	sync.Mutex
	capacity     int
	remaining    int
	refillPeriod time.Duration
	lastRefill   time.Time
	pollInterval time.Duration
}

func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	return newTokenLimiter(tokensPerMinute, time.Minute)
}

func newTokenLimiter(capacity int, period time.Duration) *TokenLimiter {
	return &TokenLimiter{
		capacity:     capacity,
		remaining:    capacity,
		refillPeriod: period,
		lastRefill:   time.Now(),
		pollInterval: 100 * time.Millisecond,
	}
}

// Wait blocks until tokens can be spent or ctx is done. A request larger than
// the whole budget fails immediately.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	if tokens > l.capacity {
		return fmt.Errorf("requested %d tokens exceeds limiter capacity %d", tokens, l.capacity)
	}
	for {
		l.Lock()
		l.refillLocked()
		if l.remaining >= tokens {
			l.remaining -= tokens
			l.Unlock()
			return nil
		}
		l.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *TokenLimiter) refillLocked() {
	now := time.Now()
	if now.Sub(l.lastRefill) >= l.refillPeriod {
		l.remaining = l.capacity
		l.lastRefill = now
	}
}

func (l *TokenLimiter) GetRemaining() int {
	l.Lock()
	defer l.Unlock()
	return l.remaining
}
