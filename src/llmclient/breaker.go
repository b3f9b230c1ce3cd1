package llmclient

import (
	"sync"
	"time"
)

const (
	defaultBreakerThreshold = 3
	defaultBreakerCooldown  = 120 * time.Second
)

// CircuitBreaker stops calls to a known-bad backend. It is owned by one
// Client instance and shared by every session going through that client,
// so all mutation happens under the mutex.
//
// The breaker opens when consecutive failures reach the threshold, or
// immediately on auth/rate-limit responses. Once the cooldown elapses it
// is half-open: the next call is allowed through as a probe. A success
// closes the breaker, a failure re-opens it and restarts the cooldown.
type CircuitBreaker struct {
	mu                  sync.Mutex
	consecutiveFailures int
	openedAt            time.Time // zero when closed
	threshold           int
	cooldown            time.Duration
	now                 func() time.Time
}

// NewCircuitBreaker creates a breaker with the given threshold and cooldown.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow returns nil when a call may proceed, or a CircuitOpenError when
// the breaker is open and the cooldown has not elapsed. When the cooldown
// has elapsed the call is allowed as a half-open probe.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openedAt.IsZero() {
		return nil
	}
	elapsed := b.now().Sub(b.openedAt)
	if elapsed < b.cooldown {
		return &CircuitOpenError{
			OpenedAt:   b.openedAt,
			RetryAfter: b.cooldown - elapsed,
		}
	}
	return nil
}

// OnSuccess resets the failure count and closes the breaker.
func (b *CircuitBreaker) OnSuccess() {
	b.mu.Lock()
	b.consecutiveFailures = 0
	b.openedAt = time.Time{}
	b.mu.Unlock()
}

// OnFailure records a generic failure. Reaching the threshold opens the
// breaker; a failed half-open probe re-opens it and restarts the clock.
func (b *CircuitBreaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures++
	if b.consecutiveFailures >= b.threshold || !b.openedAt.IsZero() {
		b.openedAt = b.now()
	}
}

// Trip opens the breaker immediately, bypassing the threshold. Used for
// auth failures and rate limits, which are not worth retrying.
func (b *CircuitBreaker) Trip() {
	b.mu.Lock()
	b.consecutiveFailures = b.threshold
	b.openedAt = b.now()
	b.mu.Unlock()
}

// IsOpen reports whether the breaker currently rejects calls.
func (b *CircuitBreaker) IsOpen() bool {
	return b.Allow() != nil
}

// Failures returns the current consecutive failure count.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}
