// Package ratelimit provides rate limiting for API calls using a token bucket algorithm.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/nexx/mediacenter/internal/logging"
)

// RateLimiter implements a token bucket rate limiter.
// It allows bursts up to maxTokens, then refills at refillRate tokens/second.
type RateLimiter struct {
	tokens        float64   // Current number of tokens available
	maxTokens     float64   // Maximum bucket capacity
	refillRate    float64   // Tokens added per second
	lastRefill    time.Time // Last time tokens were refilled
	cooldownUntil time.Time // No tokens are granted before this instant
	lastWarnTime  time.Time // Last time we warned about rate limiting
	logger        *logging.Logger
	now           func() time.Time
	mu            sync.Mutex
}

// NewRateLimiter creates a new rate limiter.
//
// Parameters:
//   - tokensPerSecond: Rate at which tokens are added (e.g., 8.0 for 8 tokens/second)
//   - burstSize: Maximum tokens that can accumulate (allows brief bursts)
func NewRateLimiter(tokensPerSecond float64, burstSize float64) *RateLimiter {
	return &RateLimiter{
		tokens:     burstSize, // Start with full bucket
		maxTokens:  burstSize,
		refillRate: tokensPerSecond,
		lastRefill: time.Now(),
		logger:     logging.Nop(),
		now:        time.Now,
	}
}

// NewScopeRateLimiter creates a limiter for a scope from its registry config.
func NewScopeRateLimiter(cfg ScopeConfig) *RateLimiter {
	return NewRateLimiter(cfg.TargetRate, cfg.BurstCapacity)
}

// SetLogger sets where wait warnings go.
func (rl *RateLimiter) SetLogger(l *logging.Logger) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l == nil {
		l = logging.Nop()
	}
	rl.logger = l
}

// Wait blocks until a token is available or context is cancelled.
// Returns an error if the context is cancelled before a token becomes available.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	startTime := rl.now()

	// Try immediate acquire first
	if rl.tryAcquire() {
		return nil
	}

	// Need to wait - warn if wait might be long
	waitTime := rl.timeUntilNextToken()
	if waitTime > warnThreshold {
		rl.mu.Lock()
		if rl.now().Sub(rl.lastWarnTime) > warnInterval {
			rl.logger.Warn().Dur("wait", waitTime).Msg("Rate limited: waiting for API capacity")
			rl.lastWarnTime = rl.now()
		}
		rl.mu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if rl.tryAcquire() {
			if actualWait := rl.now().Sub(startTime); actualWait > 5*time.Second {
				rl.logger.Info().Dur("waited", actualWait).Msg("Rate limit wait completed")
			}
			return nil
		}

		timer := time.NewTimer(rl.timeUntilNextToken())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire attempts to acquire one token without blocking.
// Returns true if a token was acquired, false otherwise.
func (rl *RateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.refillLocked(now)

	if now.Before(rl.cooldownUntil) {
		rl.tokens = 0
		return false
	}
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed > 0 {
		rl.tokens += elapsed * rl.refillRate
	}
	// Cap at max tokens (don't accumulate infinitely)
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}

// timeUntilNextToken calculates how long to wait until at least one token is available.
func (rl *RateLimiter) timeUntilNextToken() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Before(rl.cooldownUntil) {
		return rl.cooldownUntil.Sub(now)
	}

	tokensNeeded := 1.0 - rl.tokens
	if tokensNeeded <= 0 || rl.refillRate <= 0 {
		return time.Millisecond
	}
	return time.Duration(tokensNeeded / rl.refillRate * float64(time.Second))
}

// Cooldown drains the bucket and blocks acquisition for d. Called when the
// server answers 429.
func (rl *RateLimiter) Cooldown(d time.Duration) {
	if d <= 0 {
		d = DefaultCooldown
	}
	if d > MaxCooldown {
		d = MaxCooldown
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	rl.refillLocked(now)
	rl.tokens = 0
	until := now.Add(d)
	if until.After(rl.cooldownUntil) {
		rl.cooldownUntil = until
	}
	rl.logger.Warn().Dur("cooldown", d).Msg("Server throttled request, pausing API calls")
}

// CooldownRemaining returns how long acquisition stays blocked after a 429.
func (rl *RateLimiter) CooldownRemaining() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if d := rl.cooldownUntil.Sub(rl.now()); d > 0 {
		return d
	}
	return 0
}

// GetCurrentTokens returns the current number of tokens (for testing/debugging).
func (rl *RateLimiter) GetCurrentTokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	elapsed := rl.now().Sub(rl.lastRefill).Seconds()
	tokens := rl.tokens + (elapsed * rl.refillRate)
	if tokens > rl.maxTokens {
		tokens = rl.maxTokens
	}
	return tokens
}
