package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"
)

// TestNewRateLimiterStartsFull verifies the bucket starts at full capacity.
func TestNewRateLimiterStartsFull(t *testing.T) {
	rl := NewRateLimiter(1.0, 10.0)
	if tokens := rl.GetCurrentTokens(); tokens < 9.9 {
		t.Errorf("expected ~10 tokens, got %.2f", tokens)
	}
}

// TestTryAcquireConsumesToken verifies token consumption.
func TestTryAcquireConsumesToken(t *testing.T) {
	rl := NewRateLimiter(1.0, 5.0)

	for i := 0; i < 5; i++ {
		if !rl.tryAcquire() {
			t.Fatalf("tryAcquire() failed on attempt %d", i+1)
		}
	}
	if rl.tryAcquire() {
		t.Error("tryAcquire() should fail when bucket is empty")
	}
}

func TestTokenRefillUsesClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10.0, 10.0)
	rl.now = func() time.Time { return now }
	rl.lastRefill = now

	for i := 0; i < 10; i++ {
		rl.tryAcquire()
	}
	now = now.Add(200 * time.Millisecond)

	if tokens := rl.GetCurrentTokens(); tokens < 1.9 || tokens > 2.1 {
		t.Errorf("expected ~2 tokens after 200ms at 10/sec, got %.2f", tokens)
	}

	now = now.Add(time.Hour)
	if tokens := rl.GetCurrentTokens(); tokens > 10.0 {
		t.Errorf("tokens should cap at 10, got %.2f", tokens)
	}
}

func TestWaitBlocksUntilTokenAvailable(t *testing.T) {
	rl := NewRateLimiter(20.0, 1.0)
	rl.tryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait returned after %v, expected to block ~50ms", elapsed)
	}
}

func TestWaitRespectsCancellation(t *testing.T) {
	rl := NewRateLimiter(0.01, 1.0)
	rl.tryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestCooldownBlocksAcquisition(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(100.0, 10.0)
	rl.now = func() time.Time { return now }
	rl.lastRefill = now

	rl.Cooldown(3 * time.Second)
	now = now.Add(2 * time.Second)
	if rl.tryAcquire() {
		t.Error("token granted during cooldown")
	}
	if d := rl.timeUntilNextToken(); d != time.Second {
		t.Errorf("timeUntilNextToken = %v, want 1s", d)
	}

	now = now.Add(2 * time.Second)
	if !rl.tryAcquire() {
		t.Error("token refused after cooldown")
	}
}

func TestCooldownIsCapped(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1.0, 1.0)
	rl.now = func() time.Time { return now }

	rl.Cooldown(time.Hour)
	if got := rl.cooldownUntil.Sub(now); got != MaxCooldown {
		t.Errorf("cooldown = %v, want %v", got, MaxCooldown)
	}
}

func TestResolveScope(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		method, path string
		want         Scope
	}{
		{http.MethodGet, "/api/files", ScopeRead},
		{http.MethodGet, "/api/folders", ScopeRead},
		{http.MethodGet, "/api/files/abc/download", ScopeTransfer},
		{http.MethodPost, "/api/files", ScopeTransfer},
		{http.MethodPost, "/api/folders", ScopeMutation},
		{http.MethodPut, "/api/files/abc/lock", ScopeMutation},
		{http.MethodDelete, "/api/shares/tok", ScopeMutation},
		{http.MethodGet, "/health", ScopeRead},
	}
	for _, tt := range tests {
		if got := r.ResolveScope(tt.method, tt.path); got != tt.want {
			t.Errorf("ResolveScope(%s %s) = %s, want %s", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestStoreSharesLimiters(t *testing.T) {
	s := NewLimiterStore(nil)

	a := s.GetLimiter("https://media.example", "token-1", ScopeRead)
	b := s.GetLimiter("https://media.example", "token-1", ScopeRead)
	if a != b {
		t.Error("same account and scope should share a limiter")
	}
	if c := s.GetLimiter("https://media.example", "token-2", ScopeRead); c == a {
		t.Error("different tokens must not share a limiter")
	}

	l, scope := s.ForRequest("https://media.example", "token-1", http.MethodPost, "/api/files")
	if scope != ScopeTransfer || l == a {
		t.Errorf("ForRequest scope = %s", scope)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}
