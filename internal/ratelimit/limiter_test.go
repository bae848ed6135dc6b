package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

// fakeClock lets tests advance time manually.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)}
	return NewLimiter(&Config{
		MaxFailures:  3,
		Lockout:      5 * time.Minute,
		MaxIPPerHour: 10,
		Clock:        clock,
	}), clock
}

func TestLoginAllowedInitially(t *testing.T) {
	limiter, _ := newTestLimiter()

	result := limiter.CheckLogin("anna@example.com", "10.0.0.1")
	if !result.Allowed {
		t.Fatalf("result = %+v, want allowed", result)
	}
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	limiter, clock := newTestLimiter()

	for i := 0; i < 3; i++ {
		limiter.RecordFailure("anna@example.com")
	}

	result := limiter.CheckLogin("anna@example.com", "10.0.0.1")
	if result.Allowed {
		t.Fatal("expected lockout after max failures")
	}
	if result.RetryAfter <= 0 {
		t.Fatalf("retry after = %v, want positive", result.RetryAfter)
	}

	// Lockout expires.
	clock.now = clock.now.Add(6 * time.Minute)
	if result := limiter.CheckLogin("anna@example.com", "10.0.0.1"); !result.Allowed {
		t.Fatalf("result = %+v, want allowed after lockout expiry", result)
	}
}

func TestSuccessClearsFailures(t *testing.T) {
	limiter, _ := newTestLimiter()

	limiter.RecordFailure("anna@example.com")
	limiter.RecordFailure("anna@example.com")
	limiter.RecordSuccess("anna@example.com")
	limiter.RecordFailure("anna@example.com")

	if result := limiter.CheckLogin("anna@example.com", "10.0.0.1"); !result.Allowed {
		t.Fatalf("result = %+v, want allowed after success reset", result)
	}
}

func TestIPAttemptCap(t *testing.T) {
	limiter, _ := newTestLimiter()

	for i := 0; i < 10; i++ {
		if result := limiter.CheckLogin("anna@example.com", "10.0.0.1"); !result.Allowed {
			t.Fatalf("attempt %d blocked early: %+v", i, result)
		}
	}
	if result := limiter.CheckLogin("bela@example.com", "10.0.0.1"); result.Allowed {
		t.Fatal("expected ip cap to block the 11th attempt")
	}

	// A different IP is unaffected.
	if result := limiter.CheckLogin("bela@example.com", "10.0.0.2"); !result.Allowed {
		t.Fatalf("result = %+v, want allowed from fresh ip", result)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	r.RemoteAddr = "192.0.2.10:51234"
	if got := ClientIP(r); got != "192.0.2.10" {
		t.Fatalf("ip = %q, want 192.0.2.10", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.4, 192.0.2.10")
	if got := ClientIP(r); got != "203.0.113.4" {
		t.Fatalf("ip = %q, want first forwarded hop", got)
	}
}
