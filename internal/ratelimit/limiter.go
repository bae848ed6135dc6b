// Package ratelimit provides in-memory rate limiting for login attempts.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	// MaxFailures is the number of failed attempts per identifier before
	// lockout (default: 5).
	MaxFailures int
	// Lockout is how long an identifier stays locked after MaxFailures
	// (default: 5m).
	Lockout time.Duration
	// MaxIPPerHour caps total login attempts per client IP per hour
	// (default: 30).
	MaxIPPerHour int

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxFailures:  5,
		Lockout:      5 * time.Minute,
		MaxIPPerHour: 30,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks attempt counts and timestamps.
type entry struct {
	count    int
	firstAt  time.Time // First attempt in window
	lockedAt time.Time // When lockout started (zero if not locked)
}

// Limiter tracks failed logins per identifier and attempt volume per IP.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.Mutex
	// Keyed by hash of identifier or IP
	failuresByID map[string]*entry
	attemptsByIP map[string]*entry
}

// NewLimiter creates a limiter. A nil config uses DefaultConfig.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	clock := config.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{
		config:       config,
		clock:        clock,
		failuresByID: make(map[string]*entry),
		attemptsByIP: make(map[string]*entry),
	}
}

// CheckLogin reports whether a login attempt for identifier from ip may
// proceed. Call it before verifying credentials.
func (l *Limiter) CheckLogin(identifier, ip string) LimitResult {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.failuresByID[hashKey(identifier)]; ok && !e.lockedAt.IsZero() {
		unlockAt := e.lockedAt.Add(l.config.Lockout)
		if now.Before(unlockAt) {
			return LimitResult{
				Allowed:    false,
				RetryAfter: unlockAt.Sub(now),
				Reason:     "identifier locked out",
			}
		}
		delete(l.failuresByID, hashKey(identifier))
	}

	ipEntry := l.bump(l.attemptsByIP, hashKey(ip), now, time.Hour)
	if ipEntry.count > l.config.MaxIPPerHour {
		return LimitResult{
			Allowed:    false,
			RetryAfter: ipEntry.firstAt.Add(time.Hour).Sub(now),
			Reason:     "ip attempt cap exceeded",
		}
	}

	return LimitResult{Allowed: true}
}

// RecordFailure counts a failed credential check for identifier and starts a
// lockout once the failure budget is spent.
func (l *Limiter) RecordFailure(identifier string) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.bump(l.failuresByID, hashKey(identifier), now, l.config.Lockout)
	if e.count >= l.config.MaxFailures && e.lockedAt.IsZero() {
		e.lockedAt = now
	}
}

// RecordSuccess clears the failure budget for identifier after a successful
// login.
func (l *Limiter) RecordSuccess(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failuresByID, hashKey(identifier))
}

// bump increments the entry for key, resetting it when the window has
// passed. Caller must hold l.mu.
func (l *Limiter) bump(m map[string]*entry, key string, now time.Time, window time.Duration) *entry {
	e, ok := m[key]
	if !ok || (e.lockedAt.IsZero() && now.Sub(e.firstAt) > window) {
		e = &entry{firstAt: now}
		m[key] = e
	}
	e.count++
	return e
}

// ClientIP extracts the caller's IP, preferring X-Forwarded-For when the
// request came through a proxy.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(value))))
	return hex.EncodeToString(sum[:])
}
