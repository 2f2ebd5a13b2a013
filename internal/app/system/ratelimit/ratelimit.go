// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter provides rate limiting using a sliding window algorithm.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window duration
	cleanup  time.Duration // how often to clean old entries
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a new rate limiter allowing limit requests per duration.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		cleanup:  duration * 2,
	}
	go l.cleanupLoop()
	return l
}

// Allow checks if a request from the given key should be allowed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]
	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset clears the rate limit for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// cleanupLoop periodically removes expired entries.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP extracts the client IP from an HTTP request, preferring the
// X-Forwarded-For and X-Real-IP headers set by proxies.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// InviteLimiter throttles invite-code redemption. Codes are six digits,
// so unthrottled guessing would enumerate the space quickly; attempts
// are capped per client IP and per account.
type InviteLimiter struct {
	ipLimiter  *Limiter
	uidLimiter *Limiter
}

// NewInviteLimiter creates a limiter configured for invite redemption:
// 10 attempts per IP per minute, 20 attempts per account per hour.
func NewInviteLimiter() *InviteLimiter {
	return &InviteLimiter{
		ipLimiter:  New(10, time.Minute),
		uidLimiter: New(20, time.Hour),
	}
}

// Check verifies if a redemption attempt should be allowed.
func (il *InviteLimiter) Check(r *http.Request, uid string) bool {
	if !il.ipLimiter.Allow(ClientIP(r)) {
		return false
	}
	if uid != "" && !il.uidLimiter.Allow(uid) {
		return false
	}
	return true
}

// ResetUID clears the account limit after a successful redemption.
func (il *InviteLimiter) ResetUID(uid string) {
	if uid != "" {
		il.uidLimiter.Reset(uid)
	}
}
