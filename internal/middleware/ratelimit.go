package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aidanmarr1/dt-chat-sub000/pkg/logger"
)

// FixedWindowLimiter is a per-key fixed-window attempt counter.
//
// Constructed once and passed by reference; the clock is injectable so
// tests can drive the window deterministically. Entries whose window has
// expired are pruned once the map exceeds maxEntries, bounding memory
// under many distinct keys (e.g. per-IP before login).
type FixedWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	limit   int
	window  time.Duration
	now     func() time.Time

	maxEntries int
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

const defaultMaxEntries = 10000

// NewFixedWindowLimiter allows limit attempts per key per window
func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		entries:    make(map[string]*windowEntry),
		limit:      limit,
		window:     window,
		now:        time.Now,
		maxEntries: defaultMaxEntries,
	}
}

// WithClock overrides the limiter's clock. For tests.
func (l *FixedWindowLimiter) WithClock(now func() time.Time) *FixedWindowLimiter {
	l.now = now
	return l
}

// Allow records an attempt for key and reports whether it is within the
// limit for the current window. The first attempt after a window elapses
// resets the counter.
func (l *FixedWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, ok := l.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		if len(l.entries) >= l.maxEntries {
			l.pruneLocked(now)
		}
		l.entries[key] = &windowEntry{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	entry.count++
	return entry.count <= l.limit
}

// pruneLocked drops every entry whose window has passed. Caller holds mu.
func (l *FixedWindowLimiter) pruneLocked(now time.Time) {
	for key, entry := range l.entries {
		if !now.Before(entry.resetAt) {
			delete(l.entries, key)
		}
	}
}

// Size returns the number of tracked keys. For tests.
func (l *FixedWindowLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// RateLimits bundles the limiters guarding each endpoint class. Exact
// numbers are deployment policy, not protocol.
type RateLimits struct {
	Login   *FixedWindowLimiter // per IP
	Signup  *FixedWindowLimiter // per IP
	Send    *FixedWindowLimiter // per user
	Search  *FixedWindowLimiter // per user
	Receipt *FixedWindowLimiter // per user, shared by typing + read receipts
	Mutate  *FixedWindowLimiter // per user, shared by edit/delete/react/pin/vote
}

// DefaultRateLimits builds the production policy
func DefaultRateLimits() *RateLimits {
	return &RateLimits{
		Login:   NewFixedWindowLimiter(10, 15*time.Minute),
		Signup:  NewFixedWindowLimiter(5, 15*time.Minute),
		Send:    NewFixedWindowLimiter(30, time.Minute),
		Search:  NewFixedWindowLimiter(30, time.Minute),
		Receipt: NewFixedWindowLimiter(60, time.Minute),
		Mutate:  NewFixedWindowLimiter(60, time.Minute),
	}
}

// RateLimitByIP guards pre-auth endpoints, keyed by client IP
func RateLimitByIP(limiter *FixedWindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			logger.Warn().
				Str("ip", ip).
				Str("path", c.Request.URL.Path).
				Msg("Rate limit exceeded")

			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please slow down."})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimitByUser guards authenticated endpoints, keyed by the user id
// set by the auth middleware. Falls back to IP when unauthenticated.
func RateLimitByUser(limiter *FixedWindowLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, exists := c.Get("userId"); exists {
			key = userID.(string)
		}

		if !limiter.Allow(key) {
			logger.Warn().
				Str("key", key).
				Str("path", c.Request.URL.Path).
				Msg("Rate limit exceeded")

			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please slow down."})
			c.Abort()
			return
		}
		c.Next()
	}
}
