package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is the duration after which an idle entry is eligible for cleanup.
	maxIdleAge = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter hands out one token bucket per key (user id or IP) and
// prunes stale entries inline.
type KeyedRateLimiter struct {
	entries map[string]*limiterEntry
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		entries: make(map[string]*limiterEntry),
		r:       r,
		b:       b,
	}
}

// PerMinute converts a per-minute budget into a rate.Limit.
func PerMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

// GetLimiter returns the limiter for key, pruning stale entries when the map
// exceeds cleanupThreshold.
func (k *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.entries) > cleanupThreshold {
		cutoff := time.Now().Add(-maxIdleAge)
		for key, e := range k.entries {
			if e.lastSeen.Before(cutoff) {
				delete(k.entries, key)
			}
		}
	}

	e, exists := k.entries[key]
	if !exists {
		e = &limiterEntry{limiter: rate.NewLimiter(k.r, k.b)}
		k.entries[key] = e
	}
	e.lastSeen = time.Now()

	return e.limiter
}

// RateLimitMiddleware throttles per user, falling back to the client IP when
// no user is attached.
func RateLimitMiddleware(limiter *KeyedRateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := UserID(c)
		if key == "" {
			key = c.IP()
		}
		if !limiter.GetLimiter(key).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many generation requests, slow down",
			})
		}
		return c.Next()
	}
}
