package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quill/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen falls back to an in-process limiter if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

var errNoStore = errors.New("redis client is nil")

const (
	localSweepInterval = time.Minute
	maxLocalBuckets    = 10000
)

// localBucket is a fallback limiter and the last time it was used. A bucket
// idle for a full window has refilled and can be dropped.
type localBucket struct {
	lim      *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// RateLimiter enforces fixed-window limits backed by Redis.
type RateLimiter struct {
	rdb    *redis.Client
	bypass bool
	now    func() time.Time

	mu        sync.Mutex
	local     map[string]*localBucket
	lastSweep time.Time
}

// NewRateLimiter creates a limiter. Limits are not enforced when env is
// "test" or "development".
func NewRateLimiter(rdb *redis.Client, env string) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		bypass: env == "test" || env == "development",
		now:    time.Now,
		local:  make(map[string]*localBucket),
	}
}

// Check reports whether id may make another request against resource.
func (l *RateLimiter) Check(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, error) {
	if l.bypass {
		return true, nil
	}
	if l.rdb == nil {
		return false, errNoStore
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	// The window starts with SET NX EX, so the counter never lives without a
	// TTL even if the connection drops between commands.
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// allowLocal applies a token bucket with the same average rate as the
// Redis window.
func (l *RateLimiter) allowLocal(key string, limit int, window time.Duration) bool {
	if limit < 1 {
		limit = 1
	}
	now := l.now()

	l.mu.Lock()
	l.sweepLocked(now)
	b, ok := l.local[key]
	if !ok {
		b = &localBucket{
			lim:    rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
			window: window,
		}
		l.local[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// sweepLocked drops refilled buckets once per interval, or immediately when
// the map is full. A map still full after the sweep is reset. l.mu must be held.
func (l *RateLimiter) sweepLocked(now time.Time) {
	full := len(l.local) >= maxLocalBuckets
	if !full && now.Sub(l.lastSweep) < localSweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.local {
		if now.Sub(b.lastSeen) >= b.window {
			delete(l.local, key)
		}
	}
	if len(l.local) >= maxLocalBuckets {
		l.local = make(map[string]*localBucket)
	}
}

func (l *RateLimiter) localBuckets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.local)
}

// Handler returns a Fiber middleware enforcing limit requests per window.
// It keys by authenticated userID when set, otherwise by client IP.
func (l *RateLimiter) Handler(resource string, limit int, window time.Duration, policy FailPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id string
		if uid, ok := c.Locals(LocalUserID).(uint); ok && uid != 0 {
			id = fmt.Sprintf("user:%d", uid)
		} else {
			id = "ip:" + ClientIP(c)
		}

		allowed, err := l.Check(c.UserContext(), resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				observability.Logger.WarnContext(c.UserContext(), "rate limit fail-closed",
					"resource", resource, "path", c.Path(), "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			if !errors.Is(err, errNoStore) {
				observability.Logger.WarnContext(c.UserContext(), "rate limit store error",
					"resource", resource, "error", err)
			}
			allowed = l.allowLocal(resource+":"+id, limit, window)
		}

		if !allowed {
			observability.RateLimited.WithLabelValues(resource).Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		}
		return c.Next()
	}
}
