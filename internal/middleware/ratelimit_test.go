package middleware

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiter_Check(t *testing.T) {
	mr, rdb := newRedis(t)
	limiter := NewRateLimiter(rdb, "production")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Check(ctx, "login", "ip:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}
	allowed, err := limiter.Check(ctx, "login", "ip:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.True(t, mr.TTL("rl:login:ip:1.2.3.4") > 0)

	mr.FastForward(time.Minute + time.Second)
	allowed, err = limiter.Check(ctx, "login", "ip:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_CheckAlwaysSetsTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	limiter := NewRateLimiter(rdb, "production")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Check(ctx, "signup", "ip:5.6.7.8", 5, 10*time.Minute)
		require.NoError(t, err)
		ttl := mr.TTL("rl:signup:ip:5.6.7.8")
		assert.True(t, ttl > 0 && ttl <= 10*time.Minute, "ttl %s", ttl)
	}
	got, err := mr.Get("rl:signup:ip:5.6.7.8")
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestRateLimiter_LocalBucketsExpire(t *testing.T) {
	limiter := NewRateLimiter(nil, "production")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		assert.True(t, limiter.allowLocal(fmt.Sprintf("login:ip:10.0.0.%d", i), 5, time.Minute))
	}
	assert.Equal(t, 50, limiter.localBuckets())

	now = now.Add(2 * time.Minute)
	assert.True(t, limiter.allowLocal("login:ip:10.0.1.1", 5, time.Minute))
	assert.Equal(t, 1, limiter.localBuckets())
}

func TestRateLimiter_LocalBucketsCapped(t *testing.T) {
	limiter := NewRateLimiter(nil, "production")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < maxLocalBuckets+10; i++ {
		limiter.allowLocal(fmt.Sprintf("login:ip:%d", i), 5, time.Hour)
	}
	assert.LessOrEqual(t, limiter.localBuckets(), maxLocalBuckets)
}

func TestRateLimiter_Bypass(t *testing.T) {
	for _, env := range []string{"test", "development"} {
		t.Run(env, func(t *testing.T) {
			limiter := NewRateLimiter(nil, env)
			allowed, err := limiter.Check(context.Background(), "login", "ip:x", 0, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

func TestRateLimiter_NilRedis(t *testing.T) {
	limiter := NewRateLimiter(nil, "production")
	allowed, err := limiter.Check(context.Background(), "login", "ip:x", 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}

func rateLimitedApp(h fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Post("/login", h, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func hit(t *testing.T, app *fiber.App) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/login", nil)
	req.Header.Set(fiber.HeaderXForwardedFor, "10.0.0.1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRateLimiter_Handler(t *testing.T) {
	t.Run("redis window", func(t *testing.T) {
		_, rdb := newRedis(t)
		app := rateLimitedApp(NewRateLimiter(rdb, "production").Handler("login", 2, time.Minute, FailOpen))
		assert.Equal(t, fiber.StatusOK, hit(t, app))
		assert.Equal(t, fiber.StatusOK, hit(t, app))
		assert.Equal(t, fiber.StatusTooManyRequests, hit(t, app))
	})

	t.Run("fail closed without redis", func(t *testing.T) {
		app := rateLimitedApp(NewRateLimiter(nil, "production").Handler("login", 2, time.Minute, FailClosed))
		assert.Equal(t, fiber.StatusServiceUnavailable, hit(t, app))
	})

	t.Run("fail open uses local bucket", func(t *testing.T) {
		app := rateLimitedApp(NewRateLimiter(nil, "production").Handler("login", 2, time.Hour, FailOpen))
		assert.Equal(t, fiber.StatusOK, hit(t, app))
		assert.Equal(t, fiber.StatusOK, hit(t, app))
		assert.Equal(t, fiber.StatusTooManyRequests, hit(t, app))
	})

	t.Run("redis outage falls back", func(t *testing.T) {
		mr, rdb := newRedis(t)
		mr.Close()
		app := rateLimitedApp(NewRateLimiter(rdb, "production").Handler("login", 1, time.Hour, FailOpen))
		assert.Equal(t, fiber.StatusOK, hit(t, app))
		assert.Equal(t, fiber.StatusTooManyRequests, hit(t, app))
	})
}
