package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/config"
)

// takeScript refills the bucket stored at KEYS[1] by whole intervals and
// takes one token.  ARGV: now_ms, capacity, refill, interval_ms, ttl_s.
// Returns {allowed, remaining, retry_after_ms}.
var takeScript = redis.NewScript(`
local now, cap, refill, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local h = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill_ms')
local left, last = tonumber(h[1]), tonumber(h[2])
if left == nil or last == nil then
  left, last = cap, now
end
local steps = math.floor(math.max(0, now - last) / every)
if steps > 0 then
  left = math.min(cap, left + steps * refill)
  last = last + steps * every
end
local ok, wait = 0, 0
if left > 0 then
  ok, left = 1, left - 1
else
  wait = math.max(0, every - (now - last))
end
redis.call('HSET', KEYS[1], 'tokens', left, 'last_refill_ms', last)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, left, wait}
`)

// decision is the outcome of one take.
type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type bucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b bucket) take(ctx context.Context, key string, now time.Time) (decision, error) {
	res, err := takeScript.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return decision{}, err
	}
	if len(res) != 3 {
		return decision{}, fmt.Errorf("limiter script returned %d values", len(res))
	}
	return decision{
		allowed:   res[0] == 1,
		remaining: res[1],
		retry:     time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// NewTokenBucket limits requests with a Redis token bucket per key.  It is
// a pass-through when limiting is disabled or Redis is absent, and it
// fails open on Redis errors.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ratelimit")
	b := bucket{cfg: cfg, rdb: rdb}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			d, err := b.take(c.Request().Context(), key, time.Now())
			if err != nil {
				log.Warn("limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.allowed {
				return next(c)
			}

			secs := retryAfterSeconds(d.retry)
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				log.Info("request throttled", zap.String("key", key), zap.Duration("retry", d.retry))
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// buildRateKey joins the configured key parts.  KeyStrategy names the
// parts with "_" separators (ip, user, route); unknown strategies use all
// three.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	values := map[string]string{
		"ip":    ip,
		"user":  userID(c),
		"route": c.Request().Method + " " + c.Path(),
	}

	strategy := strings.ToLower(cfg.KeyStrategy)
	parts := strings.Split(strategy, "_")
	for _, p := range parts {
		if _, ok := values[p]; !ok {
			parts = []string{"ip", "user", "route"}
			break
		}
	}

	key := []string{cfg.Prefix}
	for _, p := range parts {
		key = append(key, p, values[p])
	}
	return strings.Join(key, ":")
}
