// Package middleware provides request logging, tracing, rate limiting and
// client-token verification for the HTTP layer.
package middleware

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"tubeclone/internal/models"
	"tubeclone/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what a limiter does while Redis is unreachable.
type FailPolicy int

const (
	// FailOpen admits the request.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var (
	errNoRedis = errors.New("rate limit: no redis client")

	// ErrRateLimited is reported when a caller spent its budget for the window.
	ErrRateLimited = &models.AppError{Code: models.CodeRateLimited, Message: "Too many requests, slow down"}
	errLimiterDown = &models.AppError{Code: models.CodeUnavailable, Message: "Rate limiting unavailable"}
)

// Limiter enforces fixed-window request budgets kept in Redis.
type Limiter struct {
	rdb     *redis.Client
	enabled bool
	policy  FailPolicy
}

// NewLimiter returns a fail-open limiter over rdb. A disabled limiter admits
// every request without touching Redis.
func NewLimiter(rdb *redis.Client, enabled bool) *Limiter {
	return &Limiter{rdb: rdb, enabled: enabled, policy: FailOpen}
}

// WithPolicy returns a copy of l using policy while Redis is unreachable.
func (l *Limiter) WithPolicy(policy FailPolicy) *Limiter {
	cp := *l
	cp.policy = policy
	return &cp
}

// Allow spends one request of caller's budget for resource. A refusal also
// reports how long until the window resets.
func (l *Limiter) Allow(ctx context.Context, resource, caller string, limit int, window time.Duration) (bool, time.Duration, error) {
	if !l.enabled {
		return true, 0, nil
	}
	if l.rdb == nil {
		return false, 0, errNoRedis
	}

	key := rateLimitKey(resource, caller)
	var count *redis.IntCmd
	var ttl *redis.DurationCmd
	// SET NX opens the window with its expiry; INCR keeps that expiry.
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		count = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if count.Val() > int64(limit) {
		return false, ttl.Val(), nil
	}
	return true, 0, nil
}

// Limit returns a handler spending from the caller's budget for resource.
// Callers are the verified client once ClientRequired has run, else the
// remote IP, so a client cannot reset its budget by switching networks.
func (l *Limiter) Limit(resource string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if clientID := ClientID(c); clientID != "" {
			caller = "client:" + clientID
		}

		allowed, retryIn, err := l.Allow(c.UserContext(), resource, caller, limit, window)
		if err != nil {
			if l.policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit unavailable, refusing request",
					"resource", resource, "error", err)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable, errLimiterDown)
			}
			Logger.DebugContext(c.UserContext(), "rate limit unavailable, admitting request",
				"resource", resource, "error", err)
			return c.Next()
		}

		if !allowed {
			observability.RateLimitRefusals.WithLabelValues(resource).Inc()
			Logger.InfoContext(c.UserContext(), "rate limit exceeded", "resource", resource, "caller", caller)
			if retryIn > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryIn.Seconds()))))
			}
			return models.RespondWithError(c, fiber.StatusTooManyRequests, ErrRateLimited)
		}
		return c.Next()
	}
}

func rateLimitKey(resource, caller string) string {
	return "ratelimit:" + resource + ":" + caller
}
