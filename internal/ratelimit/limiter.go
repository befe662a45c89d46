// Package ratelimit bounds inbound message volume per user. Exceeding the
// window yields one throttle notice, then silence until the window resets.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultLimit is the number of messages allowed per window.
	DefaultLimit = 10
	// Window is the rate-limit interval.
	Window = time.Minute
)

// Result describes the outcome of an Allow call.
type Result struct {
	Allowed bool
	// Notify is true on the first rejected message of a window. The caller
	// sends exactly one throttle notice; later rejections stay silent.
	Notify bool
}

// Limiter is a Redis-backed fixed-window counter keyed per (platform, user).
type Limiter struct {
	redis  *redis.Client
	limit  int
	tracer trace.Tracer
}

// NewLimiter creates a limiter. A non-positive limit falls back to DefaultLimit.
func NewLimiter(client *redis.Client, limit int) *Limiter {
	if client == nil {
		panic("ratelimit: redis client cannot be nil")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{
		redis:  client,
		limit:  limit,
		tracer: otel.Tracer("clinic.internal.ratelimit"),
	}
}

// Allow counts the message against the user's current window. Counter keys
// carry the window TTL, so bookkeeping evicts itself.
func (l *Limiter) Allow(ctx context.Context, platform, userID string) (Result, error) {
	ctx, span := l.tracer.Start(ctx, "ratelimit.allow")
	defer span.End()

	key := counterKey(platform, userID)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("ratelimit: incr: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, Window).Err(); err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("ratelimit: set window ttl: %w", err)
		}
	}

	if count <= int64(l.limit) {
		return Result{Allowed: true}, nil
	}
	// Exactly one notice per window: the first rejected message.
	return Result{Allowed: false, Notify: count == int64(l.limit)+1}, nil
}

func counterKey(platform, userID string) string {
	return fmt.Sprintf("ratelimit:%s:%s", platform, userID)
}
