// Package dedup drops webhook redeliveries: each (platform, message id) pair
// is processed at most once.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTTL bounds how long processed message ids are remembered. Webhook
// retries arrive within minutes; a day covers delayed replays comfortably.
const DefaultTTL = 24 * time.Hour

// Store is a Redis-backed recency set of processed message ids.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewStore creates a dedup store. A non-positive ttl falls back to DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		panic("dedup: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("clinic.internal.dedup"),
	}
}

// MarkSeen records the message id and reports whether this delivery is the
// first one. The check-and-set is a single SET NX so concurrent duplicate
// deliveries cannot both pass the gate.
func (s *Store) MarkSeen(ctx context.Context, platform, messageID string) (first bool, err error) {
	ctx, span := s.tracer.Start(ctx, "dedup.mark_seen")
	defer span.End()

	ok, err := s.redis.SetNX(ctx, dedupKey(platform, messageID), 1, s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("dedup: mark seen: %w", err)
	}
	return ok, nil
}

// Seen reports whether the message id has already been processed.
func (s *Store) Seen(ctx context.Context, platform, messageID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "dedup.seen")
	defer span.End()

	n, err := s.redis.Exists(ctx, dedupKey(platform, messageID)).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("dedup: check seen: %w", err)
	}
	return n > 0, nil
}

func dedupKey(platform, messageID string) string {
	return fmt.Sprintf("dedup:%s:%s", platform, messageID)
}
