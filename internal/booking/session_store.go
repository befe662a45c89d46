package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSessionTTL bounds how long an untouched session survives in
// the store. The lazy idle check in the machine fires well before this.
const DefaultSessionTTL = 24 * time.Hour

// SessionStore persists booking sessions in Redis, one key per
// (platform, user).
type SessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewSessionStore builds a store with the given TTL; zero means
// DefaultSessionTTL.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if client == nil {
		panic("booking: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("clinic.internal.booking.sessions"),
	}
}

// Get loads the session for a (platform, user) key. Returns
// ErrSessionNotFound when none exists.
func (s *SessionStore) Get(ctx context.Context, platform, userID string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "booking.get_session")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionStoreKey(platform, userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("booking: failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: failed to decode session: %w", err)
	}
	return &sess, nil
}

// Save persists the session, refreshing its TTL.
func (s *SessionStore) Save(ctx context.Context, sess *Session) error {
	ctx, span := s.tracer.Start(ctx, "booking.save_session")
	defer span.End()

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionStoreKey(sess.Platform, sess.UserID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: failed to persist session: %w", err)
	}
	return nil
}

// Delete removes the session for a (platform, user) key. Deleting a
// missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, platform, userID string) error {
	ctx, span := s.tracer.Start(ctx, "booking.delete_session")
	defer span.End()

	if err := s.redis.Del(ctx, sessionStoreKey(platform, userID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking: failed to delete session: %w", err)
	}
	return nil
}

func sessionStoreKey(platform, userID string) string {
	return fmt.Sprintf("session:%s", SessionKey(platform, userID))
}
