package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const historyTTL = 24 * time.Hour

// historyStore keeps the short per-user conversation memory and the
// pending clarification state in Redis.
type historyStore struct {
	redis    *redis.Client
	maxTurns int
	tracer   trace.Tracer
}

func newHistoryStore(client *redis.Client, maxTurns int) *historyStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &historyStore{
		redis:    client,
		maxTurns: maxTurns,
		tracer:   otel.Tracer("clinic.internal.conversation.history"),
	}
}

// Append records one turn, keeping only the most recent maxTurns.
func (s *historyStore) Append(ctx context.Context, platform, userID string, turn Turn) error {
	ctx, span := s.tracer.Start(ctx, "conversation.append_history")
	defer span.End()

	history, err := s.Load(ctx, platform, userID)
	if err != nil {
		return err
	}
	history = append(history, turn)
	if len(history) > s.maxTurns {
		history = history[len(history)-s.maxTurns:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(platform, userID), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist history: %w", err)
	}
	return nil
}

// Load returns the stored turns, empty when none exist.
func (s *historyStore) Load(ctx context.Context, platform, userID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(platform, userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load history: %w", err)
	}

	var history []Turn
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode history: %w", err)
	}
	return history, nil
}

// SaveClarify persists the pending clarification state; nil deletes it.
func (s *historyStore) SaveClarify(ctx context.Context, platform, userID string, state *ClarifyState) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_clarify")
	defer span.End()

	if state == nil {
		if err := s.redis.Del(ctx, clarifyKey(platform, userID)).Err(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("conversation: failed to delete clarify state: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal clarify state: %w", err)
	}
	if err := s.redis.Set(ctx, clarifyKey(platform, userID), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist clarify state: %w", err)
	}
	return nil
}

// LoadClarify returns the pending clarification state, nil when none.
func (s *historyStore) LoadClarify(ctx context.Context, platform, userID string) (*ClarifyState, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_clarify")
	defer span.End()

	data, err := s.redis.Get(ctx, clarifyKey(platform, userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load clarify state: %w", err)
	}

	var state ClarifyState
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode clarify state: %w", err)
	}
	return &state, nil
}

func historyKey(platform, userID string) string {
	return fmt.Sprintf("history:%s:%s", platform, userID)
}

func clarifyKey(platform, userID string) string {
	return fmt.Sprintf("clarify:%s:%s", platform, userID)
}
