package conversation

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bluedeem/clinic-ai-platform/internal/booking"
	"github.com/bluedeem/clinic-ai-platform/internal/dedup"
	"github.com/bluedeem/clinic-ai-platform/internal/llm"
	"github.com/bluedeem/clinic-ai-platform/internal/observability/metrics"
	"github.com/bluedeem/clinic-ai-platform/internal/ratelimit"
	"github.com/bluedeem/clinic-ai-platform/internal/refdata"
	"github.com/bluedeem/clinic-ai-platform/pkg/logging"
)

const lockStripes = 64

// Inbound is one message delivered by a platform adapter.
type Inbound struct {
	Platform   string
	SenderID   string
	Text       string
	MessageID  string
	ReceivedAt time.Time
}

// SnapshotProvider yields the current reference data snapshot.
type SnapshotProvider interface {
	Current() *refdata.Snapshot
}

// ReservationCreator persists the reservation of a completed session.
type ReservationCreator interface {
	CreateReservation(ctx context.Context, sess *booking.Session) (string, error)
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Logger          *logging.Logger
	Redis           *redis.Client
	LLM             llm.Client
	Provider        SnapshotProvider
	Reservations    ReservationCreator
	Metrics         *metrics.RouterMetrics
	RateLimit       int
	DedupTTL        time.Duration
	SessionIdle     time.Duration
	HistoryTurns    int
	ClassifyTimeout time.Duration
	GenerateTimeout time.Duration
	Timezone        *time.Location
}

// Engine runs the full inbound pipeline: dedup gate, rate limiter,
// booking dispatch, classification, routing and formatting. One call
// per inbound message; an empty reply means drop without answering.
type Engine struct {
	logger       *logging.Logger
	dedup        *dedup.Store
	limiter      *ratelimit.Limiter
	classifier   *Classifier
	router       *Router
	formatter    *Formatter
	provider     SnapshotProvider
	sessions     *booking.SessionStore
	machine      *booking.Machine
	reservations ReservationCreator
	history      *historyStore
	llm          llm.Client
	metrics      *metrics.RouterMetrics
	genTimeout   time.Duration
	loc          *time.Location

	// per-(platform,user) serialization of the session read-modify-write
	locks [lockStripes]sync.Mutex
}

// NewEngine wires the pipeline from its shared stores.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Redis == nil {
		panic("conversation: redis client cannot be nil")
	}
	if cfg.Provider == nil {
		panic("conversation: snapshot provider cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Timezone
	if loc == nil {
		loc = time.UTC
	}
	genTimeout := cfg.GenerateTimeout
	if genTimeout <= 0 {
		genTimeout = 15 * time.Second
	}
	return &Engine{
		logger:       logger,
		dedup:        dedup.NewStore(cfg.Redis, cfg.DedupTTL),
		limiter:      ratelimit.NewLimiter(cfg.Redis, cfg.RateLimit),
		classifier:   NewClassifier(cfg.LLM, cfg.ClassifyTimeout, logger),
		router:       NewRouter(DefaultClarifyLimit),
		formatter:    NewFormatter(),
		provider:     cfg.Provider,
		sessions:     booking.NewSessionStore(cfg.Redis, 0),
		machine:      booking.NewMachine(cfg.SessionIdle),
		reservations: cfg.Reservations,
		history:      newHistoryStore(cfg.Redis, cfg.HistoryTurns),
		llm:          cfg.LLM,
		metrics:      cfg.Metrics,
		genTimeout:   genTimeout,
		loc:          loc,
	}
}

// HandleMessage processes one inbound message and returns the reply
// text. An empty reply with a nil error means the message was dropped
// (duplicate delivery, or rate limited past the single notice).
func (e *Engine) HandleMessage(ctx context.Context, msg Inbound) (string, error) {
	e.metrics.ObserveInbound(msg.Platform)

	first, err := e.dedup.MarkSeen(ctx, msg.Platform, msg.MessageID)
	if err != nil {
		// an unreachable dedup store must not block the message
		e.logger.Warn("dedup check failed", "platform", msg.Platform, "error", err)
	} else if !first {
		e.metrics.ObserveDropped(msg.Platform, "duplicate")
		return "", nil
	}

	limit, err := e.limiter.Allow(ctx, msg.Platform, msg.SenderID)
	if err != nil {
		e.logger.Warn("rate limit check failed", "platform", msg.Platform, "error", err)
	} else if !limit.Allowed {
		e.metrics.ObserveDropped(msg.Platform, "rate_limited")
		if limit.Notify {
			return e.formatter.ThrottleNotice(), nil
		}
		return "", nil
	}

	mu := e.lockFor(msg.Platform, msg.SenderID)
	mu.Lock()
	defer mu.Unlock()

	reply, err := e.process(ctx, msg)
	if err != nil {
		return "", err
	}
	if reply != "" {
		e.recordTurn(ctx, msg, reply)
	}
	return reply, nil
}

func (e *Engine) process(ctx context.Context, msg Inbound) (string, error) {
	now := msg.ReceivedAt.In(e.loc)
	if msg.ReceivedAt.IsZero() {
		now = time.Now().In(e.loc)
	}
	snap := e.provider.Current()

	sess, err := e.sessions.Get(ctx, msg.Platform, msg.SenderID)
	if err != nil && !errors.Is(err, booking.ErrSessionNotFound) {
		e.logger.Error("session load failed", "platform", msg.Platform, "error", err)
		return e.formatter.Apology(), nil
	}
	if sess != nil && sess.Open() {
		return e.continueBooking(ctx, msg, sess, snap, now)
	}

	history, err := e.history.Load(ctx, msg.Platform, msg.SenderID)
	if err != nil {
		e.logger.Warn("history load failed", "platform", msg.Platform, "error", err)
	}
	clarify, err := e.history.LoadClarify(ctx, msg.Platform, msg.SenderID)
	if err != nil {
		e.logger.Warn("clarify state load failed", "platform", msg.Platform, "error", err)
	}

	pendingField := ""
	if clarify != nil {
		pendingField = clarify.Field
	}
	classifyStart := time.Now()
	cls := e.classifier.Classify(ctx, msg.Text, history, snap, pendingField, now)
	if cls.Source == "llm" {
		e.metrics.ObserveLLMLatency("classify", time.Since(classifyStart).Seconds())
	}

	decision, nextClarify := e.router.Route(cls, snap, clarify, now)
	e.metrics.ObserveDecision(string(decision.Kind))
	if err := e.history.SaveClarify(ctx, msg.Platform, msg.SenderID, nextClarify); err != nil {
		e.logger.Warn("clarify state save failed", "platform", msg.Platform, "error", err)
	}

	switch decision.Kind {
	case DecisionBooking:
		return e.startBooking(ctx, msg, cls, now)
	case DecisionEscalate:
		return e.escalate(ctx, msg, history, snap), nil
	default:
		return e.formatter.Format(decision, snap), nil
	}
}

// startBooking opens a session, seeding any entities the opening
// message already carried.
func (e *Engine) startBooking(ctx context.Context, msg Inbound, cls Classification, now time.Time) (string, error) {
	sess := booking.NewSession(msg.Platform, msg.SenderID, now)
	e.machine.Seed(sess, cls.Entity(EntityService), cls.Entity(EntityBranch))

	if err := e.sessions.Save(ctx, sess); err != nil {
		e.logger.Error("session save failed", "platform", msg.Platform, "error", err)
		return e.formatter.Apology(), nil
	}
	return e.formatter.BookingPrompt(sess.State, false), nil
}

// continueBooking feeds the message to the state machine and persists
// the outcome. Persistence failures leave the stored session untouched
// so the user can retry the same step.
func (e *Engine) continueBooking(ctx context.Context, msg Inbound, sess *booking.Session, snap *refdata.Snapshot, now time.Time) (string, error) {
	res := e.machine.Advance(sess, msg.Text, snap, now)

	switch {
	case res.Invalid != nil:
		return e.formatter.BookingPrompt(res.Invalid.Field, true), nil

	case res.Cancelled:
		if err := e.sessions.Delete(ctx, msg.Platform, msg.SenderID); err != nil {
			e.logger.Error("session delete failed", "platform", msg.Platform, "error", err)
		}
		return e.formatter.Cancelled(), nil

	case res.Completed:
		if e.reservations == nil {
			return e.formatter.Apology(), nil
		}
		id, err := e.reservations.CreateReservation(ctx, sess)
		if err != nil {
			e.logger.Error("reservation create failed", "platform", msg.Platform, "error", err)
			return e.formatter.Apology(), nil
		}
		sess.ReservationID = id
		if err := e.sessions.Save(ctx, sess); err != nil {
			e.logger.Warn("closed session save failed", "platform", msg.Platform, "error", err)
		}
		return e.formatter.Confirmation(sess, snap), nil

	default:
		if err := e.sessions.Save(ctx, sess); err != nil {
			e.logger.Error("session save failed", "platform", msg.Platform, "error", err)
			return e.formatter.Apology(), nil
		}
		return e.formatter.BookingPrompt(res.Prompt, false), nil
	}
}

const generatePrompt = `You are the chat assistant of a medical clinic in Saudi Arabia.
Answer briefly and politely in the user's language (usually Saudi Arabic).
Only talk about the clinic, its doctors, services, prices and bookings.
If you do not know the answer, say so and suggest calling the clinic.

Clinic data:
Doctors: %s
Services: %s
Branches: %s`

// escalate asks the LLM for a reply, degrading to the generic fallback
// on any failure.
func (e *Engine) escalate(ctx context.Context, msg Inbound, history []Turn, snap *refdata.Snapshot) string {
	if e.llm == nil {
		return e.formatter.GenericFallback()
	}

	ctx, cancel := context.WithTimeout(ctx, e.genTimeout)
	defer cancel()

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	for _, t := range history {
		role := llm.ChatRoleUser
		if t.Role == "assistant" {
			role = llm.ChatRoleAssistant
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: t.Text})
	}
	messages = append(messages, llm.ChatMessage{Role: llm.ChatRoleUser, Content: msg.Text})

	start := time.Now()
	resp, err := e.llm.Complete(ctx, llm.Request{
		System: []string{fmt.Sprintf(generatePrompt,
			joinNames(doctorNames(snap)),
			joinNames(serviceNames(snap)),
			joinNames(branchNames(snap)),
		)},
		Messages:  messages,
		MaxTokens: 512,
	})
	e.metrics.ObserveLLMLatency("generate", time.Since(start).Seconds())
	if err != nil {
		e.logger.Warn("llm generation failed", "platform", msg.Platform, "error", err)
		return e.formatter.GenericFallback()
	}
	return e.formatter.Escalate(resp.Text)
}

func (e *Engine) recordTurn(ctx context.Context, msg Inbound, reply string) {
	now := time.Now()
	if err := e.history.Append(ctx, msg.Platform, msg.SenderID, Turn{Role: "user", Text: msg.Text, At: now}); err != nil {
		e.logger.Warn("history append failed", "platform", msg.Platform, "error", err)
		return
	}
	if err := e.history.Append(ctx, msg.Platform, msg.SenderID, Turn{Role: "assistant", Text: reply, At: now}); err != nil {
		e.logger.Warn("history append failed", "platform", msg.Platform, "error", err)
	}
}

func (e *Engine) lockFor(platform, userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(platform)))
	h.Write([]byte{':'})
	h.Write([]byte(userID))
	return &e.locks[h.Sum32()%lockStripes]
}
