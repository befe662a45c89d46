package conversation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bluedeem/clinic-ai-platform/internal/booking"
	"github.com/bluedeem/clinic-ai-platform/internal/llm"
	"github.com/bluedeem/clinic-ai-platform/internal/refdata"
	"github.com/bluedeem/clinic-ai-platform/internal/text"
	"github.com/bluedeem/clinic-ai-platform/pkg/logging"
)

const (
	// ruleConfidence is reported when the keyword/fuzzy path
	// short-circuits without consulting the LLM.
	ruleConfidence = 0.9
	// partialConfidence is reported when rules found an intent but not
	// all of its required entities.
	partialConfidence = 0.5

	classifyCacheTTL = 5 * time.Minute
)

// Keyword tables are matched against normalized text, so Arabic
// spelling variants collapse before lookup.
var intentKeywords = map[Intent][]string{
	IntentGreeting: {
		"مرحبا", "هلا", "اهلا", "اهلين", "السلام عليكم", "صباح الخير",
		"مساء الخير", "شكرا", "يعطيك العافيه", "مع السلامه",
		"hi", "hello", "hey", "thanks", "thank you", "bye",
	},
	IntentBookingRequest: {
		"حجز", "احجز", "ابغي احجز", "ابي موعد", "ابغي موعد", "موعد",
		"اريد حجز", "احجزلي", "book", "appointment", "booking", "reserve",
	},
	IntentPriceQuery: {
		"سعر", "اسعار", "بكم", "كم سعر", "تكلفه", "التكلفه", "كم يكلف",
		"price", "prices", "cost", "how much",
	},
	IntentAvailabilityQuery: {
		"موجود", "موجوده", "متواجد", "متواجده", "دوام", "متي يداوم",
		"يداوم", "شفت", "available", "schedule", "working today", "on duty",
	},
	IntentInfoQuery: {
		"عنوان", "وين", "موقع", "موقعكم", "فين", "ساعات العمل", "مواعيد العمل",
		"address", "location", "where", "hours", "directions",
	},
}

type cacheEntry struct {
	cls       Classification
	expiresAt time.Time
}

// Classifier produces a Classification per message. The deterministic
// keyword/fuzzy path handles the bulk of traffic; only messages it
// cannot place are sent to the LLM with a structured-output contract.
type Classifier struct {
	llm     llm.Client
	timeout time.Duration
	logger  *logging.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewClassifier builds a classifier. client may be nil, in which case
// unmatched messages classify as unknown.
func NewClassifier(client llm.Client, timeout time.Duration, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Classifier{
		llm:     client,
		timeout: timeout,
		logger:  logger,
		cache:   make(map[string]cacheEntry),
	}
}

// Classify runs the deterministic path first and short-circuits when it
// finds an intent. The LLM is consulted only when the rules found
// nothing; its intent verdict is taken as-is, with rule-extracted
// entities backfilling any entity types it missed. pendingField narrows
// extraction while the router awaits a clarification answer. now is the
// caller's clock in the clinic timezone; relative dates resolve
// against it.
func (c *Classifier) Classify(ctx context.Context, message string, history []Turn, snap *refdata.Snapshot, pendingField string, now time.Time) Classification {
	norm := text.Normalize(message)
	if norm == "" {
		return Classification{Intent: IntentUnknown, Entities: map[string]string{}, Source: "rules"}
	}

	entities := extractEntities(message, snap, now)

	if pendingField != "" {
		if _, ok := entities[pendingField]; ok {
			return Classification{
				Intent:     IntentClarificationAnswer,
				Entities:   entities,
				Confidence: ruleConfidence,
				Source:     "rules",
			}
		}
	}

	intent := scoreIntent(norm)
	if intent != IntentUnknown {
		cls := Classification{
			Intent:     intent,
			Entities:   entities,
			Confidence: ruleConfidence,
			Source:     "rules",
		}
		if missingRequired(intent, entities) != "" {
			cls.Confidence = partialConfidence
		}
		return cls
	}

	llmCls, err := c.classifyLLM(ctx, message, history, snap)
	if err != nil {
		c.logger.Warn("llm classification failed", "error", err)
		return Classification{Intent: IntentUnknown, Entities: entities, Source: "rules"}
	}
	// rule-extracted entities backfill types the verdict lacks; the
	// verdict's own resolutions are never overwritten. Clone so the
	// cached entry stays untouched.
	merged := make(map[string]string, len(llmCls.Entities)+len(entities))
	for field, val := range llmCls.Entities {
		merged[field] = val
	}
	for field, val := range entities {
		if _, ok := merged[field]; !ok {
			merged[field] = val
		}
	}
	llmCls.Entities = merged
	return llmCls
}

// scoreIntent counts keyword hits per intent and returns the best
// scoring one, unknown when nothing matched.
func scoreIntent(norm string) Intent {
	best, bestScore := IntentUnknown, 0
	// deterministic iteration order so ties resolve the same way every time
	for _, intent := range []Intent{
		IntentBookingRequest,
		IntentAvailabilityQuery,
		IntentPriceQuery,
		IntentInfoQuery,
		IntentGreeting,
	} {
		score := 0
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(norm, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = intent, score
		}
	}
	return best
}

// extractEntities fuzzy-matches the message against the snapshot and
// pulls out phone/date tokens. Resolved entities are stored under their
// field name; a "<field>_raw" entry marks a mention that failed to
// resolve.
func extractEntities(message string, snap *refdata.Snapshot, now time.Time) map[string]string {
	entities := map[string]string{}

	if phone, ok := booking.NormalizePhone(message); ok {
		entities[EntityPhone] = phone
	}
	if day, ok := text.ParseRelativeDate(message, now); ok {
		entities[EntityDate] = day.Format("2006-01-02")
	}

	if snap == nil {
		return entities
	}
	if d, ok := snap.MatchDoctor(message); ok {
		entities[EntityDoctor] = d.ID
	}
	if s, ok := snap.MatchService(message); ok {
		entities[EntityService] = s.ID
	}
	if b, ok := snap.MatchBranch(message); ok {
		entities[EntityBranch] = b.ID
	}
	return entities
}

const classifyPrompt = `You classify messages sent to a medical clinic's chat assistant.
Messages are mostly Saudi Arabic, sometimes English.

Intents:
- greeting: greetings, thanks, goodbyes
- booking_request: wants to book an appointment
- availability_query: asks whether a doctor is in or about working hours of a doctor
- price_query: asks about the price of a service
- info_query: asks about clinic locations, addresses, opening hours
- unknown: anything else

Known doctors: %s
Known services: %s
Known branches: %s

Recent turns:
%s

Message: %s

Respond with JSON only:
{"intent": "<intent>", "entities": {"doctor": "<name or empty>", "service": "<name or empty>", "branch": "<name or empty>"}, "confidence": <0..1>}`

type llmVerdict struct {
	Intent     string            `json:"intent"`
	Entities   map[string]string `json:"entities"`
	Confidence float64           `json:"confidence"`
}

func (c *Classifier) classifyLLM(ctx context.Context, message string, history []Turn, snap *refdata.Snapshot) (Classification, error) {
	if c.llm == nil {
		return Classification{}, fmt.Errorf("conversation: no llm client configured")
	}

	key := cacheKey(message)
	if cls, ok := c.cached(key); ok {
		return cls, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := fmt.Sprintf(classifyPrompt,
		joinNames(doctorNames(snap)),
		joinNames(serviceNames(snap)),
		joinNames(branchNames(snap)),
		renderHistory(history),
		message,
	)

	resp, err := c.llm.Complete(ctx, llm.Request{
		Messages:     []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: prompt}},
		ResponseJSON: true,
		MaxTokens:    256,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("conversation: classify: %w", err)
	}

	var verdict llmVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Text)), &verdict); err != nil {
		return Classification{}, fmt.Errorf("conversation: classify: %w: %v", llm.ErrSchemaViolation, err)
	}
	cls, ok := verdictToClassification(verdict, snap)
	if !ok {
		return Classification{}, fmt.Errorf("conversation: classify: %w: intent %q", llm.ErrSchemaViolation, verdict.Intent)
	}

	c.store(key, cls)
	return cls, nil
}

// verdictToClassification validates the LLM output against the closed
// intent set and re-resolves its entity names against the snapshot,
// keeping raw mentions that fail to resolve.
func verdictToClassification(v llmVerdict, snap *refdata.Snapshot) (Classification, bool) {
	intent := Intent(v.Intent)
	switch intent {
	case IntentGreeting, IntentBookingRequest, IntentAvailabilityQuery,
		IntentPriceQuery, IntentInfoQuery, IntentUnknown:
	default:
		return Classification{}, false
	}

	entities := map[string]string{}
	if snap != nil {
		if name := v.Entities[EntityDoctor]; name != "" {
			if d, ok := snap.MatchDoctor(name); ok {
				entities[EntityDoctor] = d.ID
			} else {
				entities[EntityDoctor+"_raw"] = name
			}
		}
		if name := v.Entities[EntityService]; name != "" {
			if s, ok := snap.MatchService(name); ok {
				entities[EntityService] = s.ID
			} else {
				entities[EntityService+"_raw"] = name
			}
		}
		if name := v.Entities[EntityBranch]; name != "" {
			if b, ok := snap.MatchBranch(name); ok {
				entities[EntityBranch] = b.ID
			} else {
				entities[EntityBranch+"_raw"] = name
			}
		}
	}

	conf := v.Confidence
	if conf < 0 || conf > 1 {
		conf = 0
	}
	return Classification{Intent: intent, Entities: entities, Confidence: conf, Source: "llm"}, true
}

func (c *Classifier) cached(key string) (Classification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.cache, key)
		return Classification{}, false
	}
	return entry.cls, true
}

func (c *Classifier) store(key string, cls Classification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// lazy eviction keeps the map bounded without a sweeper goroutine
	now := time.Now()
	for k, e := range c.cache {
		if now.After(e.expiresAt) {
			delete(c.cache, k)
		}
	}
	c.cache[key] = cacheEntry{cls: cls, expiresAt: now.Add(classifyCacheTTL)}
}

func cacheKey(message string) string {
	sum := sha256.Sum256([]byte(text.Normalize(message)))
	return hex.EncodeToString(sum[:])
}

func renderHistory(history []Turn) string {
	if len(history) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, t := range history {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	return b.String()
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func doctorNames(snap *refdata.Snapshot) []string {
	if snap == nil {
		return nil
	}
	var names []string
	for _, d := range snap.Doctors() {
		names = append(names, d.Name)
	}
	return names
}

func serviceNames(snap *refdata.Snapshot) []string {
	if snap == nil {
		return nil
	}
	var names []string
	for _, s := range snap.Services() {
		names = append(names, s.Name)
	}
	return names
}

func branchNames(snap *refdata.Snapshot) []string {
	if snap == nil {
		return nil
	}
	var names []string
	for _, b := range snap.Branches() {
		names = append(names, b.Name)
	}
	return names
}
