package conversation

import (
	"strings"
	"time"

	"github.com/bluedeem/clinic-ai-platform/internal/refdata"
)

// DefaultClarifyLimit bounds consecutive clarification prompts for the
// same field before the router gives up and escalates.
const DefaultClarifyLimit = 3

// requiredEntities lists the fields each intent must resolve before a
// Direct answer is possible.
var requiredEntities = map[Intent][]string{
	IntentAvailabilityQuery: {EntityDoctor},
	IntentPriceQuery:        {EntityService},
}

// missingRequired returns the first required field with no resolved
// value, or "" when the intent is fully grounded.
func missingRequired(intent Intent, entities map[string]string) string {
	for _, field := range requiredEntities[intent] {
		if entities[field] == "" {
			return field
		}
	}
	return ""
}

// ClarifyState tracks an in-flight clarification: which intent is
// waiting, which field was asked for, and how many times in a row.
type ClarifyState struct {
	Intent Intent `json:"intent"`
	Field  string `json:"field"`
	Count  int    `json:"count"`
}

// Router turns a Classification into a routing decision. The decision
// table runs in order, first match wins.
type Router struct {
	clarifyLimit int
}

// NewRouter builds a router; limit <= 0 means DefaultClarifyLimit.
func NewRouter(clarifyLimit int) *Router {
	if clarifyLimit <= 0 {
		clarifyLimit = DefaultClarifyLimit
	}
	return &Router{clarifyLimit: clarifyLimit}
}

// Route decides how to answer one classified message. prior is the
// pending clarification state, nil when none. The returned state is
// non-nil only for a Clarify decision and replaces the stored one.
func (r *Router) Route(cls Classification, snap *refdata.Snapshot, prior *ClarifyState, now time.Time) (Decision, *ClarifyState) {
	// A clarification answer re-enters the table as the intent that
	// asked for it, with the newly supplied entity.
	if cls.Intent == IntentClarificationAnswer && prior != nil {
		cls = Classification{
			Intent:     prior.Intent,
			Entities:   cls.Entities,
			Confidence: cls.Confidence,
			Source:     cls.Source,
		}
	}

	switch cls.Intent {
	case IntentBookingRequest:
		return Decision{Kind: DecisionBooking, Intent: cls.Intent}, nil
	case IntentGreeting:
		return Decision{Kind: DecisionDirect, Intent: cls.Intent}, nil
	case IntentUnknown:
		return Decision{Kind: DecisionEscalate, Intent: cls.Intent}, nil
	}

	if snap == nil {
		// no reference data to ground against
		return Decision{Kind: DecisionEscalate, Intent: cls.Intent}, nil
	}

	if n := unresolvedCount(cls); n >= 2 {
		return Decision{Kind: DecisionEscalate, Intent: cls.Intent}, nil
	}

	if field := missingRequired(cls.Intent, cls.Entities); field != "" {
		return r.clarify(cls.Intent, field, prior)
	}

	return r.direct(cls, snap, now), nil
}

// clarify asks for the one unresolved field, escalating once the same
// field has been asked about clarifyLimit times in a row.
func (r *Router) clarify(intent Intent, field string, prior *ClarifyState) (Decision, *ClarifyState) {
	count := 1
	if prior != nil && prior.Field == field {
		count = prior.Count + 1
	}
	if count > r.clarifyLimit {
		return Decision{Kind: DecisionEscalate, Intent: intent}, nil
	}
	return Decision{Kind: DecisionClarify, Intent: intent, ClarifyField: field},
		&ClarifyState{Intent: intent, Field: field, Count: count}
}

// direct resolves the grounded entities into the payload the formatter
// renders.
func (r *Router) direct(cls Classification, snap *refdata.Snapshot, now time.Time) Decision {
	d := Decision{Kind: DecisionDirect, Intent: cls.Intent}

	switch cls.Intent {
	case IntentAvailabilityQuery:
		doc, _ := snap.Doctor(cls.Entity(EntityDoctor))
		d.Doctor = &doc
		date := cls.Entity(EntityDate)
		if date == "" {
			date = now.Format("2006-01-02")
		}
		d.AvailabilityDate = date
		// Day-specific row wins; without one the formatter states the
		// recurring weekly schedule and never claims day-of presence.
		if row, ok := snap.AvailabilityOn(date, doc.ID); ok {
			d.Availability = &row
		}

	case IntentPriceQuery:
		svc, _ := snap.Service(cls.Entity(EntityService))
		d.Service = &svc

	case IntentInfoQuery:
		if id := cls.Entity(EntityBranch); id != "" {
			if br, ok := snap.Branch(id); ok {
				d.Branch = &br
			}
		}
	}
	return d
}

// unresolvedCount counts required fields with no value plus entity
// mentions that failed to resolve against reference data.
func unresolvedCount(cls Classification) int {
	n := 0
	for _, field := range requiredEntities[cls.Intent] {
		if cls.Entities[field] == "" {
			n++
		}
	}
	for key := range cls.Entities {
		if !strings.HasSuffix(key, "_raw") {
			continue
		}
		field := strings.TrimSuffix(key, "_raw")
		if cls.Entities[field] == "" && !isRequired(cls.Intent, field) {
			n++
		}
	}
	return n
}

func isRequired(intent Intent, field string) bool {
	for _, f := range requiredEntities[intent] {
		if f == field {
			return true
		}
	}
	return false
}
