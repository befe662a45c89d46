package conversation

import (
	"time"

	"github.com/bluedeem/clinic-ai-platform/internal/refdata"
)

// Intent is the classified purpose of a user message. Closed set: the
// router's decision table only understands these values.
type Intent string

const (
	IntentGreeting            Intent = "greeting"
	IntentBookingRequest      Intent = "booking_request"
	IntentAvailabilityQuery   Intent = "availability_query"
	IntentPriceQuery          Intent = "price_query"
	IntentInfoQuery           Intent = "info_query"
	IntentClarificationAnswer Intent = "clarification_answer"
	IntentUnknown             Intent = "unknown"
)

// Entity field names used in Classification.Entities. A "<name>_raw"
// key carries the user's text when it did not resolve to a known id.
const (
	EntityDoctor  = "doctor"
	EntityService = "service"
	EntityBranch  = "branch"
	EntityDate    = "date"
	EntityPhone   = "phone"
)

// Classification is the classifier's immutable verdict on one message.
type Classification struct {
	Intent     Intent            `json:"intent"`
	Entities   map[string]string `json:"entities"`
	Confidence float64           `json:"confidence"`
	// Source records which path produced the result: "rules" or "llm".
	Source string `json:"-"`
}

// Entity returns the resolved value for a field, or "".
func (c Classification) Entity(name string) string {
	return c.Entities[name]
}

// DecisionKind is the routing outcome for one classified message.
type DecisionKind string

const (
	// DecisionBooking dispatches the message to the booking state machine.
	DecisionBooking DecisionKind = "booking"
	// DecisionDirect answers from reference data alone.
	DecisionDirect DecisionKind = "direct"
	// DecisionClarify asks the user for exactly one unresolved field.
	DecisionClarify DecisionKind = "clarify"
	// DecisionEscalate hands the message to the LLM for a generated reply.
	DecisionEscalate DecisionKind = "escalate"
)

// Decision carries the routing outcome plus the resolved data the
// formatter needs to render it.
type Decision struct {
	Kind   DecisionKind
	Intent Intent

	// Direct payloads, populated per intent.
	Doctor  *refdata.Doctor
	Service *refdata.Service
	Branch  *refdata.Branch

	// Availability answer: the day-specific row when one exists for
	// (AvailabilityDate, Doctor), otherwise nil and the formatter
	// renders the weekly schedule only.
	Availability     *refdata.Availability
	AvailabilityDate string

	// ClarifyField names the single unresolved field.
	ClarifyField string
}

// Turn is one exchange in the short conversation memory fed to the
// classifier and the LLM.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}
