package booking

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bluedeem/clinic-ai-platform/internal/refdata"
	"github.com/bluedeem/clinic-ai-platform/internal/text"
)

const maxNameLength = 80

var timeOfDayRe = regexp.MustCompile(`\b(\d{1,2})[:.](\d{2})\b`)

var skipWords = map[string]struct{}{
	"skip": {}, "no": {}, "none": {},
	"لا": {}, "تخطي": {}, "بدون": {},
}

var cancelWords = map[string]struct{}{
	"cancel": {}, "stop": {},
	"الغاء": {}, "الغي": {}, "كنسل": {},
}

// Result is the outcome of feeding one message to the state machine.
type Result struct {
	// Prompt is the field the user should be asked for next. For a
	// rejected input it repeats the current field.
	Prompt State
	// Invalid is set when the input failed validation for the current
	// field. State has not advanced.
	Invalid *ValidationError
	// Completed is set when the session just reached done.
	Completed bool
	// Cancelled is set when the user cancelled the session.
	Cancelled bool
}

// Machine advances booking sessions through the fixed field sequence.
// It is pure with respect to storage: callers own loading and saving
// the session.
type Machine struct {
	idleTimeout time.Duration
}

// NewMachine builds a state machine with the given inactivity window.
func NewMachine(idleTimeout time.Duration) *Machine {
	return &Machine{idleTimeout: idleTimeout}
}

// Seed pre-fills fields extracted from the message that opened the
// session, so the user is not asked for what they already said.
func (m *Machine) Seed(sess *Session, serviceID, branchID string) {
	if serviceID != "" {
		sess.ServiceID = serviceID
	}
	if branchID != "" {
		sess.BranchID = branchID
	}
	sess.State = sess.pending()
}

// Advance feeds one inbound message to the session. Invalid input
// leaves the session state untouched and reports the rejection; valid
// input records the field and moves to the next pending one.
func (m *Machine) Advance(sess *Session, input string, snap *refdata.Snapshot, now time.Time) Result {
	if sess.Expired(now, m.idleTimeout) {
		sess.State = StateCancelled
		return Result{Prompt: StateCancelled, Cancelled: true}
	}

	normalized := text.Normalize(input)
	if _, ok := cancelWords[normalized]; ok {
		sess.State = StateCancelled
		sess.UpdatedAt = now
		return Result{Prompt: StateCancelled, Cancelled: true}
	}

	switch sess.State {
	case StateName:
		name := strings.TrimSpace(input)
		if name == "" || utf8.RuneCountInString(name) > maxNameLength {
			return Result{Prompt: StateName, Invalid: &ValidationError{Field: StateName, Reason: "empty or too long"}}
		}
		sess.Name = name

	case StatePhone:
		phone, ok := NormalizePhone(input)
		if !ok {
			return Result{Prompt: StatePhone, Invalid: &ValidationError{Field: StatePhone, Reason: "not a valid mobile number"}}
		}
		sess.Phone = phone

	case StateService:
		if snap == nil {
			return Result{Prompt: StateService, Invalid: &ValidationError{Field: StateService, Reason: "reference data unavailable"}}
		}
		svc, ok := snap.MatchService(input)
		if !ok {
			return Result{Prompt: StateService, Invalid: &ValidationError{Field: StateService, Reason: "no matching service"}}
		}
		sess.ServiceID = svc.ID

	case StateBranch:
		if _, skip := skipWords[normalized]; skip {
			sess.BranchSkipped = true
			break
		}
		if snap == nil {
			sess.BranchSkipped = true
			break
		}
		br, ok := snap.MatchBranch(input)
		if !ok {
			return Result{Prompt: StateBranch, Invalid: &ValidationError{Field: StateBranch, Reason: "no matching branch"}}
		}
		sess.BranchID = br.ID

	case StateDateTime:
		if _, skip := skipWords[normalized]; skip {
			sess.DateTimeSkipped = true
			break
		}
		when, ok := text.ParseRelativeDate(input, now)
		if !ok {
			return Result{Prompt: StateDateTime, Invalid: &ValidationError{Field: StateDateTime, Reason: "unrecognized date"}}
		}
		sess.DateTime = formatDateTime(when, input)

	default:
		// Terminal sessions accept no further input.
		return Result{Prompt: sess.State}
	}

	sess.UpdatedAt = now
	sess.State = sess.pending()

	if sess.State == StateDone {
		return Result{Prompt: StateDone, Completed: true}
	}
	return Result{Prompt: sess.State}
}

// formatDateTime renders the accepted date, keeping an explicit
// hour:minute from the raw input when one was given.
func formatDateTime(day time.Time, raw string) string {
	date := day.Format("2006-01-02")
	m := timeOfDayRe.FindStringSubmatch(text.Normalize(raw))
	if m == nil {
		return date
	}
	hh := m[1]
	if len(hh) == 1 {
		hh = "0" + hh
	}
	return date + " " + hh + ":" + m[2]
}
