package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State identifies the field the session is currently collecting, or a
// terminal outcome.
type State string

const (
	StateName      State = "name"
	StatePhone     State = "phone"
	StateService   State = "service"
	StateBranch    State = "branch"
	StateDateTime  State = "date_time"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further input is expected.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

// Session is one user's in-progress booking conversation. Exactly one
// session exists per (platform, user) at a time, but each opened
// session carries its own ID so a finished one never shadows the next.
type Session struct {
	// ID uniquely identifies this session instance. It is the
	// idempotency key for the reservation the session produces.
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	UserID    string    `json:"user_id"`
	State     State     `json:"state"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	ServiceID string    `json:"service_id,omitempty"`
	BranchID  string    `json:"branch_id,omitempty"`
	DateTime  string    `json:"date_time,omitempty"`
	// Skipped optional fields are recorded so the pending-state walk
	// does not re-ask for them.
	BranchSkipped   bool      `json:"branch_skipped,omitempty"`
	DateTimeSkipped bool      `json:"date_time_skipped,omitempty"`
	ReservationID   string    `json:"reservation_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewSession opens a session at the first pending field.
func NewSession(platform, userID string, now time.Time) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Platform:  platform,
		UserID:    userID,
		State:     StateName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Key returns the session store key for this session.
func (s *Session) Key() string {
	return SessionKey(s.Platform, s.UserID)
}

// SessionKey builds the canonical (platform, user) session key.
func SessionKey(platform, userID string) string {
	return fmt.Sprintf("%s:%s", platform, userID)
}

// Open reports whether the session still expects input.
func (s *Session) Open() bool {
	return !s.State.Terminal()
}

// Expired reports whether the session has been idle longer than the
// given window. Evaluated lazily when the next message arrives.
func (s *Session) Expired(now time.Time, idle time.Duration) bool {
	if idle <= 0 {
		return false
	}
	return now.Sub(s.UpdatedAt) > idle
}

// pending returns the first field that still needs a value, honoring
// recorded skips for the optional fields.
func (s *Session) pending() State {
	switch {
	case s.Name == "":
		return StateName
	case s.Phone == "":
		return StatePhone
	case s.ServiceID == "":
		return StateService
	case s.BranchID == "" && !s.BranchSkipped:
		return StateBranch
	case s.DateTime == "" && !s.DateTimeSkipped:
		return StateDateTime
	default:
		return StateDone
	}
}
