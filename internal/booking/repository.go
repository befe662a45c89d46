package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Reservation is the finalized booking record produced when a session
// reaches done.
type Reservation struct {
	ID         string
	SessionKey string
	Platform   string
	UserID     string
	Name       string
	Phone      string
	ServiceID  string
	BranchID   string
	DateTime   string
	CreatedAt  time.Time
}

// Querier is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores reservations in the relational database.
type Repository struct {
	db Querier
}

// NewRepository initializes a repository backed by a pgx pool.
func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("booking: pgx pool required")
	}
	return &Repository{db: db}
}

// CreateReservation persists the reservation produced by a completed
// session. Idempotent per session instance: a re-delivered final
// message finds the existing row via the unique constraint on the
// session id and returns its id instead of inserting a second one. A
// later session by the same user carries a fresh id, so repeat
// bookings insert normally.
func (r *Repository) CreateReservation(ctx context.Context, sess *Session) (string, error) {
	if sess.ID == "" {
		return "", fmt.Errorf("booking: session has no id")
	}
	id := uuid.New().String()
	query := `
		INSERT INTO reservations (id, session_key, platform, user_id, name, phone, service_id, branch_id, date_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_key) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		id,
		sess.ID,
		sess.Platform,
		sess.UserID,
		sess.Name,
		sess.Phone,
		sess.ServiceID,
		nullable(sess.BranchID),
		nullable(sess.DateTime),
	)
	if err != nil {
		return "", fmt.Errorf("booking: insert reservation: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return id, nil
	}

	var existing string
	row := r.db.QueryRow(ctx, `SELECT id FROM reservations WHERE session_key = $1`, sess.ID)
	if err := row.Scan(&existing); err != nil {
		return "", fmt.Errorf("booking: lookup existing reservation: %w", err)
	}
	return existing, nil
}

// GetReservation fetches one reservation by id.
func (r *Repository) GetReservation(ctx context.Context, id string) (*Reservation, error) {
	query := `
		SELECT id, session_key, platform, user_id, name, phone, service_id,
		       COALESCE(branch_id, ''), COALESCE(date_time, ''), created_at
		FROM reservations
		WHERE id = $1
	`
	var res Reservation
	row := r.db.QueryRow(ctx, query, id)
	if err := row.Scan(
		&res.ID,
		&res.SessionKey,
		&res.Platform,
		&res.UserID,
		&res.Name,
		&res.Phone,
		&res.ServiceID,
		&res.BranchID,
		&res.DateTime,
		&res.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("booking: reservation %s not found", id)
		}
		return nil, fmt.Errorf("booking: select reservation: %w", err)
	}
	return &res, nil
}

// nullable maps the empty string to NULL so skipped optional fields are
// stored as absent rather than "".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
