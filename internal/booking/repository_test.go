package booking

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedSession() *Session {
	now := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)
	sess := NewSession("whatsapp", "user-1", now)
	sess.Name = "محمد العتيبي"
	sess.Phone = "0512345678"
	sess.ServiceID = "svc1"
	sess.BranchSkipped = true
	sess.DateTimeSkipped = true
	sess.State = StateDone
	return sess
}

func TestRepository_CreateReservation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sess := completedSession()
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(pgxmock.AnyArg(), sess.ID, "whatsapp", "user-1", sess.Name, sess.Phone, "svc1", nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewRepository(mock)
	id, err := repo.CreateReservation(context.Background(), sess)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateReservationIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sess := completedSession()

	// conflict on the session id inserts nothing; repository returns the
	// id of the row the first delivery created
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(pgxmock.AnyArg(), sess.ID, "whatsapp", "user-1", sess.Name, sess.Phone, "svc1", nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT id FROM reservations").
		WithArgs(sess.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("existing-id"))

	repo := NewRepository(mock)
	id, err := repo.CreateReservation(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RepeatBookingBySameUserInsertsNewRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	first := completedSession()
	second := completedSession()
	second.ServiceID = "svc2"
	require.NotEqual(t, first.ID, second.ID, "each session carries its own id")

	// both sessions belong to the same (platform, user) but conflict on
	// different keys, so the second booking persists its own row
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(pgxmock.AnyArg(), first.ID, "whatsapp", "user-1", first.Name, first.Phone, "svc1", nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(pgxmock.AnyArg(), second.ID, "whatsapp", "user-1", second.Name, second.Phone, "svc2", nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewRepository(mock)
	firstID, err := repo.CreateReservation(context.Background(), first)
	require.NoError(t, err)
	secondID, err := repo.CreateReservation(context.Background(), second)
	require.NoError(t, err)

	assert.NotEqual(t, firstID, secondID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetReservation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 6, 4, 10, 5, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "session_key", "platform", "user_id", "name", "phone",
		"service_id", "branch_id", "date_time", "created_at",
	}).AddRow("res-1", "sess-abc", "whatsapp", "user-1", "محمد", "0512345678", "svc1", "", "", created)

	mock.ExpectQuery("SELECT (.+) FROM reservations").
		WithArgs("res-1").
		WillReturnRows(rows)

	repo := NewRepository(mock)
	res, err := repo.GetReservation(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-abc", res.SessionKey)
	assert.Empty(t, res.BranchID)
	assert.Equal(t, created, res.CreatedAt)
}
