package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluedeem/clinic-ai-platform/internal/refdata"
)

func testSnapshot() *refdata.Snapshot {
	return refdata.NewSnapshot(
		[]refdata.Doctor{{ID: "doc1", Name: "سارة الحربي", Specialty: "جلدية"}},
		[]refdata.Branch{{ID: "br1", Name: "فرع العليا"}, {ID: "br2", Name: "فرع الملقا"}},
		[]refdata.Service{{ID: "svc1", Name: "تنظيف البشرة"}, {ID: "svc2", Name: "ليزر"}},
		nil,
	)
}

func TestMachine_FullRunWithSkippedOptionals(t *testing.T) {
	m := NewMachine(30 * time.Minute)
	snap := testSnapshot()
	now := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)

	sess := NewSession("whatsapp", "user-1", now)
	require.Equal(t, StateName, sess.State)

	res := m.Advance(sess, "محمد العتيبي", snap, now)
	assert.Equal(t, StatePhone, res.Prompt)

	res = m.Advance(sess, "+966512345678", snap, now)
	assert.Equal(t, StateService, res.Prompt)
	assert.Equal(t, "0512345678", sess.Phone)

	res = m.Advance(sess, "تنظيف البشرة", snap, now)
	assert.Equal(t, StateBranch, res.Prompt)
	assert.Equal(t, "svc1", sess.ServiceID)

	res = m.Advance(sess, "skip", snap, now)
	assert.Equal(t, StateDateTime, res.Prompt)
	assert.True(t, sess.BranchSkipped)

	res = m.Advance(sess, "لا", snap, now)
	assert.True(t, res.Completed)
	assert.Equal(t, StateDone, sess.State)
	assert.Empty(t, sess.BranchID)
	assert.Empty(t, sess.DateTime)
}

func TestMachine_InvalidPhoneKeepsState(t *testing.T) {
	m := NewMachine(30 * time.Minute)
	snap := testSnapshot()
	now := time.Now()

	sess := NewSession("instagram", "user-2", now)
	m.Advance(sess, "نورة", snap, now)
	require.Equal(t, StatePhone, sess.State)

	res := m.Advance(sess, "12345", snap, now)
	require.NotNil(t, res.Invalid)
	assert.Equal(t, StatePhone, res.Invalid.Field)
	assert.Equal(t, StatePhone, res.Prompt)
	assert.Equal(t, StatePhone, sess.State)
	assert.Empty(t, sess.Phone)

	res = m.Advance(sess, "0555555555", snap, now)
	assert.Nil(t, res.Invalid)
	assert.Equal(t, StateService, sess.State)
}

func TestMachine_EmptyNameRejected(t *testing.T) {
	m := NewMachine(0)
	sess := NewSession("whatsapp", "u", time.Now())

	res := m.Advance(sess, "   ", nil, time.Now())
	require.NotNil(t, res.Invalid)
	assert.Equal(t, StateName, sess.State)
}

func TestMachine_ServiceFuzzyMatch(t *testing.T) {
	m := NewMachine(0)
	snap := testSnapshot()
	now := time.Now()

	sess := NewSession("whatsapp", "u", now)
	m.Advance(sess, "ريم", snap, now)
	m.Advance(sess, "0501234567", snap, now)

	res := m.Advance(sess, "عندكم تنظيف البشرة؟", snap, now)
	assert.Nil(t, res.Invalid)
	assert.Equal(t, "svc1", sess.ServiceID)
}

func TestMachine_DateTimeParsing(t *testing.T) {
	m := NewMachine(0)
	snap := testSnapshot()
	// Wednesday
	now := time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC)

	sess := NewSession("whatsapp", "u", now)
	m.Advance(sess, "ريم", snap, now)
	m.Advance(sess, "0501234567", snap, now)
	m.Advance(sess, "ليزر", snap, now)
	m.Advance(sess, "فرع العليا", snap, now)
	require.Equal(t, StateDateTime, sess.State)
	assert.Equal(t, "br1", sess.BranchID)

	res := m.Advance(sess, "بكرة 4:30", snap, now)
	assert.True(t, res.Completed)
	assert.Equal(t, "2025-06-05 04:30", sess.DateTime)
}

func TestMachine_InvalidDateReprompts(t *testing.T) {
	m := NewMachine(0)
	snap := testSnapshot()
	now := time.Now()

	sess := NewSession("whatsapp", "u", now)
	m.Advance(sess, "ريم", snap, now)
	m.Advance(sess, "0501234567", snap, now)
	m.Advance(sess, "ليزر", snap, now)
	m.Advance(sess, "skip", snap, now)
	require.Equal(t, StateDateTime, sess.State)

	res := m.Advance(sess, "وقت ما يناسبكم", snap, now)
	require.NotNil(t, res.Invalid)
	assert.Equal(t, StateDateTime, sess.State)
}

func TestMachine_CancelWord(t *testing.T) {
	m := NewMachine(0)
	now := time.Now()
	sess := NewSession("tiktok", "u", now)

	res := m.Advance(sess, "الغاء", nil, now)
	assert.True(t, res.Cancelled)
	assert.Equal(t, StateCancelled, sess.State)
	assert.False(t, sess.Open())
}

func TestMachine_IdleTimeoutCancels(t *testing.T) {
	m := NewMachine(30 * time.Minute)
	start := time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC)
	sess := NewSession("whatsapp", "u", start)

	res := m.Advance(sess, "ريم", nil, start.Add(31*time.Minute))
	assert.True(t, res.Cancelled)
	assert.Equal(t, StateCancelled, sess.State)
}

func TestMachine_SeedPrefillsService(t *testing.T) {
	m := NewMachine(0)
	now := time.Now()
	sess := NewSession("whatsapp", "u", now)

	m.Seed(sess, "svc2", "")
	assert.Equal(t, StateName, sess.State)

	snap := testSnapshot()
	m.Advance(sess, "ريم", snap, now)
	m.Advance(sess, "0501234567", snap, now)
	// service already seeded, machine asks for branch next
	assert.Equal(t, StateBranch, sess.State)
}
