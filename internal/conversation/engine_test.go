package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluedeem/clinic-ai-platform/internal/booking"
	"github.com/bluedeem/clinic-ai-platform/internal/llm"
	"github.com/bluedeem/clinic-ai-platform/internal/refdata"
)

type fakeProvider struct {
	snap *refdata.Snapshot
}

func (p *fakeProvider) Current() *refdata.Snapshot { return p.snap }

type fakeReservations struct {
	created []*booking.Session
	err     error
}

func (r *fakeReservations) CreateReservation(ctx context.Context, sess *booking.Session) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.created = append(r.created, sess)
	return fmt.Sprintf("res-%d", len(r.created)), nil
}

func newTestEngine(t *testing.T, client llm.Client, reservations ReservationCreator) *Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	return NewEngine(EngineConfig{
		Redis:           rc,
		LLM:             client,
		Provider:        &fakeProvider{snap: convSnapshot()},
		Reservations:    reservations,
		RateLimit:       10,
		SessionIdle:     30 * time.Minute,
		HistoryTurns:    10,
		ClassifyTimeout: time.Second,
		GenerateTimeout: time.Second,
	})
}

func inbound(user, text, msgID string) Inbound {
	return Inbound{
		Platform:   "whatsapp",
		SenderID:   user,
		Text:       text,
		MessageID:  msgID,
		ReceivedAt: time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestEngine_DuplicateDeliveryAnsweredOnce(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	ctx := context.Background()

	reply, err := e.HandleMessage(ctx, inbound("user-1", "مرحبا", "mid-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	reply, err = e.HandleMessage(ctx, inbound("user-1", "مرحبا", "mid-1"))
	require.NoError(t, err)
	assert.Empty(t, reply, "re-delivery must be dropped silently")
}

func TestEngine_RateLimitSingleNotice(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	ctx := context.Background()

	var notices, silent int
	for i := 0; i < 15; i++ {
		reply, err := e.HandleMessage(ctx, inbound("user-2", "مرحبا", fmt.Sprintf("mid-%d", i)))
		require.NoError(t, err)
		if reply == NewFormatter().ThrottleNotice() {
			notices++
		} else if reply == "" {
			silent++
		}
	}
	assert.Equal(t, 1, notices, "exactly one throttle notice")
	assert.Equal(t, 4, silent)
}

func TestEngine_GreetingDirect(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	reply, err := e.HandleMessage(context.Background(), inbound("user-3", "السلام عليكم", "mid-g1"))
	require.NoError(t, err)
	assert.Contains(t, reply, "أهلاً")
}

func TestEngine_FullBookingFlow(t *testing.T) {
	res := &fakeReservations{}
	e := newTestEngine(t, nil, res)
	ctx := context.Background()

	steps := []struct {
		text     string
		contains string
	}{
		{"ابغي احجز موعد", "اسمك"},
		{"محمد العتيبي", "جوالك"},
		{"0512345678", "خدمة"},
		{"تنظيف البشرة", "فرع"},
		{"لا", "يوم ووقت"},
		{"لا", "تم تسجيل حجزك"},
	}

	for i, step := range steps {
		reply, err := e.HandleMessage(ctx, inbound("user-4", step.text, fmt.Sprintf("mid-b%d", i)))
		require.NoError(t, err)
		assert.Contains(t, reply, step.contains, "step %d (%s)", i, step.text)
	}

	require.Len(t, res.created, 1)
	created := res.created[0]
	assert.Equal(t, "محمد العتيبي", created.Name)
	assert.Equal(t, "0512345678", created.Phone)
	assert.Equal(t, "svc1", created.ServiceID)
	assert.Empty(t, created.BranchID)
	assert.Empty(t, created.DateTime)
}

func TestEngine_InvalidPhoneReprompts(t *testing.T) {
	e := newTestEngine(t, nil, &fakeReservations{})
	ctx := context.Background()

	_, err := e.HandleMessage(ctx, inbound("user-5", "ابغي احجز موعد", "mid-p0"))
	require.NoError(t, err)
	_, err = e.HandleMessage(ctx, inbound("user-5", "نورة", "mid-p1"))
	require.NoError(t, err)

	reply, err := e.HandleMessage(ctx, inbound("user-5", "12345", "mid-p2"))
	require.NoError(t, err)
	assert.Contains(t, reply, "غير صحيح")

	// still at the phone step, a valid number now advances
	reply, err = e.HandleMessage(ctx, inbound("user-5", "0555555555", "mid-p3"))
	require.NoError(t, err)
	assert.Contains(t, reply, "خدمة")
}

func TestEngine_ReservationFailureApologizes(t *testing.T) {
	res := &fakeReservations{err: errors.New("db down")}
	e := newTestEngine(t, nil, res)
	ctx := context.Background()

	msgs := []string{"ابغي احجز موعد", "محمد", "0512345678", "تنظيف البشرة", "لا", "لا"}
	var reply string
	var err error
	for i, m := range msgs {
		reply, err = e.HandleMessage(ctx, inbound("user-6", m, fmt.Sprintf("mid-f%d", i)))
		require.NoError(t, err)
	}
	assert.Equal(t, NewFormatter().Apology(), reply)
	assert.Empty(t, res.created)
}

func TestEngine_EscalateFallsBackOnLLMFailure(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		return llm.Response{}, errors.New("model unavailable")
	})
	e := newTestEngine(t, client, nil)

	reply, err := e.HandleMessage(context.Background(), inbound("user-7", "سؤال غريب جدا", "mid-e1"))
	require.NoError(t, err)
	assert.Equal(t, NewFormatter().GenericFallback(), reply)
}

func TestEngine_EscalateUsesLLMReply(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if req.ResponseJSON {
			return llm.Response{}, errors.New("classification unavailable")
		}
		return llm.Response{Text: "نعم، عندنا مواقف خاصة لزوار العيادة."}, nil
	})
	e := newTestEngine(t, client, nil)

	reply, err := e.HandleMessage(context.Background(), inbound("user-8", "هل عندكم مواقف خاصه للسيارات؟", "mid-e2"))
	require.NoError(t, err)
	assert.Equal(t, "نعم، عندنا مواقف خاصة لزوار العيادة.", reply)
}

func TestEngine_ClarifyThenAnswer(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	ctx := context.Background()

	reply, err := e.HandleMessage(ctx, inbound("user-9", "كم سعر العملية", "mid-c1"))
	require.NoError(t, err)
	assert.Contains(t, reply, "أي خدمة")

	reply, err = e.HandleMessage(ctx, inbound("user-9", "تنظيف البشرة", "mid-c2"))
	require.NoError(t, err)
	assert.Contains(t, reply, "300")
}

func TestEngine_CancelDuringBooking(t *testing.T) {
	e := newTestEngine(t, nil, &fakeReservations{})
	ctx := context.Background()

	_, err := e.HandleMessage(ctx, inbound("user-10", "ابغي احجز موعد", "mid-x0"))
	require.NoError(t, err)

	reply, err := e.HandleMessage(ctx, inbound("user-10", "الغاء", "mid-x1"))
	require.NoError(t, err)
	assert.Contains(t, reply, "تم إلغاء")

	// the next message starts fresh, not inside a session
	reply, err = e.HandleMessage(ctx, inbound("user-10", "مرحبا", "mid-x2"))
	require.NoError(t, err)
	assert.Contains(t, reply, "أهلاً")
}
