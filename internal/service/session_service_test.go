package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-journal-be/internal/config"
	"voice-journal-be/internal/constant"
	"voice-journal-be/internal/dto"
	"voice-journal-be/internal/websocket"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		ReconnectTimeoutSeconds: 300,
		DailyAttempts:           1,
		InterTurnGapSeconds:     1,
		FreeMaxDurationSeconds:  180,
		ProMaxDurationSeconds:   900,
	}
}

type sessionHarness struct {
	svc     ISessionService
	factory *fakeFactory
	clock   *fakeClock
	hub     *fakeHub
	queue   *fakePublisher
	bus     *fakeEventBus
	userId  uuid.UUID
}

func newSessionHarness(t *testing.T, ent *Entitlement) *sessionHarness {
	t.Helper()
	factory := newFakeFactory()
	clk := newFakeClock()
	hub := newFakeHub()
	queue := &fakePublisher{}
	bus := &fakeEventBus{}

	if ent == nil {
		ent = &Entitlement{Allowed: true, MaxDurationSeconds: 180}
	}

	svc := NewSessionService(
		factory,
		&fakeEntitlement{ent: ent},
		queue,
		bus,
		hub,
		clk,
		testSessionConfig(),
		noopLogger{},
	)

	return &sessionHarness{
		svc:     svc,
		factory: factory,
		clock:   clk,
		hub:     hub,
		queue:   queue,
		bus:     bus,
		userId:  uuid.New(),
	}
}

func (h *sessionHarness) start(t *testing.T, kind string) *dto.SessionResponse {
	t.Helper()
	res, err := h.svc.Start(context.Background(), h.userId, &dto.StartSessionRequest{Kind: kind})
	require.NoError(t, err)
	return res
}

func TestStart_CreatesActiveReflection(t *testing.T) {
	h := newSessionHarness(t, nil)

	res := h.start(t, constant.SessionKindReflection)

	assert.Equal(t, constant.SessionStatusActive, res.Status)
	assert.Equal(t, 180, res.MaxDurationSeconds)
	assert.Equal(t, 1, res.RecordingAttempt)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), res.Date)
}

func TestStart_EntitlementDenied(t *testing.T) {
	h := newSessionHarness(t, &Entitlement{Allowed: false, Reason: "unknown_user"})

	_, err := h.svc.Start(context.Background(), h.userId, &dto.StartSessionRequest{Kind: constant.SessionKindReflection})

	assert.ErrorIs(t, err, ErrEntitlementDenied)
}

func TestStart_IdempotentWhileActiveOrPaused(t *testing.T) {
	h := newSessionHarness(t, nil)
	first := h.start(t, constant.SessionKindReflection)

	again := h.start(t, constant.SessionKindReflection)
	assert.Equal(t, first.Id, again.Id)

	_, err := h.svc.Pause(context.Background(), h.userId, first.Id)
	require.NoError(t, err)

	again = h.start(t, constant.SessionKindReflection)
	assert.Equal(t, first.Id, again.Id)
	assert.Equal(t, constant.SessionStatusPaused, again.Status)
}

func TestStart_SecondReflectionSameDayExhausted(t *testing.T) {
	h := newSessionHarness(t, nil)
	first := h.start(t, constant.SessionKindReflection)

	_, err := h.svc.End(context.Background(), h.userId, &dto.EndSessionRequest{Id: first.Id})
	require.NoError(t, err)

	_, err = h.svc.Start(context.Background(), h.userId, &dto.StartSessionRequest{Kind: constant.SessionKindReflection})
	assert.ErrorIs(t, err, ErrAttemptExhausted)
}

func TestStart_VoiceKindUnconstrained(t *testing.T) {
	h := newSessionHarness(t, nil)

	a := h.start(t, constant.SessionKindVoice)
	b := h.start(t, constant.SessionKindVoice)

	assert.NotEqual(t, a.Id, b.Id)
}

func TestStart_AfterDeleteWithoutCompletion_Exhausted(t *testing.T) {
	h := newSessionHarness(t, nil)
	first := h.start(t, constant.SessionKindReflection)

	require.NoError(t, h.svc.Delete(context.Background(), h.userId, first.Id))
	assert.Equal(t, 1, h.factory.uow.attempts.count())

	_, err := h.svc.Start(context.Background(), h.userId, &dto.StartSessionRequest{Kind: constant.SessionKindReflection})
	assert.ErrorIs(t, err, ErrAttemptExhausted)
}

func TestStart_AfterDeleteOfCompleted_SlotStaysConsumed(t *testing.T) {
	h := newSessionHarness(t, nil)
	first := h.start(t, constant.SessionKindReflection)

	_, err := h.svc.End(context.Background(), h.userId, &dto.EndSessionRequest{Id: first.Id})
	require.NoError(t, err)
	// processing -> completed happens via the finalize job; emulate it.
	stored := h.factory.uow.sessions.get(first.Id)
	stored.Status = constant.SessionStatusCompleted

	require.NoError(t, h.svc.Delete(context.Background(), h.userId, first.Id))
	// A finished session needs no marker...
	assert.Equal(t, 0, h.factory.uow.attempts.count())

	// ...but its day slot stays consumed.
	_, err = h.svc.Start(context.Background(), h.userId, &dto.StartSessionRequest{Kind: constant.SessionKindReflection})
	assert.ErrorIs(t, err, ErrAttemptExhausted)
}

func TestStart_AdminBypassesAttemptMarker(t *testing.T) {
	h := newSessionHarness(t, &Entitlement{Allowed: true, MaxDurationSeconds: 900, AttemptLimitExempt: true})
	first := h.start(t, constant.SessionKindReflection)

	require.NoError(t, h.svc.Delete(context.Background(), h.userId, first.Id))

	res := h.start(t, constant.SessionKindReflection)
	assert.Equal(t, constant.SessionStatusActive, res.Status)
}

func TestCancelShort_DoesNotConsumeAttempt(t *testing.T) {
	h := newSessionHarness(t, nil)
	first := h.start(t, constant.SessionKindReflection)

	require.NoError(t, h.svc.CancelShort(context.Background(), h.userId, first.Id))
	assert.Equal(t, 0, h.factory.uow.attempts.count())

	res := h.start(t, constant.SessionKindReflection)
	assert.NotEqual(t, first.Id, res.Id)
	assert.Equal(t, constant.SessionStatusActive, res.Status)
}

func TestPause_OnlyFromActive(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	res, err := h.svc.Pause(context.Background(), h.userId, session.Id)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusPaused, res.Status)
	require.NotNil(t, res.PausedAt)

	_, err = h.svc.Pause(context.Background(), h.userId, session.Id)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPause_UnknownSession(t *testing.T) {
	h := newSessionHarness(t, nil)

	_, err := h.svc.Pause(context.Background(), h.userId, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResume_OneSecondBeforeThresholdSucceeds(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)
	_, err := h.svc.Pause(context.Background(), h.userId, session.Id)
	require.NoError(t, err)

	h.clock.Advance(299 * time.Second)

	res, err := h.svc.Resume(context.Background(), h.userId, session.Id)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusActive, res.Status)
	assert.Nil(t, res.PausedAt)
}

func TestResume_AtThresholdFailsAndLocks(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)
	_, err := h.svc.Pause(context.Background(), h.userId, session.Id)
	require.NoError(t, err)

	h.clock.Advance(300 * time.Second)

	_, err = h.svc.Resume(context.Background(), h.userId, session.Id)
	assert.ErrorIs(t, err, ErrReconnectionTimeout)

	stored := h.factory.uow.sessions.get(session.Id)
	assert.Equal(t, constant.SessionStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	pushed := h.hub.sent(h.userId)
	require.Len(t, pushed, 1)
	assert.Equal(t, websocket.EventSessionLocked, pushed[0].Type)
}

func TestResume_OnlyFromPaused(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	_, err := h.svc.Resume(context.Background(), h.userId, session.Id)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEnd_StampsProcessingAndFinalTime(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	final := 42.5
	res, err := h.svc.End(context.Background(), h.userId, &dto.EndSessionRequest{
		Id:                       session.Id,
		FinalSpeakingTimeSeconds: &final,
	})
	require.NoError(t, err)

	assert.Equal(t, constant.SessionStatusProcessing, res.Status)
	assert.Equal(t, 42.5, res.TotalUserSpeakingTime)
	require.NotNil(t, res.CompletedAt)

	// Finalize job plus analytics event fired.
	assert.Equal(t, 1, h.queue.count())
	require.Len(t, h.bus.events, 1)
}

func TestEnd_FinalTimeClampedToCap(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	final := 9999.0
	res, err := h.svc.End(context.Background(), h.userId, &dto.EndSessionRequest{
		Id:                       session.Id,
		FinalSpeakingTimeSeconds: &final,
	})
	require.NoError(t, err)
	assert.Equal(t, 180.0, res.TotalUserSpeakingTime)
}

func TestEnd_FromPausedAllowed(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)
	_, err := h.svc.Pause(context.Background(), h.userId, session.Id)
	require.NoError(t, err)

	res, err := h.svc.End(context.Background(), h.userId, &dto.EndSessionRequest{Id: session.Id})
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusProcessing, res.Status)
}

func TestEnd_TwiceInvalid(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	_, err := h.svc.End(context.Background(), h.userId, &dto.EndSessionRequest{Id: session.Id})
	require.NoError(t, err)

	_, err = h.svc.End(context.Background(), h.userId, &dto.EndSessionRequest{Id: session.Id})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateSpeakingTime_Accumulates(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	res, err := h.svc.UpdateSpeakingTime(context.Background(), h.userId, &dto.UpdateSpeakingTimeRequest{
		Id:      session.Id,
		Seconds: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.TotalUserSpeakingTime)
	assert.Equal(t, constant.SessionStatusActive, h.factory.uow.sessions.get(session.Id).Status)
}

func TestUpdateSpeakingTime_NeverDecreases(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	_, err := h.svc.UpdateSpeakingTime(context.Background(), h.userId, &dto.UpdateSpeakingTimeRequest{Id: session.Id, Seconds: 60})
	require.NoError(t, err)

	res, err := h.svc.UpdateSpeakingTime(context.Background(), h.userId, &dto.UpdateSpeakingTimeRequest{Id: session.Id, Seconds: 45})
	require.NoError(t, err)
	assert.Equal(t, 60.0, res.TotalUserSpeakingTime)
}

func TestUpdateSpeakingTime_OvershootClampsAndTransitions(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	res, err := h.svc.UpdateSpeakingTime(context.Background(), h.userId, &dto.UpdateSpeakingTimeRequest{
		Id:      session.Id,
		Seconds: 500, // cap is 180
	})
	require.NoError(t, err)

	assert.Equal(t, 180.0, res.TotalUserSpeakingTime)
	stored := h.factory.uow.sessions.get(session.Id)
	assert.Equal(t, constant.SessionStatusProcessing, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

func TestUpdateSpeakingTime_RequiresActive(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)
	_, err := h.svc.Pause(context.Background(), h.userId, session.Id)
	require.NoError(t, err)

	_, err = h.svc.UpdateSpeakingTime(context.Background(), h.userId, &dto.UpdateSpeakingTimeRequest{Id: session.Id, Seconds: 10})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDelete_RemovesTurnsAndEnqueuesPurge(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	require.NoError(t, h.svc.Delete(context.Background(), h.userId, session.Id))

	assert.Empty(t, h.factory.uow.turns.bySession(session.Id))
	assert.True(t, h.factory.uow.sessions.get(session.Id).IsDeleted)
	assert.Equal(t, 1, h.queue.count())
}

func TestShow_OwnershipEnforced(t *testing.T) {
	h := newSessionHarness(t, nil)
	session := h.start(t, constant.SessionKindReflection)

	_, err := h.svc.Show(context.Background(), uuid.New(), session.Id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	res, err := h.svc.Show(context.Background(), h.userId, session.Id)
	require.NoError(t, err)
	assert.Equal(t, session.Id, res.Id)
}
