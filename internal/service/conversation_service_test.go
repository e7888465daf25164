package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-journal-be/internal/constant"
	"voice-journal-be/internal/dto"
	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/repository/memory"
	"voice-journal-be/internal/websocket"
	"voice-journal-be/pkg/llm"
	"voice-journal-be/pkg/tts"
	"voice-journal-be/pkg/voice/orchestrator"
)

// scriptedLLM streams a fixed reply regardless of history.
type scriptedLLM struct {
	reply   string
	openErr error
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return s.reply, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.reply, nil
}

func (s *scriptedLLM) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.Token, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	out := make(chan llm.Token, 2)
	out <- llm.Token{Text: s.reply}
	out <- llm.Token{Done: true}
	close(out)
	return out, nil
}

type stubTTS struct {
	mu   sync.Mutex
	fail bool
	n    int
}

func (s *stubTTS) Synthesize(ctx context.Context, text string, voice string) (*tts.Result, error) {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	if s.fail {
		return nil, errors.New("synth down")
	}
	return &tts.Result{AudioRef: "https://cdn.test/" + voice, ContentType: "audio/mpeg", Duration: 2 * time.Second}, nil
}

type convHarness struct {
	svc     IConversationService
	factory *fakeFactory
	clock   *fakeClock
	hub     *fakeHub
	queue   *fakePublisher
	userId  uuid.UUID
}

func newConvHarness(t *testing.T, llmProvider llm.LLMProvider, ttsProvider tts.Provider) *convHarness {
	t.Helper()
	factory := newFakeFactory()
	clk := newFakeClock()
	hub := newFakeHub()
	queue := &fakePublisher{}

	orch := orchestrator.New(llmProvider, ttsProvider, "ava")
	svc := NewConversationService(
		factory,
		orch,
		memory.NewLiveRunRepository(),
		hub,
		queue,
		clk,
		testSessionConfig(),
		noopLogger{},
	)

	return &convHarness{
		svc:     svc,
		factory: factory,
		clock:   clk,
		hub:     hub,
		queue:   queue,
		userId:  uuid.New(),
	}
}

func (h *convHarness) seedSession(status string) *entity.JournalSession {
	session := &entity.JournalSession{
		Id:                 uuid.New(),
		UserId:             h.userId,
		Date:               time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		Kind:               constant.SessionKindReflection,
		Status:             status,
		MaxDurationSeconds: 180,
		RecordingAttempt:   1,
		CreatedAt:          h.clock.Now(),
	}
	h.factory.uow.sessions.Create(context.Background(), session)
	return session
}

func TestSendMessage_PersistsTurnPair(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{reply: "Hello there."}, &stubTTS{})
	session := h.seedSession(constant.SessionStatusActive)

	res, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{
		Id:              session.Id,
		Text:            "Today was a long day.",
		DurationSeconds: 6,
	})
	require.NoError(t, err)

	require.NotNil(t, res.FirstAudioURL)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, 0, res.Chunks[0].Index)
	assert.Equal(t, "Hello there.", res.AiTurn.Text)

	turns := h.factory.uow.turns.bySession(session.Id)
	require.Len(t, turns, 2)
	assert.Equal(t, constant.TurnSpeakerUser, turns[0].Speaker)
	assert.Equal(t, 0, turns[0].Order)
	assert.Equal(t, constant.TurnSpeakerAI, turns[1].Speaker)
	assert.Equal(t, 1, turns[1].Order)
	// AI start chains off the user turn end plus the configured gap.
	assert.Equal(t, 7.0, turns[1].StartTime)
}

func TestSendMessage_OrderChainsAcrossMessages(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{reply: "Go on."}, &stubTTS{})
	session := h.seedSession(constant.SessionStatusActive)

	_, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: session.Id, Text: "First.", DurationSeconds: 3})
	require.NoError(t, err)
	_, err = h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: session.Id, Text: "Second.", DurationSeconds: 4})
	require.NoError(t, err)

	turns := h.factory.uow.turns.bySession(session.Id)
	require.Len(t, turns, 4)
	for i, turn := range turns {
		assert.Equal(t, i, turn.Order)
	}
	// Start times strictly increase with the inter-turn gap applied.
	for i := 1; i < len(turns); i++ {
		assert.Greater(t, turns[i].StartTime, turns[i-1].StartTime)
	}
}

func TestSendMessage_PausedSessionRejectedWithoutTurns(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{reply: "Hi."}, &stubTTS{})
	session := h.seedSession(constant.SessionStatusPaused)

	_, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: session.Id, Text: "hello"})

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, h.factory.uow.turns.bySession(session.Id))
}

func TestSendMessage_ProcessingSessionRejectedWithoutTurns(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{reply: "Hi."}, &stubTTS{})
	session := h.seedSession(constant.SessionStatusProcessing)

	_, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: session.Id, Text: "hello"})

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, h.factory.uow.turns.bySession(session.Id))
}

func TestSendMessage_UnknownSession(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{reply: "Hi."}, &stubTTS{})

	_, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: uuid.New(), Text: "hello"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSendMessage_StreamFailureKeepsSessionActive(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{openErr: errors.New("provider down")}, &stubTTS{})
	session := h.seedSession(constant.SessionStatusActive)

	_, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: session.Id, Text: "hello"})

	assert.ErrorIs(t, err, ErrCompletionStream)
	// Retryable: the session stays active and no turns were written.
	assert.Equal(t, constant.SessionStatusActive, h.factory.uow.sessions.get(session.Id).Status)
	assert.Empty(t, h.factory.uow.turns.bySession(session.Id))
}

func TestSendMessage_AllSynthesisFailed(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{reply: "One. Two."}, &stubTTS{fail: true})
	session := h.seedSession(constant.SessionStatusActive)

	_, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: session.Id, Text: "hello"})

	assert.ErrorIs(t, err, ErrSynthesisFailed)
	assert.Empty(t, h.factory.uow.turns.bySession(session.Id))
}

func TestSendMessage_PushesFirstAudioEvent(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{reply: "Hello there."}, &stubTTS{})
	session := h.seedSession(constant.SessionStatusActive)

	_, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: session.Id, Text: "hi", DurationSeconds: 2})
	require.NoError(t, err)

	// The push happens on its own goroutine; give it a moment.
	require.Eventually(t, func() bool {
		for _, ev := range h.hub.sent(h.userId) {
			if ev.Type == websocket.EventFirstAudioReady {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestSendMessage_EnqueuesArchivalJob(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{reply: "Hello there."}, &stubTTS{})
	session := h.seedSession(constant.SessionStatusActive)

	_, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: session.Id, Text: "hi", DurationSeconds: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, h.queue.count())
}

func TestSendMessage_TwoSentencesOrdered(t *testing.T) {
	h := newConvHarness(t, &scriptedLLM{reply: "Hi. How are you?"}, &stubTTS{})
	session := h.seedSession(constant.SessionStatusActive)

	res, err := h.svc.SendMessage(context.Background(), h.userId, &dto.SendMessageRequest{Id: session.Id, Text: "hey", DurationSeconds: 1})
	require.NoError(t, err)

	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "Hi.", res.Chunks[0].Text)
	assert.Equal(t, "How are you?", res.Chunks[1].Text)
	assert.Equal(t, "Hi. How are you?", res.AiTurn.Text)
}
