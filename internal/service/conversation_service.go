package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"voice-journal-be/internal/config"
	"voice-journal-be/internal/constant"
	"voice-journal-be/internal/dto"
	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/pkg/clock"
	"voice-journal-be/internal/pkg/logger"
	"voice-journal-be/internal/repository/memory"
	"voice-journal-be/internal/repository/specification"
	"voice-journal-be/internal/repository/unitofwork"
	"voice-journal-be/internal/websocket"
	"voice-journal-be/pkg/llm"
	"voice-journal-be/pkg/voice/orchestrator"

	"github.com/google/uuid"
)

type IConversationService interface {
	SendMessage(ctx context.Context, userId uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
}

// conversationService binds one orchestrator run to one active session: it
// gates on session state, persists the resulting turn pair, and hands the
// audio trail to the archival queue.
type conversationService struct {
	uowFactory unitofwork.RepositoryFactory
	orch       *orchestrator.Orchestrator
	liveRuns   *memory.LiveRunRepository
	hub        IRealtimeNotifier
	publisher  IPublisherService
	clock      clock.Clock
	sessionCfg config.SessionConfig
	logger     logger.ILogger
}

func NewConversationService(
	uowFactory unitofwork.RepositoryFactory,
	orch *orchestrator.Orchestrator,
	liveRuns *memory.LiveRunRepository,
	hub IRealtimeNotifier,
	publisher IPublisherService,
	clk clock.Clock,
	sessionCfg config.SessionConfig,
	log logger.ILogger,
) IConversationService {
	return &conversationService{
		uowFactory: uowFactory,
		orch:       orch,
		liveRuns:   liveRuns,
		hub:        hub,
		publisher:  publisher,
		clock:      clk,
		sessionCfg: sessionCfg,
		logger:     log,
	}
}

func (s *conversationService) SendMessage(ctx context.Context, userId uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// Fresh read right before running; a stale in-memory status must never
	// gate the pipeline.
	session, err := uow.JournalSessionRepository().FindOne(ctx,
		specification.ByID{ID: req.Id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != constant.SessionStatusActive {
		return nil, fmt.Errorf("%w: session is %s, not active", ErrInvalidTransition, session.Status)
	}

	history, err := s.buildHistory(ctx, uow, session, req.Text)
	if err != nil {
		return nil, err
	}

	s.liveRuns.Save(&memory.LiveRun{
		SessionID: session.Id.String(),
		UserID:    userId.String(),
		StartedAt: s.clock.Now(),
	})
	defer s.liveRuns.Delete(session.Id.String())

	run := s.orch.Start(ctx, history)

	// Push the opening chunk the moment it resolves, well before Wait joins
	// the remaining synthesis calls.
	go func() {
		if chunk, ok := <-run.FirstAudio(); ok {
			s.hub.Send(userId, websocket.Event{
				Type: websocket.EventFirstAudioReady,
				Data: map[string]interface{}{
					"session_id":       session.Id,
					"audio_url":        chunk.AudioRef,
					"duration_seconds": chunk.Duration.Seconds(),
				},
			})
		}
	}()

	result, err := run.Wait()
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrStreamFailed):
			// The session stays active; the caller may resend the message.
			return nil, fmt.Errorf("%w: %v", ErrCompletionStream, err)
		case errors.Is(err, orchestrator.ErrAllSynthesisFailed):
			return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
		default:
			return nil, err
		}
	}

	response, err := s.persistTurns(ctx, userId, session.Id, req, result)
	if err != nil {
		return nil, err
	}
	if response == nil {
		// The session left the eligible states while the reply was in
		// flight; results drain without persisting.
		return nil, fmt.Errorf("%w: session no longer accepts turns", ErrInvalidTransition)
	}

	s.enqueueArchival(ctx, userId, session.Id, response.AiTurn.Id, result)

	return response, nil
}

func (s *conversationService) buildHistory(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.JournalSession, text string) ([]llm.Message, error) {
	turns, err := uow.JournalTurnRepository().FindAll(ctx,
		specification.BySessionID{SessionID: session.Id},
		specification.OrderBy{Field: "turn_order"},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(turns)+2)
	history = append(history, llm.Message{Role: "system", Content: constant.SystemPromptV1})
	for _, turn := range turns {
		role := "user"
		if turn.Speaker == constant.TurnSpeakerAI {
			role = "assistant"
		}
		history = append(history, llm.Message{Role: role, Content: turn.Text})
	}
	history = append(history, llm.Message{Role: "user", Content: text})

	return history, nil
}

// persistTurns writes the user/AI turn pair in one transaction. Returns
// (nil, nil) when the session moved out of the turn-accepting states while
// the orchestrator ran.
func (s *conversationService) persistTurns(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.SendMessageRequest, result *orchestrator.Result) (*dto.SendMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session, err := uow.JournalSessionRepository().FindOneLocked(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	// Turns may still land while processing (finalization in flight), never
	// once the session is paused or completed.
	if session.Status != constant.SessionStatusActive && session.Status != constant.SessionStatusProcessing {
		s.logger.Warn("ConversationService", "Discarding reply, session left active state", map[string]interface{}{
			"session_id": sessionId,
			"status":     session.Status,
		})
		return nil, nil
	}

	maxOrder, err := uow.JournalTurnRepository().MaxOrder(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	startTime := 0.0
	if maxOrder >= 0 {
		last, err := uow.JournalTurnRepository().FindOne(ctx,
			specification.BySessionID{SessionID: sessionId},
			specification.OrderBy{Field: "turn_order", Desc: true},
		)
		if err != nil {
			return nil, err
		}
		if last != nil {
			startTime = last.StartTime + last.Duration + float64(s.sessionCfg.InterTurnGapSeconds)
		}
	}

	now := s.clock.Now()
	gap := float64(s.sessionCfg.InterTurnGapSeconds)

	userTurn := &entity.JournalTurn{
		Id:        uuid.New(),
		SessionId: sessionId,
		Speaker:   constant.TurnSpeakerUser,
		Text:      req.Text,
		StartTime: startTime,
		Duration:  req.DurationSeconds,
		Order:     maxOrder + 1,
		CreatedAt: now,
	}

	aiTurn := &entity.JournalTurn{
		Id:        uuid.New(),
		SessionId: sessionId,
		Speaker:   constant.TurnSpeakerAI,
		Text:      result.Text,
		StartTime: userTurn.StartTime + userTurn.Duration + gap,
		Duration:  result.Duration.Seconds(),
		Order:     maxOrder + 2,
		Metadata: map[string]interface{}{
			"sentence_count":     len(result.Chunks) + result.Failed,
			"synthesis_failures": result.Failed,
		},
		CreatedAt: now,
	}

	if err := uow.JournalTurnRepository().Create(ctx, userTurn); err != nil {
		return nil, err
	}
	if err := uow.JournalTurnRepository().Create(ctx, aiTurn); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	chunks := make([]dto.ChunkResponse, 0, len(result.Chunks))
	var firstAudio *string
	for _, chunk := range result.Chunks {
		if chunk.Index == 0 {
			url := chunk.AudioRef
			firstAudio = &url
		}
		chunks = append(chunks, dto.ChunkResponse{
			Index:           chunk.Index,
			Text:            chunk.Text,
			AudioURL:        chunk.AudioRef,
			DurationSeconds: chunk.Duration.Seconds(),
		})
	}

	return &dto.SendMessageResponse{
		SessionId:     sessionId,
		UserTurn:      *turnToResponse(userTurn),
		AiTurn:        *turnToResponse(aiTurn),
		FirstAudioURL: firstAudio,
		Chunks:        chunks,
	}, nil
}

func (s *conversationService) enqueueArchival(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, turnId uuid.UUID, result *orchestrator.Result) {
	if len(result.Chunks) == 0 {
		return
	}

	chunks := make([]dto.ArchiveChunk, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		chunks = append(chunks, dto.ArchiveChunk{
			Index:       chunk.Index,
			AudioRef:    chunk.AudioRef,
			ContentType: chunk.ContentType,
		})
	}

	payload, _ := json.Marshal(&dto.ArchiveJobMessage{
		Kind:      dto.ArchiveJobArchiveTurn,
		SessionId: sessionId,
		UserId:    userId,
		TurnId:    turnId,
		Chunks:    chunks,
	})
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Error("ConversationService", "Failed to enqueue turn archival", map[string]interface{}{
			"session_id": sessionId,
			"turn_id":    turnId,
			"error":      err.Error(),
		})
	}
}
