package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"voice-journal-be/internal/config"
	"voice-journal-be/internal/constant"
	"voice-journal-be/internal/dto"
	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/pkg/clock"
	"voice-journal-be/internal/pkg/logger"
	"voice-journal-be/internal/repository/specification"
	"voice-journal-be/internal/repository/unitofwork"
	"voice-journal-be/internal/websocket"
	"voice-journal-be/pkg/events"

	"github.com/google/uuid"
)

type ISessionService interface {
	Start(ctx context.Context, userId uuid.UUID, req *dto.StartSessionRequest) (*dto.SessionResponse, error)
	Pause(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SessionResponse, error)
	Resume(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SessionResponse, error)
	End(ctx context.Context, userId uuid.UUID, req *dto.EndSessionRequest) (*dto.SessionResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	CancelShort(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	UpdateSpeakingTime(ctx context.Context, userId uuid.UUID, req *dto.UpdateSpeakingTimeRequest) (*dto.UpdateSpeakingTimeResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SessionResponse, error)
	Turns(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]*dto.TurnResponse, error)
}

type sessionService struct {
	uowFactory  unitofwork.RepositoryFactory
	entitlement IEntitlementService
	publisher   IPublisherService
	eventBus    IEventPublisher
	hub         IRealtimeNotifier
	clock       clock.Clock
	sessionCfg  config.SessionConfig
	logger      logger.ILogger
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	entitlement IEntitlementService,
	publisher IPublisherService,
	eventBus IEventPublisher,
	hub IRealtimeNotifier,
	clk clock.Clock,
	sessionCfg config.SessionConfig,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		uowFactory:  uowFactory,
		entitlement: entitlement,
		publisher:   publisher,
		eventBus:    eventBus,
		hub:         hub,
		clock:       clk,
		sessionCfg:  sessionCfg,
		logger:      log,
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *sessionService) Start(ctx context.Context, userId uuid.UUID, req *dto.StartSessionRequest) (*dto.SessionResponse, error) {
	ent, err := s.entitlement.Check(ctx, userId)
	if err != nil {
		return nil, err
	}
	if !ent.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrEntitlementDenied, ent.Reason)
	}

	now := s.clock.Now()
	day := startOfDay(now)
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if req.Kind == constant.SessionKindReflection {
		// Soft-deleted rows participate: a deleted completed session still
		// consumed the day's slot.
		existing, err := uow.JournalSessionRepository().FindOne(ctx,
			specification.UserOwnedBy{UserID: userId},
			specification.ForDay{Date: day},
			specification.ByKind{Kind: constant.SessionKindReflection},
			specification.WithDeleted{},
			specification.OrderBy{Field: "created_at", Desc: true},
		)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			switch {
			case !existing.IsDeleted && (existing.Status == constant.SessionStatusActive || existing.Status == constant.SessionStatusPaused):
				// An interrupted session is returned as-is so a reconnecting
				// client lands back in it.
				return sessionToResponse(existing), nil
			case !existing.IsDeleted || existing.Status == constant.SessionStatusCompleted:
				return nil, fmt.Errorf("%w: reflection already recorded today", ErrAttemptExhausted)
			}
			// Deleted before completion: the attempt marker below decides.
		}

		if !ent.AttemptLimitExempt {
			marker, err := uow.DeletedAttemptRepository().FindOne(ctx,
				specification.UserOwnedBy{UserID: userId},
				specification.ForDay{Date: day},
			)
			if err != nil {
				return nil, err
			}
			if marker != nil {
				return nil, fmt.Errorf("%w: attempt consumed by a deleted session", ErrAttemptExhausted)
			}
		}
	}

	session := &entity.JournalSession{
		Id:                 uuid.New(),
		UserId:             userId,
		Date:               day,
		Kind:               req.Kind,
		Status:             constant.SessionStatusActive,
		MaxDurationSeconds: ent.MaxDurationSeconds,
		RecordingAttempt:   1,
		CreatedAt:          now,
	}

	if err := uow.JournalSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("SessionService", "Session started", map[string]interface{}{
		"session_id": session.Id,
		"user_id":    userId,
		"kind":       session.Kind,
	})

	return sessionToResponse(session), nil
}

func (s *sessionService) Pause(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session, err := s.findOwnedLocked(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	if session.Status != constant.SessionStatusActive {
		return nil, fmt.Errorf("%w: cannot pause a %s session", ErrInvalidTransition, session.Status)
	}

	now := s.clock.Now()
	session.Status = constant.SessionStatusPaused
	session.PausedAt = &now
	session.UpdatedAt = &now

	if err := uow.JournalSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return sessionToResponse(session), nil
}

func (s *sessionService) Resume(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session, err := s.findOwnedLocked(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	if session.Status != constant.SessionStatusPaused || session.PausedAt == nil {
		return nil, fmt.Errorf("%w: cannot resume a %s session", ErrInvalidTransition, session.Status)
	}

	now := s.clock.Now()
	elapsed := now.Sub(*session.PausedAt)
	threshold := time.Duration(s.sessionCfg.ReconnectTimeoutSeconds) * time.Second

	if elapsed >= threshold {
		// Too late: the session locks as a side effect of the failed resume.
		session.Status = constant.SessionStatusCompleted
		session.CompletedAt = &now
		session.PausedAt = nil
		session.UpdatedAt = &now

		if err := uow.JournalSessionRepository().Update(ctx, session); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, err
		}

		s.hub.Send(userId, websocket.Event{
			Type: websocket.EventSessionLocked,
			Data: map[string]interface{}{"session_id": session.Id},
		})
		s.logger.Warn("SessionService", "Session locked after reconnect timeout", map[string]interface{}{
			"session_id":     session.Id,
			"paused_seconds": elapsed.Seconds(),
		})

		return nil, fmt.Errorf("%w: paused for %.0fs", ErrReconnectionTimeout, elapsed.Seconds())
	}

	session.Status = constant.SessionStatusActive
	session.PausedAt = nil
	session.UpdatedAt = &now

	if err := uow.JournalSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return sessionToResponse(session), nil
}

func (s *sessionService) End(ctx context.Context, userId uuid.UUID, req *dto.EndSessionRequest) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session, err := s.findOwnedLocked(ctx, uow, userId, req.Id)
	if err != nil {
		return nil, err
	}
	if session.Status != constant.SessionStatusActive && session.Status != constant.SessionStatusPaused {
		return nil, fmt.Errorf("%w: cannot end a %s session", ErrInvalidTransition, session.Status)
	}

	now := s.clock.Now()
	if req.FinalSpeakingTimeSeconds != nil {
		final := *req.FinalSpeakingTimeSeconds
		if final > float64(session.MaxDurationSeconds) {
			final = float64(session.MaxDurationSeconds)
		}
		session.TotalUserSpeakingTime = final
	}
	session.Status = constant.SessionStatusProcessing
	session.CompletedAt = &now
	session.PausedAt = nil
	session.UpdatedAt = &now

	if err := uow.JournalSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.enqueueJob(ctx, &dto.ArchiveJobMessage{
		Kind:      dto.ArchiveJobFinalizeSession,
		SessionId: session.Id,
		UserId:    userId,
	})
	s.publishEvent(ctx, events.NewSessionCompletedEvent(session.Id.String(), userId.String(), session.TotalUserSpeakingTime))

	return sessionToResponse(session), nil
}

func (s *sessionService) UpdateSpeakingTime(ctx context.Context, userId uuid.UUID, req *dto.UpdateSpeakingTimeRequest) (*dto.UpdateSpeakingTimeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session, err := s.findOwnedLocked(ctx, uow, userId, req.Id)
	if err != nil {
		return nil, err
	}
	if session.Status != constant.SessionStatusActive {
		return nil, fmt.Errorf("%w: speaking time only accumulates while active", ErrInvalidTransition)
	}

	// Speaking time never decreases while active.
	total := req.Seconds
	if total < session.TotalUserSpeakingTime {
		total = session.TotalUserSpeakingTime
	}

	now := s.clock.Now()
	limit := float64(session.MaxDurationSeconds)
	if total >= limit {
		// Reaching the limit clamps the stored time exactly to the cap and
		// closes the session for further input.
		session.TotalUserSpeakingTime = limit
		session.Status = constant.SessionStatusProcessing
		session.CompletedAt = &now
	} else {
		session.TotalUserSpeakingTime = total
	}
	session.UpdatedAt = &now

	if err := uow.JournalSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.UpdateSpeakingTimeResponse{
		Id:                    session.Id,
		TotalUserSpeakingTime: session.TotalUserSpeakingTime,
	}, nil
}

func (s *sessionService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	return s.remove(ctx, userId, id, true)
}

// CancelShort discards a session the caller declares too short to count. It
// never writes the attempt marker, so the user keeps the day's slot.
func (s *sessionService) CancelShort(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	return s.remove(ctx, userId, id, false)
}

func (s *sessionService) remove(ctx context.Context, userId uuid.UUID, id uuid.UUID, consumeAttempt bool) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	session, err := s.findOwnedLocked(ctx, uow, userId, id)
	if err != nil {
		return err
	}

	completed := session.Status == constant.SessionStatusCompleted

	// Deleting an unfinished reflection burns the day's attempt; a completed
	// one already consumed it and needs no marker.
	if consumeAttempt && !completed && session.Kind == constant.SessionKindReflection {
		marker := &entity.DeletedAttempt{
			Id:        uuid.New(),
			UserId:    userId,
			Date:      session.Date,
			CreatedAt: s.clock.Now(),
		}
		if err := uow.DeletedAttemptRepository().Upsert(ctx, marker); err != nil {
			return err
		}
	}

	if err := uow.JournalTurnRepository().DeleteAllBySessionId(ctx, session.Id); err != nil {
		return err
	}
	if err := uow.JournalSessionRepository().Delete(ctx, session.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.enqueueJob(ctx, &dto.ArchiveJobMessage{
		Kind:      dto.ArchiveJobPurgeSession,
		SessionId: session.Id,
		UserId:    userId,
	})
	s.publishEvent(ctx, events.NewSessionDeletedEvent(session.Id.String(), userId.String(), completed))

	return nil
}

func (s *sessionService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.JournalSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "date", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, sessionToResponse(session))
	}
	return result, nil
}

func (s *sessionService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.JournalSessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	return sessionToResponse(session), nil
}

func (s *sessionService) Turns(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]*dto.TurnResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.JournalSessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	turns, err := uow.JournalTurnRepository().FindAll(ctx,
		specification.BySessionID{SessionID: id},
		specification.OrderBy{Field: "turn_order"},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.TurnResponse, 0, len(turns))
	for _, turn := range turns {
		result = append(result, turnToResponse(turn))
	}
	return result, nil
}

// findOwnedLocked reads the session with a row lock inside the caller's
// transaction. Every transition validates against this fresh read, never
// against in-memory state.
func (s *sessionService) findOwnedLocked(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, id uuid.UUID) (*entity.JournalSession, error) {
	session, err := uow.JournalSessionRepository().FindOneLocked(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *sessionService) enqueueJob(ctx context.Context, job *dto.ArchiveJobMessage) {
	payload, _ := json.Marshal(job)
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Error("SessionService", "Failed to enqueue archival job", map[string]interface{}{
			"kind":       job.Kind,
			"session_id": job.SessionId,
			"error":      err.Error(),
		})
	}
}

func (s *sessionService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("SessionService", "Failed to publish analytics event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func sessionToResponse(session *entity.JournalSession) *dto.SessionResponse {
	return &dto.SessionResponse{
		Id:                    session.Id,
		Kind:                  session.Kind,
		Status:                session.Status,
		Date:                  session.Date,
		MaxDurationSeconds:    session.MaxDurationSeconds,
		TotalUserSpeakingTime: session.TotalUserSpeakingTime,
		RecordingAttempt:      session.RecordingAttempt,
		PausedAt:              session.PausedAt,
		CompletedAt:           session.CompletedAt,
		CreatedAt:             session.CreatedAt,
	}
}

func turnToResponse(turn *entity.JournalTurn) *dto.TurnResponse {
	return &dto.TurnResponse{
		Id:              turn.Id,
		Speaker:         turn.Speaker,
		Text:            turn.Text,
		AudioURL:        turn.AudioURL,
		StartTime:       turn.StartTime,
		DurationSeconds: turn.Duration,
		Order:           turn.Order,
		CreatedAt:       turn.CreatedAt,
	}
}
