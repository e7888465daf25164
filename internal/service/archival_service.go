package service

import (
	"context"
	"encoding/json"
	"fmt"

	"voice-journal-be/internal/constant"
	"voice-journal-be/internal/dto"
	"voice-journal-be/internal/pkg/logger"
	"voice-journal-be/internal/repository/specification"
	"voice-journal-be/internal/repository/unitofwork"
	"voice-journal-be/internal/websocket"
	"voice-journal-be/pkg/events"
	"voice-journal-be/pkg/storage"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IArchivalService interface {
	Consume(ctx context.Context) error
}

// archivalService drains the archival topic: it copies synthesized audio
// into object storage, backfills turn audio URLs, finalizes ended sessions
// and purges storage for deleted ones. Everything here is best effort; a
// failed job is logged and acked, never retried into a loop.
type archivalService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	storage    *storage.Client
	hub        IRealtimeNotifier
	eventBus   IEventPublisher
	logger     logger.ILogger
}

func NewArchivalService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	store *storage.Client,
	hub IRealtimeNotifier,
	eventBus IEventPublisher,
	log logger.ILogger,
) IArchivalService {
	return &archivalService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		storage:    store,
		hub:        hub,
		eventBus:   eventBus,
		logger:     log,
	}
}

func (s *archivalService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *archivalService) processMessage(ctx context.Context, msg *message.Message) {
	// Always ack: archival is best effort and a poison message must not
	// cycle forever.
	defer msg.Ack()

	var job dto.ArchiveJobMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		s.logger.Error("ArchivalService", "Failed to unmarshal job", map[string]interface{}{"error": err.Error()})
		return
	}

	switch job.Kind {
	case dto.ArchiveJobArchiveTurn:
		s.archiveTurn(ctx, &job)
	case dto.ArchiveJobPurgeSession:
		s.purgeSession(ctx, &job)
	case dto.ArchiveJobFinalizeSession:
		s.finalizeSession(ctx, &job)
	default:
		s.logger.Warn("ArchivalService", "Unknown job kind", map[string]interface{}{"kind": job.Kind})
	}
}

func (s *archivalService) archiveTurn(ctx context.Context, job *dto.ArchiveJobMessage) {
	var turnURL string

	for _, chunk := range job.Chunks {
		key := fmt.Sprintf("sessions/%s/%s/%d", job.SessionId, job.TurnId, chunk.Index)
		url, err := s.storage.UploadFromURL(ctx, key, chunk.AudioRef)
		if err != nil {
			s.logger.Warn("ArchivalService", "Chunk upload failed", map[string]interface{}{
				"session_id": job.SessionId,
				"turn_id":    job.TurnId,
				"index":      chunk.Index,
				"error":      err.Error(),
			})
			continue
		}
		// The turn's audio_url points at the opening chunk; the rest are
		// addressable by key convention.
		if turnURL == "" || chunk.Index == 0 {
			turnURL = url
		}
	}

	if turnURL == "" {
		s.logger.Warn("ArchivalService", "No chunk archived, skipping backfill", map[string]interface{}{
			"session_id": job.SessionId,
			"turn_id":    job.TurnId,
		})
		return
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.JournalTurnRepository().BackfillAudioURL(ctx, job.TurnId, turnURL); err != nil {
		s.logger.Error("ArchivalService", "Audio URL backfill failed", map[string]interface{}{
			"turn_id": job.TurnId,
			"error":   err.Error(),
		})
		return
	}

	s.hub.Send(job.UserId, websocket.Event{
		Type: websocket.EventTurnArchived,
		Data: map[string]interface{}{
			"session_id": job.SessionId,
			"turn_id":    job.TurnId,
			"audio_url":  turnURL,
		},
	})

	if s.eventBus != nil {
		event := events.NewTurnArchivedEvent(job.SessionId.String(), job.TurnId.String(), turnURL)
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("ArchivalService", "Failed to publish archive event", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (s *archivalService) purgeSession(ctx context.Context, job *dto.ArchiveJobMessage) {
	prefix := fmt.Sprintf("sessions/%s/", job.SessionId)
	if err := s.storage.DeleteAll(ctx, prefix); err != nil {
		s.logger.Warn("ArchivalService", "Storage purge failed", map[string]interface{}{
			"session_id": job.SessionId,
			"error":      err.Error(),
		})
	}
}

// finalizeSession moves an ended session from processing to completed once
// post-session work has drained.
func (s *archivalService) finalizeSession(ctx context.Context, job *dto.ArchiveJobMessage) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		s.logger.Error("ArchivalService", "Failed to begin finalize tx", map[string]interface{}{"error": err.Error()})
		return
	}
	defer uow.Rollback()

	session, err := uow.JournalSessionRepository().FindOneLocked(ctx, specification.ByID{ID: job.SessionId})
	if err != nil || session == nil {
		return
	}
	if session.Status != constant.SessionStatusProcessing {
		return
	}

	session.Status = constant.SessionStatusCompleted
	if err := uow.JournalSessionRepository().Update(ctx, session); err != nil {
		s.logger.Error("ArchivalService", "Failed to finalize session", map[string]interface{}{
			"session_id": job.SessionId,
			"error":      err.Error(),
		})
		return
	}
	if err := uow.Commit(); err != nil {
		s.logger.Error("ArchivalService", "Failed to commit finalize", map[string]interface{}{"error": err.Error()})
	}
}
