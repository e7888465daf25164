package service

import (
	"context"
	"fmt"
	"strings"

	"voice-journal-be/internal/pkg/logger"
	"voice-journal-be/internal/websocket"
	"voice-journal-be/pkg/events"
	pktNats "voice-journal-be/pkg/nats"

	"github.com/google/uuid"
)

// RelayService bridges the durable event bus back to connected clients.
// Session completion is finalized by a background worker, so the client that
// ended the session learns about the terminal state through this relay
// rather than a request/response cycle.
type RelayService struct {
	subscriber *pktNats.Subscriber
	hub        IRealtimeNotifier
	logger     logger.ILogger
}

func NewRelayService(sub *pktNats.Subscriber, hub IRealtimeNotifier, log logger.ILogger) *RelayService {
	return &RelayService{
		subscriber: sub,
		hub:        hub,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *RelayService) Start() {
	err := s.subscriber.Subscribe("journal.session.>", "realtime-relay-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("RelayService", "Failed to start relay subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("RelayService", "Relay service started, listening to journal.session.>", nil)
}

func (s *RelayService) handleEvent(ctx context.Context, event events.Event) error {
	// NATS subjects carry the stream prefix; the payload is what matters here.
	typeCode := strings.TrimPrefix(event.EventType(), "journal.")

	payload := event.Payload()
	rawUserId, ok := payload["user_id"].(string)
	if !ok {
		s.logger.Warn("RelayService", fmt.Sprintf("Event '%s' has no user_id, skipping", typeCode), nil)
		return nil
	}
	userId, err := uuid.Parse(rawUserId)
	if err != nil {
		s.logger.Warn("RelayService", "Invalid user_id in event payload", map[string]interface{}{"error": err.Error()})
		return nil
	}

	switch typeCode {
	case events.TypeSessionCompleted:
		s.hub.Send(userId, websocket.Event{
			Type: websocket.EventSessionCompleted,
			Data: payload,
		})
	case events.TypeSessionDeleted:
		// Deletion is client-initiated; nothing to push back.
	default:
		s.logger.Debug("RelayService", fmt.Sprintf("Ignoring event type: %s", typeCode), nil)
	}

	return nil
}
