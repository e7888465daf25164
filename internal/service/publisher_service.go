package service

import (
	"context"

	"voice-journal-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/google/uuid"

	"voice-journal-be/internal/websocket"
)

// IPublisherService enqueues work on the in-process archival queue.
type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
}

// IEventPublisher is the analytics event bus (NATS JetStream in production).
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// IRealtimeNotifier pushes events to a user's connected clients.
type IRealtimeNotifier interface {
	Send(userID uuid.UUID, event websocket.Event)
}

type publisherService struct {
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewPublisherService(pubSub *gochannel.GoChannel, topicName string) IPublisherService {
	return &publisherService{
		pubSub:    pubSub,
		topicName: topicName,
	}
}

func (s *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return s.pubSub.Publish(s.topicName, msg)
}
