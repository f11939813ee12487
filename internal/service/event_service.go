package service

import (
	"context"
	"encoding/json"
	"fmt"

	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ExplorationTopic is the in-process topic carrying exploration domain events.
const ExplorationTopic = "exploration.events"

type IEventService interface {
	Publish(ctx context.Context, event events.Event) error
}

type eventService struct {
	publisher message.Publisher
	topic     string
	logger    logger.ILogger
}

func NewEventService(publisher message.Publisher, topic string, log logger.ILogger) IEventService {
	return &eventService{publisher: publisher, topic: topic, logger: log}
}

func (s *eventService) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(events.BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.EventType())
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		s.logger.Error("EVENTS", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// publishQuietly emits an event after its mutation committed. A failed publish
// is logged by the event service and never undoes the mutation.
func publishQuietly(ctx context.Context, svc IEventService, event events.Event) {
	if svc == nil {
		return
	}
	_ = svc.Publish(ctx, event)
}
