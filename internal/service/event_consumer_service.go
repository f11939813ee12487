package service

import (
	"context"
	"encoding/json"

	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// StateNotifier pushes a session state to live viewers of a project.
type StateNotifier interface {
	PublishState(projectID uuid.UUID, sessionID uint, state string)
}

// ExternalPublisher forwards events outside the process (NATS).
type ExternalPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	external   ExternalPublisher
	notifier   StateNotifier
	logger     logger.ILogger
}

// NewConsumerService wires the in-process event stream to its sinks. external
// and notifier may be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	external ExternalPublisher,
	notifier StateNotifier,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		external:   external,
		notifier:   notifier,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

type stateChange struct {
	ProjectID string `json:"project_id"`
	SessionID uint   `json:"session_id"`
	State     string `json:"state"`
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("EVENTS", "Failed to unmarshal event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Invalid payloads never succeed
		return
	}

	if event.Type == events.ExplorationStateChanged && cs.notifier != nil {
		if change, ok := decodeStateChange(event); ok {
			cs.notifier.PublishState(change.pid, change.SessionID, change.State)
		}
	}

	if cs.external != nil {
		if err := cs.external.Publish(ctx, event); err != nil {
			cs.logger.Warn("EVENTS", "Failed to forward event", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}

type parsedStateChange struct {
	stateChange
	pid uuid.UUID
}

func decodeStateChange(event events.BaseEvent) (parsedStateChange, bool) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return parsedStateChange{}, false
	}
	var change stateChange
	if err := json.Unmarshal(raw, &change); err != nil {
		return parsedStateChange{}, false
	}
	pid, err := uuid.Parse(change.ProjectID)
	if err != nil {
		return parsedStateChange{}, false
	}
	return parsedStateChange{stateChange: change, pid: pid}, true
}
