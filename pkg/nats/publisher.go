package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"game-exploration-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher writes exploration events to JetStream.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewPublisher connects and makes sure the exploration stream exists. A
// stream that cannot be ensured is logged, not fatal; publishes fail instead.
func NewPublisher(url string) (*Publisher, error) {
	nc, js, err := dial(url, "game-exploration-be")
	if err != nil {
		return nil, err
	}
	if err := ensureStream(context.Background(), js); err != nil {
		log.Printf("Warn: ensuring stream %s: %v", StreamName, err)
	}
	return &Publisher{nc: nc, js: js}, nil
}

// Publish sends the event envelope to exploration.<TYPE>. A redelivered
// publish of the same event is dropped by the stream's duplicate window.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(events.BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.EventType(), err)
	}

	subject := Subject(event.EventType())
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(MsgID(event))); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// MsgID identifies an event by type, session and occurrence time.
func MsgID(event events.Event) string {
	id := event.EventType() + ":" + strconv.FormatInt(event.Timestamp().UnixNano(), 10)
	if session, ok := event.Payload()["session_id"]; ok {
		id += ":" + fmt.Sprint(session)
	}
	return id
}
