package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/internal/service"
	"game-exploration-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateRecorder struct {
	mu     sync.Mutex
	states []string
	last   uuid.UUID
}

func (r *stateRecorder) PublishState(projectID uuid.UUID, sessionID uint, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	r.last = projectID
}

func (r *stateRecorder) snapshot() ([]string, uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...), r.last
}

func TestEventsFlowToNotifierAndExternalPublisher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.NewNopLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	notifier := &stateRecorder{}
	external := &recordedEvents{}
	consumer := service.NewConsumerService(pubSub, service.ExplorationTopic, external, notifier, log)
	require.NoError(t, consumer.Consume(ctx))

	publisher := service.NewEventService(pubSub, service.ExplorationTopic, log)
	project := uuid.New()
	require.NoError(t, publisher.Publish(ctx, events.NewStateChanged(project.String(), 3, "committed", "memory_writing")))
	require.NoError(t, publisher.Publish(ctx, events.NewMemoryWritten(project.String(), 3, 9, "exploration_finish", 0.85)))

	require.Eventually(t, func() bool {
		return external.count(events.ExplorationMemoryWritten) == 1
	}, time.Second, 10*time.Millisecond)

	states, last := notifier.snapshot()
	assert.Equal(t, []string{"memory_writing"}, states)
	assert.Equal(t, project, last)
	assert.Equal(t, []string{"memory_writing"}, external.states())
}
