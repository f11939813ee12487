package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"game-exploration-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(nil, logger.NewNopLogger())
	go h.Run(ctx)
	return h
}

func attach(t *testing.T, h *Hub, projectID uuid.UUID, sessionID uint, buffer int) *Viewer {
	t.Helper()
	v := h.newViewer(projectID, sessionID, buffer)
	before := h.Viewers(projectID)
	h.register <- v
	require.Eventually(t, func() bool { return h.Viewers(projectID) == before+1 }, time.Second, 5*time.Millisecond)
	return v
}

func receive(t *testing.T, v *Viewer) StateMessage {
	t.Helper()
	select {
	case raw := <-v.send:
		var msg StateMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("viewer did not receive the state message")
	}
	return StateMessage{}
}

func TestHub_PublishStateReachesProjectViewers(t *testing.T) {
	h := startHub(t)
	project := uuid.New()

	a := attach(t, h, project, 0, 4)
	b := attach(t, h, project, 0, 4)
	stranger := attach(t, h, uuid.New(), 0, 4)

	h.PublishState(project, 7, "memory_writing")

	for _, v := range []*Viewer{a, b} {
		assert.Equal(t, StateMessage{SessionID: 7, State: "memory_writing"}, receive(t, v))
	}
	assert.Len(t, stranger.send, 0)
}

func TestHub_SessionFilter(t *testing.T) {
	h := startHub(t)
	project := uuid.New()
	only3 := attach(t, h, project, 3, 4)

	h.PublishState(project, 2, "previewing")
	h.PublishState(project, 3, "iterating")

	assert.Equal(t, StateMessage{SessionID: 3, State: "iterating"}, receive(t, only3))
	assert.Len(t, only3.send, 0)
}

func TestHub_UnregisterClosesSendOnce(t *testing.T) {
	h := startHub(t)
	project := uuid.New()
	v := attach(t, h, project, 0, 1)

	h.unregister <- v
	h.unregister <- v
	require.Eventually(t, func() bool { return h.Viewers(project) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-v.send
	assert.False(t, open)
}

func TestHub_SlowViewerIsDropped(t *testing.T) {
	h := startHub(t)
	project := uuid.New()
	v := attach(t, h, project, 0, 1)

	h.PublishState(project, 1, "explore_options")
	h.PublishState(project, 1, "previewing")

	require.Eventually(t, func() bool { return h.Viewers(project) == 0 }, time.Second, 5*time.Millisecond)
	first, open := <-v.send
	require.True(t, open)
	assert.Contains(t, string(first), "explore_options")
}

func TestParseSessionFilter(t *testing.T) {
	id, err := ParseSessionFilter("")
	require.NoError(t, err)
	assert.Zero(t, id)

	id, err = ParseSessionFilter("12")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	for _, bad := range []string{"0", "-1", "abc"} {
		_, err := ParseSessionFilter(bad)
		assert.Error(t, err, bad)
	}
}

func TestHub_StopReleasesViewers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(nil, logger.NewNopLogger())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	project := uuid.New()
	v := attach(t, h, project, 0, 1)

	cancel()
	<-stopped

	_, open := <-v.send
	assert.False(t, open, "stopping the hub closes viewer streams")
	assert.Zero(t, h.Viewers(project))

	returned := make(chan struct{})
	go func() {
		h.leave(v)
		assert.False(t, h.join(h.newViewer(project, 0, 1)))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("join/leave blocked after the hub stopped")
	}
	h.PublishState(project, 1, "stable")
}
