package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"game-exploration-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const hubModule = "ExplorationHub"

// ClusterChannel is the redis channel state messages are fanned out on.
const ClusterChannel = "exploration_state"

// StateMessage is what viewers of a project's exploration stream receive.
type StateMessage struct {
	SessionID uint   `json:"session_id"`
	State     string `json:"state"`
}

type clusterPayload struct {
	Origin    string       `json:"origin"`
	ProjectID string       `json:"project_id"`
	Message   StateMessage `json:"message"`
}

type Hub struct {
	viewers map[uuid.UUID]map[*Viewer]struct{}
	mu      sync.RWMutex

	register   chan *Viewer
	unregister chan *Viewer
	// done is closed once Run returns; joins and leaves stop blocking on it.
	done chan struct{}

	// rdb is nil on a single node.
	rdb *redis.Client
	// instanceID lets the redis subscriber skip messages this node already delivered.
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		viewers:    make(map[uuid.UUID]map[*Viewer]struct{}),
		register:   make(chan *Viewer),
		unregister: make(chan *Viewer),
		done:       make(chan struct{}),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) newViewer(projectID uuid.UUID, sessionID uint, buffer int) *Viewer {
	return &Viewer{
		ProjectID: projectID,
		SessionID: sessionID,
		hub:       h,
		send:      make(chan []byte, buffer),
	}
}

// Run serves register/unregister requests until ctx is done. On return every
// viewer's stream is closed.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	if h.rdb != nil {
		go h.relayCluster(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-h.register:
			h.add(v)
		case v := <-h.unregister:
			h.remove(v)
		}
	}
}

func (h *Hub) stop() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for project, set := range h.viewers {
		for v := range set {
			close(v.send)
		}
		delete(h.viewers, project)
	}
}

// join reports false when the hub has stopped.
func (h *Hub) join(v *Viewer) bool {
	select {
	case h.register <- v:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(v *Viewer) {
	select {
	case h.unregister <- v:
	case <-h.done:
	}
}

func (h *Hub) add(v *Viewer) {
	h.mu.Lock()
	set, ok := h.viewers[v.ProjectID]
	if !ok {
		set = make(map[*Viewer]struct{})
		h.viewers[v.ProjectID] = set
	}
	set[v] = struct{}{}
	h.mu.Unlock()

	h.logger.Info(hubModule, "Viewer registered", map[string]interface{}{
		"project_id": v.ProjectID,
		"session_id": v.SessionID,
	})
}

// remove is idempotent; a viewer dropped for being slow may unregister again on close.
func (h *Hub) remove(v *Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.viewers[v.ProjectID]
	if !ok {
		return
	}
	if _, ok := set[v]; !ok {
		return
	}
	delete(set, v)
	close(v.send)
	if len(set) == 0 {
		delete(h.viewers, v.ProjectID)
	}
}

// PublishState delivers a session state change to every matching viewer of
// the project, on this node and, through redis, on every other node.
func (h *Hub) PublishState(projectID uuid.UUID, sessionID uint, state string) {
	msg := StateMessage{SessionID: sessionID, State: state}
	h.deliver(projectID, msg)

	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(clusterPayload{Origin: h.instanceID, ProjectID: projectID.String(), Message: msg})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
		h.logger.Warn(hubModule, "Redis publish failed", map[string]interface{}{"error": err.Error()})
	}
}

// Viewers reports how many local connections follow projectID.
func (h *Hub) Viewers(projectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[projectID])
}

func (h *Hub) deliver(projectID uuid.UUID, msg StateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	var slow []*Viewer
	h.mu.RLock()
	for v := range h.viewers[projectID] {
		if !v.wants(msg.SessionID) {
			continue
		}
		select {
		case v.send <- data:
		default:
			slow = append(slow, v)
		}
	}
	h.mu.RUnlock()

	for _, v := range slow {
		h.logger.Warn(hubModule, "Viewer buffer full, dropping viewer", map[string]interface{}{
			"project_id": projectID,
			"session_id": msg.SessionID,
		})
		go h.leave(v)
	}
}

func (h *Hub) relayCluster(ctx context.Context) {
	sub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			var p clusterPayload
			if err := json.Unmarshal([]byte(raw.Payload), &p); err != nil {
				h.logger.Warn(hubModule, "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if p.Origin == h.instanceID {
				continue
			}
			if pid, err := uuid.Parse(p.ProjectID); err == nil {
				h.deliver(pid, p.Message)
			}
		}
	}
}
