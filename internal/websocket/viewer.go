package websocket

import (
	"strconv"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	readLimit    = 512
	viewerBuffer = 64
)

// Viewer is one websocket connection following a project's exploration
// stream. A non-zero SessionID narrows it to a single session.
type Viewer struct {
	ProjectID uuid.UUID
	SessionID uint

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// ParseSessionFilter reads the optional session_id query value. Empty means
// every session of the project.
func ParseSessionFilter(raw string) (uint, error) {
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(id), nil
}

// Follow attaches conn to the hub and blocks until the viewer goes away.
func Follow(hub *Hub, conn *websocket.Conn, projectID uuid.UUID, sessionID uint) {
	v := hub.newViewer(projectID, sessionID, viewerBuffer)
	v.conn = conn
	if !hub.join(v) {
		conn.Close()
		return
	}

	go v.pushStates()
	v.awaitClose()
}

func (v *Viewer) wants(sessionID uint) bool {
	return v.SessionID == 0 || v.SessionID == sessionID
}

// awaitClose discards inbound frames; the stream only flows to the viewer.
// Returning unregisters the viewer.
func (v *Viewer) awaitClose() {
	defer func() {
		v.hub.leave(v)
		v.conn.Close()
	}()

	v.conn.SetReadLimit(readLimit)
	extend := func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	_ = extend("")
	v.conn.SetPongHandler(extend)

	for {
		_, _, err := v.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			v.hub.logger.Warn(hubModule, "Viewer closed unexpectedly", map[string]interface{}{
				"project_id": v.ProjectID,
				"session_id": v.SessionID,
				"error":      err.Error(),
			})
		}
		return
	}
}

// pushStates writes one text frame per state message and keeps the
// connection alive with pings.
func (v *Viewer) pushStates() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		v.conn.Close()
	}()

	for {
		var (
			kind    int
			payload []byte
		)
		select {
		case msg, open := <-v.send:
			if !open {
				_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind, payload = websocket.TextMessage, msg
		case <-ping.C:
			kind = websocket.PingMessage
		}
		_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := v.conn.WriteMessage(kind, payload); err != nil {
			return
		}
	}
}
