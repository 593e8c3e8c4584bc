package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/colonyops/redline/internal/core/eventbus"
)

const (
	sendBuffer = 32
	writeWait  = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: localOrigin}

// localOrigin allows requests without an Origin and from loopback hosts.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		return true
	}
	for _, p := range []string{"http://localhost", "http://127.0.0.1", "https://localhost", "https://127.0.0.1"} {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}

// Message is the wire form of a bus event.
type Message struct {
	Type    string `json:"type"`
	DiffID  string `json:"diff_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// messageFor converts a bus payload to its wire form.
func messageFor(event eventbus.Event, payload any) Message {
	msg := Message{Type: string(event), DiffID: eventbus.DiffIDOf(payload), Payload: payload}
	switch p := payload.(type) {
	case eventbus.TriggerOpenedPayload:
		msg.Payload = map[string]any{"strategy": p.Strategy, "selection": p.Selection}
	case eventbus.TriggerClosedPayload:
		msg.Payload = map[string]any{"submitted": p.Submitted}
	case eventbus.DiffSubmittedPayload:
		msg.Payload = p.Session
	case eventbus.DiffChunkAppliedPayload:
		msg.Payload = map[string]any{"chunk": p.Chunk, "raw": p.Raw}
	case eventbus.DiffStreamFinishedPayload:
		msg.Payload = map[string]any{"chunks": p.Chunks}
	case eventbus.DiffAbortedPayload:
		msg.Payload = nil
	case eventbus.DiffFailedPayload:
		errText := ""
		if p.Err != nil {
			errText = p.Err.Error()
		}
		msg.Payload = map[string]any{"error": errText}
	case eventbus.DiffResolvedPayload:
		msg.Payload = p.Entry
	case eventbus.NotificationPublishedPayload:
		msg.Payload = map[string]any{"level": p.Level, "message": p.Message}
	}
	return msg
}

type client struct {
	ws   *websocket.Conn
	send chan Message
}

// Hub fans bus events out to connected websocket clients. A client that
// cannot keep up loses messages rather than stalling the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	log     zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), log: log}
}

// Broadcast enqueues an event for every client. It has the signature of a
// bus publish hook.
func (h *Hub) Broadcast(event eventbus.Event, payload any) {
	msg := messageFor(event, payload)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Debug().Str("event", msg.Type).Msg("websocket client behind, dropping event")
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Connect upgrades the request and streams events until the client goes
// away.
func (h *Hub) Connect(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("origin", c.Request.Header.Get("Origin")).Msg("websocket upgrade failed")
		return
	}

	cl := &client{ws: ws, send: make(chan Message, sendBuffer)}
	if !h.join(cl) {
		_ = ws.Close()
		return
	}

	go h.writeLoop(cl)
	h.readLoop(cl)
}

func (h *Hub) join(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readLoop discards client messages; it only notices the disconnect.
func (h *Hub) readLoop(c *client) {
	defer h.leave(c)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer func() { _ = c.ws.Close() }()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(msg); err != nil {
			h.log.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
