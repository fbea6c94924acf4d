package wsrv

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// TextFrame is the decoded shape of an incoming text WS frame.
type TextFrame struct {
	EventType string          `json:"event_type"`
	Event     json.RawMessage `json:"event"`
}

// TextHandler handles one decoded text frame from a session.
type TextHandler func(s *Session, frame TextFrame)

// BinaryHandler handles one binary frame; opcode is payload[0].
type BinaryHandler func(s *Session, opcode byte, payload []byte)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Session is one WebSocket connection.
type Session struct {
	conn *websocket.Conn
	hub  *Hub

	writeMu sync.Mutex
	user    string
}

// User returns the authenticated user owning this session, if any.
func (s *Session) User() string { return s.user }

// SendText sends a {event_type, event} text frame to this session.
func (s *Session) SendText(eventType string, event any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(TextFrame{EventType: eventType, Event: mustMarshal(event)})
}

// SendBinary sends a binary frame whose first byte is opcode.
func (s *Session) SendBinary(opcode byte, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, append([]byte{opcode}, payload...))
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}

// Hub tracks live sessions, sends heartbeats, and broadcasts.
type Hub struct {
	mu        sync.Mutex
	sessions  map[*Session]struct{}
	heartbeat time.Duration
	logger    *log.Logger
}

// NewHub creates a Hub sending a "pong" text event to each session
// every heartbeat.
func NewHub(heartbeat time.Duration, logger *log.Logger) *Hub {
	return &Hub{
		sessions:  map[*Session]struct{}{},
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Serve upgrades r to a WebSocket, registers the session, and runs
// its read loop until the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, onText TextHandler, onBinary BinaryHandler) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}

	user, _ := UserFromContext(r.Context())
	sess := &Session{conn: conn, hub: h, user: user}

	h.mu.Lock()
	h.sessions[sess] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.sessions, sess)
		h.mu.Unlock()
		conn.Close()
	}()

	stopHeartbeat := h.startHeartbeat(sess)
	defer stopHeartbeat()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.TextMessage:
			if onText == nil {
				continue
			}
			var frame TextFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			onText(sess, frame)
		case websocket.BinaryMessage:
			if onBinary == nil || len(data) < 1 {
				continue
			}
			onBinary(sess, data[0], data[1:])
		}
	}
}

func (h *Hub) startHeartbeat(sess *Session) func() {
	ticker := time.NewTicker(h.heartbeat)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				_ = sess.SendText("pong", struct{}{})
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

// Broadcast sends a text event to every live session, ignoring
// individual send errors.
func (h *Hub) Broadcast(eventType string, event any) {
	h.mu.Lock()
	snapshot := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	for _, s := range snapshot {
		_ = s.SendText(eventType, event)
	}
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
