package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 1 << 20
	closeGraceWait = time.Second
)

// Session is one joined websocket connection.
type Session struct {
	id        string
	conn      *websocket.Conn
	send      chan Event
	projectID uint
	identity  Identity
	log       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func newSession(conn *websocket.Conn, p *Principal, buffer int) *Session {
	if buffer <= 0 {
		buffer = 256
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		conn:      conn,
		send:      make(chan Event, buffer),
		projectID: p.ProjectID,
		identity:  p.Identity,
		log:       logger.Session(p.ProjectID, id).With().Uint("user_id", p.Identity.UserID).Logger(),
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Deliver queues ev without blocking. It returns false when the session is
// closed or its buffer is full.
func (s *Session) Deliver(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.send <- ev:
		return true
	default:
		s.log.Warn().Str("type", ev.Type).Msg("[Session] Send buffer full, dropping event")
		return false
	}
}

// readLoop hands each client frame to handle in arrival order until the
// connection fails or ctx ends.
func (s *Session) readLoop(ctx context.Context, handle func(context.Context, ClientFrame)) {
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Warn().Err(err).Msg("[Session] Connection error")
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.Deliver(Event{Type: FrameError, Code: CodeUnsupported, Error: "frame is not valid json"})
			continue
		}
		frame.Type = strings.TrimSpace(frame.Type)
		handle(ctx, frame)
	}
}

// writeLoop drains the send buffer and keeps the connection alive with pings.
func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case ev := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.log.Debug().Err(err).Msg("[Session] Write failed")
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeGraceWait))
			return
		}
	}
}

// Close stops delivery and ends the write loop.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
