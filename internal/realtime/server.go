package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

type Options struct {
	HandshakeTimeout time.Duration
	SendBuffer       int
}

// Server drives a websocket connection from handshake to disconnect.
type Server struct {
	hub     *Hub
	auth    *Authenticator
	channel *Channel
	opts    Options
	metrics *metrics.Metrics
}

func NewServer(hub *Hub, auth *Authenticator, channel *Channel, opts Options, m *metrics.Metrics) *Server {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &Server{
		hub:     hub,
		auth:    auth,
		channel: channel,
		opts:    opts,
		metrics: m,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// ServeConn owns conn until the client disconnects. rawProjectID comes
// from the upgrade request; the credential must arrive in the first frame.
func (s *Server) ServeConn(ctx context.Context, conn *websocket.Conn, rawProjectID string) {
	principal, err := s.handshake(ctx, conn, rawProjectID)
	if err != nil {
		s.rejectConn(conn, err)
		return
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	session := newSession(conn, principal, s.opts.SendBuffer)
	session.log.Info().Msg("[Session] Joined")

	s.hub.Join(principal.ProjectID, session)
	session.Deliver(Event{Type: FrameJoined, ProjectID: principal.ProjectID, SessionID: session.ID()})

	go session.writeLoop()
	session.readLoop(sessionCtx, func(ctx context.Context, frame ClientFrame) {
		s.handleFrame(ctx, session, frame)
	})

	s.hub.Leave(principal.ProjectID, session.ID())
	session.Close()
	session.log.Info().Msg("[Session] Left")
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn, rawProjectID string) (*Principal, error) {
	conn.SetReadDeadline(time.Now().Add(s.opts.HandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var token string
	_, data, err := conn.ReadMessage()
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, reject(ReasonAuthRequired, errors.New("no auth frame before timeout"))
		}
		return nil, err
	}

	var frame ClientFrame
	if json.Unmarshal(data, &frame) == nil && strings.TrimSpace(frame.Type) == FrameAuth {
		token = frame.Token
	}

	authCtx, cancel := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
	defer cancel()
	return s.auth.Authenticate(authCtx, rawProjectID, token)
}

func (s *Server) rejectConn(conn *websocket.Conn, err error) {
	defer conn.Close()

	var hsErr *HandshakeError
	if !errors.As(err, &hsErr) {
		if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) ||
			errors.Is(err, websocket.ErrCloseSent) {
			return
		}
		logger.Error().Err(err).Msg("[Handshake] Aborted")
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "internal error"),
			time.Now().Add(writeWait))
		return
	}

	s.metrics.RecordRejection(string(hsErr.Reason))
	logger.Info().Str("reason", string(hsErr.Reason)).Err(hsErr.Err).Msg("[Handshake] Rejected")
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(hsErr.CloseCode(), string(hsErr.Reason)),
		time.Now().Add(writeWait))
}

func (s *Server) handleFrame(ctx context.Context, session *Session, frame ClientFrame) {
	switch frame.Type {
	case FrameProjectMessage:
		if strings.TrimSpace(frame.Text) == "" {
			session.Deliver(Event{Type: FrameError, Code: CodeEmptyMessage, Error: "message text is empty"})
			return
		}
		if _, err := s.channel.SendChatMessage(ctx, frame.Text, session.identity, session.projectID, session.ID()); err != nil {
			session.Deliver(Event{Type: FrameError, Code: CodeDeliveryFailed, Error: "message was not delivered"})
		}
	default:
		session.Deliver(Event{Type: FrameError, Code: CodeUnsupported, Error: "unsupported frame type " + frame.Type})
	}
}
