// Package realtime runs the project chat rooms: websocket sessions, the
// join handshake, message fan-out and the assistant bridge.
package realtime

import "github.com/codecraft-ai/codecraft/backend/internal/models"

// Frame types exchanged over the socket.
const (
	FrameAuth            = "auth"
	FrameJoined          = "joined"
	FrameProjectMessage  = "project-message"
	FrameArtifactUpdated = "artifact-updated"
	FrameError           = "error"
)

// Error codes carried by FrameError.
const (
	CodeDeliveryFailed = "delivery_failed"
	CodeEmptyMessage   = "empty_message"
	CodeUnsupported    = "unsupported_frame"
)

// ClientFrame is a frame sent by a client.
type ClientFrame struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Event is a frame sent to clients.
type Event struct {
	Type      string              `json:"type"`
	ProjectID uint                `json:"projectId,omitempty"`
	SessionID string              `json:"sessionId,omitempty"`
	Message   *models.ChatMessage `json:"message,omitempty"`
	Code      string              `json:"code,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Identity is the authenticated user behind a session.
type Identity struct {
	UserID uint
	Email  string
}
