package realtime

import (
	"context"
	"strings"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

// MessageStore persists chat messages.
type MessageStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
}

// Trigger hands a prompt to the assistant without waiting for the reply.
type Trigger interface {
	HandleTrigger(ctx context.Context, projectID uint, prompt string, requestedBy uint)
}

// Channel delivers chat messages posted in a room.
type Channel struct {
	hub          *Hub
	store        MessageStore
	trigger      Trigger
	triggerToken string
	metrics      *metrics.Metrics
}

func NewChannel(hub *Hub, store MessageStore, trigger Trigger, triggerToken string, m *metrics.Metrics) *Channel {
	return &Channel{
		hub:          hub,
		store:        store,
		trigger:      trigger,
		triggerToken: triggerToken,
		metrics:      m,
	}
}

// IsTrigger reports whether text addresses the assistant. The match is a
// case-sensitive substring test.
func (c *Channel) IsTrigger(text string) bool {
	return c.triggerToken != "" && strings.Contains(text, c.triggerToken)
}

// StripTrigger removes every occurrence of the trigger token from text.
func (c *Channel) StripTrigger(text string) string {
	if c.triggerToken == "" {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.ReplaceAll(text, c.triggerToken, ""))
}

// SendChatMessage persists text, broadcasts it to everyone in the room but
// the sending session, then invokes the assistant if the text carries the
// trigger token. Nothing is broadcast when persistence fails.
func (c *Channel) SendChatMessage(ctx context.Context, text string, sender Identity, projectID uint, senderSessionID string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		ProjectID:    projectID,
		Text:         text,
		SenderKind:   models.SenderHuman,
		SenderEmail:  sender.Email,
		SenderUserID: &sender.UserID,
	}
	if err := c.store.Create(ctx, msg); err != nil {
		c.metrics.DeliveryFailures.Inc()
		logger.Error().Err(err).Uint("project_id", projectID).Uint("user_id", sender.UserID).Msg("[Channel] Failed to persist message")
		return nil, err
	}
	c.metrics.RecordMessage(string(models.SenderHuman))

	c.hub.Broadcast(projectID, Event{Type: FrameProjectMessage, ProjectID: projectID, Message: msg}, senderSessionID)

	if c.trigger != nil && c.IsTrigger(text) {
		c.trigger.HandleTrigger(ctx, projectID, c.StripTrigger(text), sender.UserID)
	}
	return msg, nil
}
