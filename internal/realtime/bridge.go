package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

// Bridge answers trigger messages with an assistant reply posted to the
// whole room.
type Bridge struct {
	queue     services.TaskQueue
	generator services.TextGenerator
	store     MessageStore
	hub       *Hub
	metrics   *metrics.Metrics
}

func NewBridge(queue services.TaskQueue, generator services.TextGenerator, store MessageStore, hub *Hub, m *metrics.Metrics) *Bridge {
	return &Bridge{
		queue:     queue,
		generator: generator,
		store:     store,
		hub:       hub,
		metrics:   m,
	}
}

// HandleTrigger schedules a reply for prompt and returns immediately.
func (b *Bridge) HandleTrigger(ctx context.Context, projectID uint, prompt string, requestedBy uint) {
	task := &services.GenerationTask{
		ProjectID:   projectID,
		Prompt:      prompt,
		RequestedBy: requestedBy,
		RequestID:   uuid.NewString(),
	}

	if err := b.queue.Enqueue(ctx, task); err != nil {
		logger.Error().Err(err).Uint("project_id", projectID).Str("request_id", task.RequestID).Msg("[Bridge] Failed to enqueue generation, replying with failure")
		go func() {
			if err := b.post(context.Background(), projectID, services.FailureReply); err != nil {
				logger.Error().Err(err).Uint("project_id", projectID).Msg("[Bridge] Failed to post failure reply")
			}
		}()
	}
}

// Process runs one generation task. A generation failure is replaced by
// the failure reply; only a persistence failure is returned.
func (b *Bridge) Process(ctx context.Context, task *services.GenerationTask) error {
	start := time.Now()
	reply, err := b.generator.Generate(ctx, task.Prompt)
	if err != nil {
		if errors.Is(err, services.ErrEmptyPrompt) {
			logger.Infof("[Bridge] Empty prompt in project %d", task.ProjectID)
		} else {
			logger.Error().Err(err).Uint("project_id", task.ProjectID).Str("request_id", task.RequestID).Msg("[Bridge] Generation failed")
		}
		reply = services.FailureReply
	}

	if err := b.post(context.WithoutCancel(ctx), task.ProjectID, reply); err != nil {
		return err
	}
	logger.Info().Uint("project_id", task.ProjectID).Str("request_id", task.RequestID).
		Dur("elapsed", time.Since(start)).Msg("[Bridge] Reply posted")
	return nil
}

func (b *Bridge) post(ctx context.Context, projectID uint, text string) error {
	msg := &models.ChatMessage{
		ProjectID:  projectID,
		Text:       text,
		SenderKind: models.SenderAgent,
	}
	if err := b.store.Create(ctx, msg); err != nil {
		b.metrics.DeliveryFailures.Inc()
		return err
	}
	b.metrics.RecordMessage(string(models.SenderAgent))

	b.hub.Broadcast(projectID, Event{Type: FrameProjectMessage, ProjectID: projectID, Message: msg}, "")
	return nil
}
