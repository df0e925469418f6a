package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/codecraft-ai/codecraft/backend/internal/artifact"
	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
	"github.com/codecraft-ai/codecraft/backend/pkg/metrics"
)

const defaultArtifactSummary = "Updated project files"

var (
	ErrNoArtifact   = errors.New("no assistant artifact for this project")
	ErrNoFileTree   = errors.New("no file structure found in the assistant message")
	ErrFileNotFound = errors.New("file not found in the current artifact")
)

// AgentMessages reads and rewrites the assistant's messages.
type AgentMessages interface {
	ListBySenderDesc(ctx context.Context, projectID uint, kind models.SenderKind, limit int) ([]models.ChatMessage, error)
	UpdateText(ctx context.Context, id uint, text string) error
}

// Artifacts resolves and edits a project's current artifact.
type Artifacts struct {
	messages AgentMessages
	projects ProjectLoader
	hub      *Hub
	metrics  *metrics.Metrics

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewArtifacts(messages AgentMessages, projects ProjectLoader, hub *Hub, m *metrics.Metrics) *Artifacts {
	return &Artifacts{
		messages: messages,
		projects: projects,
		hub:      hub,
		metrics:  m,
		locks:    make(map[uint]*sync.Mutex),
	}
}

func (a *Artifacts) lock(projectID uint) func() {
	a.mu.Lock()
	l, ok := a.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[projectID] = l
	}
	a.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Current returns the artifact of the newest assistant message that
// decodes, skipping newer messages that do not.
func (a *Artifacts) Current(ctx context.Context, projectID uint) (*artifact.Artifact, *models.ChatMessage, error) {
	msgs, err := a.messages.ListBySenderDesc(ctx, projectID, models.SenderAgent, 0)
	if err != nil {
		return nil, nil, err
	}
	for i := range msgs {
		decoded, err := artifact.DecodeErr(msgs[i].Text)
		if err != nil {
			if errors.Is(err, artifact.ErrMalformed) {
				logger.Debug().Err(err).Uint("message_id", msgs[i].ID).Msg("[Artifacts] Skipping undecodable message")
			}
			continue
		}
		return decoded, &msgs[i], nil
	}
	return nil, nil, ErrNoArtifact
}

// SaveFile replaces one file of the current artifact and rewrites the
// message that carries it. The message count does not change.
func (a *Artifacts) SaveFile(ctx context.Context, projectID, userID uint, path, contents string) (*artifact.Artifact, error) {
	project, err := a.projects.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !services.IsMember(project, userID) {
		return nil, services.ErrNotMember
	}

	unlock := a.lock(projectID)
	defer unlock()

	current, msg, err := a.Current(ctx, projectID)
	if err != nil {
		a.metrics.RecordArtifactSave("no_artifact")
		return nil, err
	}
	if !current.HasFiles() {
		a.metrics.RecordArtifactSave("no_tree")
		return nil, ErrNoFileTree
	}
	if _, ok := artifact.Lookup(current.FileTree, path); !ok {
		a.metrics.RecordArtifactSave("not_found")
		return nil, ErrFileNotFound
	}

	updated := *current
	updated.FileTree = artifact.ReplaceFileContents(current.FileTree, path, contents)
	if updated.Summary == "" {
		updated.Summary = defaultArtifactSummary
	}

	body, err := artifact.Encode(&updated)
	if err != nil {
		return nil, err
	}
	if err := a.messages.UpdateText(ctx, msg.ID, body); err != nil {
		a.metrics.RecordArtifactSave("error")
		return nil, err
	}
	msg.Text = body
	a.metrics.RecordArtifactSave("saved")

	logger.Info().Uint("project_id", projectID).Uint("user_id", userID).Str("path", path).Msg("[Artifacts] File saved")
	a.hub.Broadcast(projectID, Event{Type: FrameArtifactUpdated, ProjectID: projectID, Message: msg}, "")
	return &updated, nil
}
