package realtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/internal/utils"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

// Reason names why a handshake was rejected.
type Reason string

const (
	ReasonAuthRequired   Reason = "AuthRequired"
	ReasonAuthFailed     Reason = "AuthFailed"
	ReasonInvalidProject Reason = "InvalidProject"
	ReasonForbidden      Reason = "Forbidden"
)

// Close codes sent with a rejected handshake.
const (
	CloseAuthRequired   = 4001
	CloseAuthFailed     = 4002
	CloseInvalidProject = 4003
	CloseForbidden      = 4004
)

// HandshakeError rejects a connection before it joins a room.
type HandshakeError struct {
	Reason Reason
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handshake rejected: %s: %v", e.Reason, e.Err)
	}
	return "handshake rejected: " + string(e.Reason)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// CloseCode maps the reason onto the websocket close code clients see.
func (e *HandshakeError) CloseCode() int {
	switch e.Reason {
	case ReasonAuthRequired:
		return CloseAuthRequired
	case ReasonAuthFailed:
		return CloseAuthFailed
	case ReasonInvalidProject:
		return CloseInvalidProject
	default:
		return CloseForbidden
	}
}

func reject(reason Reason, err error) *HandshakeError {
	return &HandshakeError{Reason: reason, Err: err}
}

// ProjectLoader looks up a project with its members.
type ProjectLoader interface {
	Load(ctx context.Context, id uint) (*models.Project, error)
}

// Principal is the outcome of a successful handshake.
type Principal struct {
	ProjectID uint
	Identity  Identity
}

// Authenticator runs the join handshake.
type Authenticator struct {
	verify      func(token string) (*utils.Claims, error)
	revocations services.RevocationList
	projects    ProjectLoader
}

func NewAuthenticator(revocations services.RevocationList, projects ProjectLoader) *Authenticator {
	return &Authenticator{
		verify:      utils.ParseToken,
		revocations: revocations,
		projects:    projects,
	}
}

// ParseProjectID accepts a positive decimal id.
func ParseProjectID(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("project id is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("malformed project id %q", raw)
	}
	return uint(id), nil
}

// Authenticate checks, in order: project id shape, credential presence,
// credential validity, revocation, project existence and membership.
// A failing revocation lookup is logged and the connection proceeds.
func (a *Authenticator) Authenticate(ctx context.Context, rawProjectID, token string) (*Principal, error) {
	projectID, err := ParseProjectID(rawProjectID)
	if err != nil {
		return nil, reject(ReasonInvalidProject, err)
	}
	if strings.TrimSpace(token) == "" {
		return nil, reject(ReasonAuthRequired, nil)
	}

	claims, err := a.verify(token)
	if err != nil {
		return nil, reject(ReasonAuthFailed, err)
	}

	if a.revocations != nil {
		revoked, err := a.revocations.IsRevoked(ctx, token)
		if err != nil {
			logger.Warn().Err(err).Uint("user_id", claims.UserID).Msg("[Handshake] Revocation check unavailable, admitting connection")
		} else if revoked {
			return nil, reject(ReasonAuthFailed, services.ErrTokenRevoked)
		}
	}

	project, err := a.projects.Load(ctx, projectID)
	if err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			return nil, reject(ReasonInvalidProject, err)
		}
		return nil, err
	}

	if !services.IsMember(project, claims.UserID) {
		return nil, reject(ReasonForbidden, services.ErrNotMember)
	}

	return &Principal{
		ProjectID: project.ID,
		Identity:  Identity{UserID: claims.UserID, Email: claims.Email},
	}, nil
}
