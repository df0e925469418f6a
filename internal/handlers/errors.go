package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/realtime"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

// toAppError maps domain errors onto API statuses. Unknown errors pass
// through and are reported as 500 by response.Error.
func toAppError(err error) error {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var deployErr *services.DeployError
	if errors.As(err, &deployErr) {
		return response.NewBadGateway(deployErr.Message).Wrap(err)
	}

	switch {
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTargetNotMember),
		errors.Is(err, services.ErrLLMConfigNotFound),
		errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, realtime.ErrNoArtifact),
		errors.Is(err, realtime.ErrFileNotFound):
		return response.NewNotFound(err.Error()).Wrap(err)

	case errors.Is(err, services.ErrNotMember),
		errors.Is(err, services.ErrNotAdmin):
		return response.NewForbidden(err.Error()).Wrap(err)

	case errors.Is(err, services.ErrLastAdmin):
		return response.NewUnprocessable(err.Error()).Wrap(err)

	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyMember):
		return response.NewConflict(err.Error()).Wrap(err)

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrTokenRevoked):
		return response.NewUnauthorized(err.Error()).Wrap(err)

	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrProjectNameRequired),
		errors.Is(err, services.ErrEmptyPrompt),
		errors.Is(err, services.ErrDeployTokenRequired),
		errors.Is(err, services.ErrNothingToDeploy),
		errors.Is(err, realtime.ErrNoFileTree):
		return response.NewBadRequest(err.Error()).Wrap(err)
	}
	return err
}

func fail(c *gin.Context, err error) {
	response.Error(c, toAppError(err))
}

// pathID parses a numeric route parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
