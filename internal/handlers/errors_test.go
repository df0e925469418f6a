package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/codecraft-ai/codecraft/backend/internal/realtime"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrProjectNotFound, http.StatusNotFound},
		{realtime.ErrFileNotFound, http.StatusNotFound},
		{services.ErrNotMember, http.StatusForbidden},
		{services.ErrNotAdmin, http.StatusForbidden},
		{services.ErrLastAdmin, http.StatusUnprocessableEntity},
		{services.ErrAlreadyMember, http.StatusConflict},
		{services.ErrEmailTaken, http.StatusConflict},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrInvalidRole, http.StatusBadRequest},
		{realtime.ErrNoFileTree, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", services.ErrLastAdmin), http.StatusUnprocessableEntity},
		{&services.DeployError{StatusCode: 403, Message: "Not authorized"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			var appErr *response.AppError
			if !errors.As(toAppError(tt.err), &appErr) {
				t.Fatalf("expected an AppError for %v", tt.err)
			}
			if appErr.HTTPStatus != tt.status {
				t.Errorf("status = %d, expected %d", appErr.HTTPStatus, tt.status)
			}
			if !errors.Is(appErr, tt.err) {
				t.Error("mapped error should keep its cause")
			}
		})
	}
}

func TestToAppError_UnknownPassesThrough(t *testing.T) {
	err := errors.New("disk on fire")
	if got := toAppError(err); got != err {
		t.Errorf("unknown errors should pass through, got %v", got)
	}
}
