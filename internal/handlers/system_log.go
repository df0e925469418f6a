package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/middleware"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

type SystemLogHandler struct {
	systemLogService *services.SystemLogService
	projectService   *services.ProjectService
}

func NewSystemLogHandler(systemLogService *services.SystemLogService, projectService *services.ProjectService) *SystemLogHandler {
	return &SystemLogHandler{
		systemLogService: systemLogService,
		projectService:   projectService,
	}
}

// ListForProject returns a project's audit trail to its members
// GET /api/projects/:id/audit-logs
func (h *SystemLogHandler) ListForProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.projectService.Get(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}

	resp, err := h.systemLogService.ListForProject(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, resp)
}
