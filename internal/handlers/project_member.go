package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/middleware"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

// AddMember adds a user by email
// POST /api/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.AddMember(c.Request.Context(), id, middleware.GetUserID(c), req.Email, req.Role)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, project)
}

// RemoveMember removes a member
// DELETE /api/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	target, ok := pathID(c, "userId")
	if !ok {
		return
	}

	project, err := h.projectService.RemoveMember(c.Request.Context(), id, middleware.GetUserID(c), target)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, project)
}

// ChangeRole promotes or demotes a member
// PUT /api/projects/:id/members/role
func (h *ProjectHandler) ChangeRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.ChangeRole(c.Request.Context(), id, middleware.GetUserID(c), req.UserID, req.Role)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, project)
}
