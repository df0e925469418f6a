package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/middleware"
	"github.com/codecraft-ai/codecraft/backend/internal/realtime"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

type ArtifactHandler struct {
	artifacts      *realtime.Artifacts
	projectService *services.ProjectService
}

func NewArtifactHandler(artifacts *realtime.Artifacts, projectService *services.ProjectService) *ArtifactHandler {
	return &ArtifactHandler{
		artifacts:      artifacts,
		projectService: projectService,
	}
}

type saveFileRequest struct {
	ProjectID uint   `json:"projectId" binding:"required"`
	FilePath  string `json:"filePath"`
	FileName  string `json:"fileName"`
	Content   string `json:"content"`
}

// Current returns the project's latest assistant artifact
// GET /api/projects/:id/artifact
func (h *ArtifactHandler) Current(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if _, err := h.projectService.Get(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}

	current, msg, err := h.artifacts.Current(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"artifact": current, "messageId": msg.ID})
}

// SaveFile replaces one file of the current artifact in place
// POST /api/files/save
func (h *ArtifactHandler) SaveFile(c *gin.Context) {
	var req saveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	path := strings.Trim(req.FilePath, "/")
	if path == "" {
		path = strings.Trim(req.FileName, "/")
	}
	if path == "" {
		response.BadRequest(c, "filePath or fileName is required")
		return
	}

	updated, err := h.artifacts.SaveFile(c.Request.Context(), req.ProjectID, middleware.GetUserID(c), path, req.Content)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "File saved successfully", "artifact": updated})
}
