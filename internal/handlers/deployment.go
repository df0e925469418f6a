package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/artifact"
	"github.com/codecraft-ai/codecraft/backend/internal/middleware"
	"github.com/codecraft-ai/codecraft/backend/internal/realtime"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

type DeploymentHandler struct {
	deployService  *services.DeployService
	projectService *services.ProjectService
	artifacts      *realtime.Artifacts
}

func NewDeploymentHandler(deployService *services.DeployService, projectService *services.ProjectService, artifacts *realtime.Artifacts) *DeploymentHandler {
	return &DeploymentHandler{
		deployService:  deployService,
		projectService: projectService,
		artifacts:      artifacts,
	}
}

type vercelDeployRequest struct {
	ProjectID   uint              `json:"projectId"`
	ProjectName string            `json:"projectName" binding:"required"`
	VercelToken string            `json:"vercelToken"`
	FileTree    artifact.FileTree `json:"fileTree"`
}

// DeployVercel deploys a file tree, or the project's current artifact when
// none is posted
// POST /api/deployments/vercel
func (h *DeploymentHandler) DeployVercel(c *gin.Context) {
	var req vercelDeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	if req.ProjectID != 0 {
		if _, err := h.projectService.Get(ctx, req.ProjectID, userID); err != nil {
			fail(c, err)
			return
		}
	}

	tree := req.FileTree
	if len(tree) == 0 {
		if req.ProjectID == 0 {
			response.BadRequest(c, "fileTree or projectId is required")
			return
		}
		current, _, err := h.artifacts.Current(ctx, req.ProjectID)
		if err != nil {
			fail(c, err)
			return
		}
		tree = current.FileTree
	}

	result, err := h.deployService.Deploy(ctx, userID, &services.DeployRequest{
		ProjectID:   req.ProjectID,
		ProjectName: req.ProjectName,
		Token:       req.VercelToken,
		FileTree:    tree,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, result)
}

// List returns the caller's deployments, newest first
// GET /api/deployments
func (h *DeploymentHandler) List(c *gin.Context) {
	deployments, err := h.deployService.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"deployments": deployments})
}
