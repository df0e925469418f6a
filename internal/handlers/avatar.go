package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

type AvatarHandler struct {
	avatarService *services.AvatarService
}

func NewAvatarHandler(avatarService *services.AvatarService) *AvatarHandler {
	return &AvatarHandler{avatarService: avatarService}
}

// Get serves the pixel-art avatar for a seed
// GET /api/avatar/:seed
func (h *AvatarHandler) Get(c *gin.Context) {
	seed := c.Param("seed")
	svg, err := h.avatarService.SVG(c.Request.Context(), seed)
	if err != nil {
		logger.Warn().Err(err).Str("seed", seed).Msg("[Avatar] Upstream fetch failed")
		response.Error(c, response.NewBadGateway("Failed to fetch avatar").Wrap(err))
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/svg+xml", svg)
}
