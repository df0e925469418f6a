package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/middleware"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

type MessageHandler struct {
	chatService    *services.ChatService
	projectService *services.ProjectService
	historyLimit   int
}

func NewMessageHandler(chatService *services.ChatService, projectService *services.ProjectService, historyLimit int) *MessageHandler {
	return &MessageHandler{
		chatService:    chatService,
		projectService: projectService,
		historyLimit:   historyLimit,
	}
}

// History returns the project's live messages, oldest first
// GET /api/messages/:projectId
func (h *MessageHandler) History(c *gin.Context) {
	id, ok := pathID(c, "projectId")
	if !ok {
		return
	}

	if _, err := h.projectService.Get(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}

	messages, err := h.chatService.ListByProject(c.Request.Context(), id, h.historyLimit)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"messages": messages})
}
