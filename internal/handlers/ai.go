package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/services"
	"github.com/codecraft-ai/codecraft/backend/pkg/response"
)

type AIHandler struct {
	generator services.TextGenerator
}

func NewAIHandler(generator services.TextGenerator) *AIHandler {
	return &AIHandler{generator: generator}
}

// GetResult runs one generation outside of any chat room
// GET /api/ai/get-result?prompt=
func (h *AIHandler) GetResult(c *gin.Context) {
	result, err := h.generator.Generate(c.Request.Context(), c.Query("prompt"))
	if err != nil {
		if errors.Is(err, services.ErrEmptyPrompt) {
			fail(c, err)
			return
		}
		response.Error(c, response.NewBadGateway(services.FailureReply).Wrap(err))
		return
	}

	response.Success(c, gin.H{"result": result})
}
