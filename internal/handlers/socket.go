package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/codecraft-ai/codecraft/backend/internal/middleware"
	"github.com/codecraft-ai/codecraft/backend/internal/realtime"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

type SocketHandler struct {
	server   *realtime.Server
	upgrader websocket.Upgrader
}

func NewSocketHandler(server *realtime.Server, allowedOrigins []string) *SocketHandler {
	return &SocketHandler{
		server: server,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// Serve upgrades the request and hands the connection to the chat server.
// The credential is read from the first frame, never from the request.
// GET /ws?projectId=
func (h *SocketHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Str("origin", c.GetHeader("Origin")).Msg("[Socket] Upgrade failed")
		return
	}
	h.server.ServeConn(c.Request.Context(), conn, c.Query("projectId"))
}
