package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/Rishabhh01/collab-kanban/internal/ws"
)

// WebSocketHandler upgrades client connections onto the relay.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{wsHandler: wsHandler}
}

// Connect handles GET /api/ws - joins the real-time relay.
// Identity is established by the subsequent JOIN_BOARD message; authentication
// happens upstream and the relay trusts the identity handed to it.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// The upgrader has already written its own error response.
		log.Printf("WebSocket upgrade failed: %v", err)
	}
}

// RegisterRoutes registers the WebSocket route on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", h.Connect)
}
