package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rishabhh01/collab-kanban/internal/ws"
)

// PresenceHandler serves presence queries for the CRUD collaborator and the
// web client.
type PresenceHandler struct {
	service *ws.Service
}

// NewPresenceHandler creates a new PresenceHandler.
func NewPresenceHandler(service *ws.Service) *PresenceHandler {
	return &PresenceHandler{service: service}
}

// GetBoard handles GET /api/presence/boards/:boardId - lists the users
// currently viewing a board.
func (h *PresenceHandler) GetBoard(c *gin.Context) {
	boardID := c.Param("boardId")
	if boardID == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Board ID is required")
		return
	}

	users := h.service.OnlineUsersForBoard(boardID)
	c.JSON(http.StatusOK, gin.H{
		"boardId":     boardID,
		"onlineUsers": users,
		"count":       len(users),
	})
}

// GetAll handles GET /api/presence - lists online users across all boards.
func (h *PresenceHandler) GetAll(c *gin.Context) {
	users := h.service.AllOnlineUsers()
	c.JSON(http.StatusOK, gin.H{
		"onlineUsers": users,
		"count":       len(users),
	})
}

// RegisterRoutes registers the presence routes on a Gin router group.
func (h *PresenceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/presence", h.GetAll)
	rg.GET("/presence/boards/:boardId", h.GetBoard)
}
