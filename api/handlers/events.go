package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rishabhh01/collab-kanban/internal/model"
	"github.com/Rishabhh01/collab-kanban/internal/ws"
)

// EventsHandler accepts mutation events from the CRUD collaborator (board,
// column, card and notification writes) and relays them to connected clients.
// Delivery is fire-and-forget; the relay is not a durable event log.
type EventsHandler struct {
	service *ws.Service
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(service *ws.Service) *EventsHandler {
	return &EventsHandler{service: service}
}

// BroadcastEventRequest is the request body for POST /api/events.
type BroadcastEventRequest struct {
	Type    string                 `json:"type"`
	BoardID string                 `json:"boardId"`
	Payload map[string]interface{} `json:"payload"`
}

// Validate checks the broadcast request.
func (r *BroadcastEventRequest) Validate() error {
	if r.Type == "" {
		return model.ErrEventTypeRequired
	}
	return nil
}

// Broadcast handles POST /api/events - relays a collaborator event, scoped to
// a board when boardId is set and globally otherwise.
func (h *EventsHandler) Broadcast(c *gin.Context) {
	var req BroadcastEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	h.service.Broadcast(ws.Event{
		Type:    ws.MessageType(req.Type),
		BoardID: req.BoardID,
		Payload: req.Payload,
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// RegisterRoutes registers the event ingestion route on a Gin router group.
func (h *EventsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/events", h.Broadcast)
}
