package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Rishabhh01/collab-kanban/internal/model"
	"github.com/Rishabhh01/collab-kanban/internal/presence"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Handler drives the per-connection session protocol: registration, inbound
// message dispatch, and disconnect cleanup. A connection is Unattached until a
// valid join, Joined while a board session is attached, and cleaned up exactly
// once on transport close.
type Handler struct {
	registry *Registry
	tracker  *presence.Tracker
	router   *Router
}

// NewHandler creates a protocol handler over the given registry, tracker and
// router.
func NewHandler(registry *Registry, tracker *presence.Tracker, router *Router) *Handler {
	return &Handler{
		registry: registry,
		tracker:  tracker,
		router:   router,
	}
}

// HandleConnection upgrades the HTTP request, registers the connection and
// runs its read/write pumps until the transport closes.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn)
	h.registry.Register(client)

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// handleRaw dispatches one inbound frame according to the connection's state.
func (h *Handler) handleRaw(client *Client, data []byte) {
	msg := decodeInbound(data)

	switch msg.Type {
	case MessageTypeJoinBoard:
		h.handleJoin(client, msg)
	case MessageTypeLeaveBoard:
		h.handleLeave(client, msg)
	case MessageTypeUserActivity:
		h.handleActivity(client, msg)
	case MessageTypeCardUpdate, MessageTypeColumnUpdate, MessageTypeBoardUpdate:
		h.handleUpdate(client, msg)
	case MessageTypeRawCompat:
		// Compatibility path: relay the original bytes to every connection,
		// sender included.
		h.router.PublishRaw(msg.Raw, "", "")
	}
}

// handleJoin attaches a board session to the connection, announces the arrival
// to the board and confirms to the sender with a membership snapshot.
func (h *Handler) handleJoin(client *Client, msg Inbound) {
	if err := msg.validateJoin(); err != nil {
		h.sendError(client, err.Error())
		return
	}

	// Joining while attached elsewhere is an implicit leave of the old board.
	// The relocating connection is still attached to the old board here, so
	// exclude it from the departure broadcast.
	if userID, boardID, ok := client.session(); ok && boardID != msg.BoardID {
		members := h.tracker.Leave(userID, boardID)
		h.router.publish(userLeftBoardMsg{
			Type:        MessageTypeUserLeftBoard,
			BoardID:     boardID,
			UserID:      userID,
			OnlineUsers: members,
		}, boardID, client.ID())
	}

	members := h.tracker.Join(msg.UserID, msg.BoardID, msg.UserInfo)
	client.attach(msg.UserID, msg.BoardID)
	joined := findUser(members, msg.UserID)

	h.router.publish(userJoinedBoardMsg{
		Type:        MessageTypeUserJoinedBoard,
		BoardID:     msg.BoardID,
		User:        joined,
		OnlineUsers: members,
	}, msg.BoardID, client.ID())

	h.sendMessage(client, joinedBoardMsg{
		Type:        MessageTypeJoinedBoard,
		BoardID:     msg.BoardID,
		OnlineUsers: members,
		User:        joined,
	})
}

// handleLeave detaches the session and announces the departure to the board.
func (h *Handler) handleLeave(client *Client, msg Inbound) {
	userID, boardID := msg.UserID, msg.BoardID
	if userID == "" || boardID == "" {
		// Bare leave: fall back to the attached session.
		var ok bool
		if userID, boardID, ok = client.session(); !ok {
			return
		}
	}

	if _, attached, ok := client.session(); ok && attached == boardID {
		client.detach()
	}
	members := h.tracker.Leave(userID, boardID)

	h.router.publish(userLeftBoardMsg{
		Type:        MessageTypeUserLeftBoard,
		BoardID:     boardID,
		UserID:      userID,
		OnlineUsers: members,
	}, boardID, "")
}

// handleActivity refreshes the session's last-seen timestamp and relays the
// activity to the rest of the board. Activity claims are only honored for the
// session's own user; anything else is dropped silently.
func (h *Handler) handleActivity(client *Client, msg Inbound) {
	userID, boardID, ok := client.session()
	if !ok || msg.UserID != userID {
		return
	}

	h.tracker.Touch(userID)

	h.router.publish(userActivityMsg{
		Type:      MessageTypeUserActivity,
		BoardID:   boardID,
		UserID:    userID,
		Activity:  msg.Activity,
		Timestamp: time.Now(),
	}, boardID, client.ID())
}

// handleUpdate relays a mutation frame verbatim to the board it names, sender
// included. The original bytes are forwarded so clients see exactly what was
// sent.
func (h *Handler) handleUpdate(client *Client, msg Inbound) {
	boardID := msg.BoardID
	if boardID == "" {
		_, boardID, _ = client.session()
	}
	h.router.PublishRaw(msg.Raw, boardID, "")
}

// disconnect runs close cleanup for a connection. The detach guard makes the
// departure broadcast fire exactly once even if cleanup races a leave.
func (h *Handler) disconnect(client *Client) {
	h.registry.Unregister(client.ID())

	if userID, boardID, ok := client.detach(); ok {
		members := h.tracker.Leave(userID, boardID)
		h.router.publish(userLeftBoardMsg{
			Type:        MessageTypeUserLeftBoard,
			BoardID:     boardID,
			UserID:      userID,
			OnlineUsers: members,
		}, boardID, "")
	}
}

// sendMessage marshals and queues a message for one connection only.
func (h *Handler) sendMessage(client *Client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}
	client.Send(data)
}

// sendError sends an ERROR message to the offending connection only.
func (h *Handler) sendError(client *Client, text string) {
	h.sendMessage(client, errorMsg{Type: MessageTypeError, Message: text})
}

// findUser picks the snapshot entry for the given user id.
func findUser(users []model.OnlineUser, id string) model.OnlineUser {
	for _, u := range users {
		if u.ID == id {
			return u
		}
	}
	return model.OnlineUser{ID: id}
}

// readPump pumps frames from the WebSocket connection into the protocol
// handler. It owns disconnect cleanup for the connection.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.disconnect(client)
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleRaw(client, message)
	}
}

// writePump pumps queued messages to the WebSocket connection and keeps the
// peer alive with periodic pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The registry closed the queue.
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Each message goes in its own frame so JSON.parse() works
			// correctly on the frontend.
			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued := <-client.SendChan()
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
