package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/Rishabhh01/collab-kanban/internal/model"
)

// MessageType tags a wire message.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeJoinBoard    MessageType = "JOIN_BOARD"
	MessageTypeLeaveBoard   MessageType = "LEAVE_BOARD"
	MessageTypeUserActivity MessageType = "USER_ACTIVITY"
	MessageTypeCardUpdate   MessageType = "CARD_UPDATE"
	MessageTypeColumnUpdate MessageType = "COLUMN_UPDATE"
	MessageTypeBoardUpdate  MessageType = "BOARD_UPDATE"

	// Server -> Client message types
	MessageTypeJoinedBoard     MessageType = "JOINED_BOARD"
	MessageTypeUserJoinedBoard MessageType = "USER_JOINED_BOARD"
	MessageTypeUserLeftBoard   MessageType = "USER_LEFT_BOARD"
	MessageTypeError           MessageType = "ERROR"

	// MessageTypeRawCompat never appears on the wire. It tags frames that are
	// malformed or carry an unrecognized type; both degrade to a global
	// broadcast of the original bytes so naive clients that only understand
	// "send everything to everyone" keep working.
	MessageTypeRawCompat MessageType = "RAW_COMPAT"
)

// Inbound is a decoded client frame. Type selects which fields are meaningful;
// Raw always holds the original bytes so the compatibility and pass-through
// paths can re-broadcast them verbatim.
type Inbound struct {
	Type     MessageType    `json:"type"`
	UserID   string         `json:"userId"`
	BoardID  string         `json:"boardId"`
	UserInfo model.UserInfo `json:"userInfo"`
	Activity string         `json:"activity"`
	Raw      []byte         `json:"-"`
}

// validateJoin checks that a join request names both identities.
func (m Inbound) validateJoin() error {
	if m.UserID == "" {
		return model.ErrUserIDRequired
	}
	if m.BoardID == "" {
		return model.ErrBoardIDRequired
	}
	return nil
}

// decodeInbound parses one client frame. Frames that are not valid JSON or do
// not carry a recognized type decode to the RawCompat variant.
func decodeInbound(data []byte) Inbound {
	msg := Inbound{Raw: data}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Malformed message, falling back to raw broadcast: %v", err)
		return Inbound{Type: MessageTypeRawCompat, Raw: data}
	}

	switch msg.Type {
	case MessageTypeJoinBoard, MessageTypeLeaveBoard, MessageTypeUserActivity,
		MessageTypeCardUpdate, MessageTypeColumnUpdate, MessageTypeBoardUpdate:
		return msg
	default:
		msg.Type = MessageTypeRawCompat
		return msg
	}
}

// Outbound message shapes. Each is a flat {type, ...} object on the wire.

type joinedBoardMsg struct {
	Type        MessageType        `json:"type"`
	BoardID     string             `json:"boardId"`
	OnlineUsers []model.OnlineUser `json:"onlineUsers"`
	User        model.OnlineUser   `json:"user"`
}

type userJoinedBoardMsg struct {
	Type        MessageType        `json:"type"`
	BoardID     string             `json:"boardId"`
	User        model.OnlineUser   `json:"user"`
	OnlineUsers []model.OnlineUser `json:"onlineUsers"`
}

type userLeftBoardMsg struct {
	Type        MessageType        `json:"type"`
	BoardID     string             `json:"boardId"`
	UserID      string             `json:"userId"`
	OnlineUsers []model.OnlineUser `json:"onlineUsers"`
}

type userActivityMsg struct {
	Type      MessageType `json:"type"`
	BoardID   string      `json:"boardId"`
	UserID    string      `json:"userId"`
	Activity  string      `json:"activity"`
	Timestamp time.Time   `json:"timestamp"`
}

type errorMsg struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}
