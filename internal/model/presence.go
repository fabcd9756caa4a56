package model

import "time"

// UserInfo is the display information a client supplies when joining a board.
type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OnlineUser is a single entry in a presence snapshot.
type OnlineUser struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	LastSeen time.Time `json:"lastSeen"`

	// BoardID is only populated in cross-board snapshots.
	BoardID string `json:"boardId,omitempty"`
}

// BoardSession records which board a user is currently viewing. A user has at
// most one active session at a time.
type BoardSession struct {
	UserID   string    `json:"userId"`
	BoardID  string    `json:"boardId"`
	Info     UserInfo  `json:"userInfo"`
	LastSeen time.Time `json:"lastSeen"`
}
