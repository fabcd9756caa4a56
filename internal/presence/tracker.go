// Package presence tracks which users are currently viewing which board.
package presence

import (
	"log"
	"sync"
	"time"

	"github.com/Rishabhh01/collab-kanban/internal/model"
)

// Tracker maintains in-memory board membership. It keeps a forward index from
// board to member set and a reverse index from user to their active session.
// A user is present on at most one board at a time.
//
// All operations are total: acting on an unknown user or board is a no-op,
// never an error.
type Tracker struct {
	mu       sync.RWMutex
	boards   map[string]map[string]struct{}
	sessions map[string]*model.BoardSession
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		boards:   make(map[string]map[string]struct{}),
		sessions: make(map[string]*model.BoardSession),
	}
}

// Join adds the user to the board and returns the board's membership. If the
// user is already present on a different board they are removed from it first;
// relying on the session overwrite alone would leave a ghost entry in the old
// board's member set.
func (t *Tracker) Join(userID, boardID string, info model.UserInfo) []model.OnlineUser {
	t.mu.Lock()

	if prev, ok := t.sessions[userID]; ok && prev.BoardID != boardID {
		t.removeLocked(userID, prev.BoardID)
	}

	set, ok := t.boards[boardID]
	if !ok {
		set = make(map[string]struct{})
		t.boards[boardID] = set
	}
	set[userID] = struct{}{}

	if info.Name == "" {
		info.Name = defaultName(userID)
	}
	t.sessions[userID] = &model.BoardSession{
		UserID:   userID,
		BoardID:  boardID,
		Info:     info,
		LastSeen: time.Now(),
	}

	members := t.membersLocked(boardID)
	t.mu.Unlock()

	log.Printf("User %s joined board %s", userID, boardID)
	return members
}

// Leave removes the user from the board and returns the board's remaining
// membership. Leaving a board the user is not on is a no-op.
func (t *Tracker) Leave(userID, boardID string) []model.OnlineUser {
	t.mu.Lock()
	t.removeLocked(userID, boardID)
	members := t.membersLocked(boardID)
	t.mu.Unlock()

	log.Printf("User %s left board %s", userID, boardID)
	return members
}

// Touch refreshes the user's last-seen timestamp without changing membership.
func (t *Tracker) Touch(userID string) {
	t.mu.Lock()
	if sess, ok := t.sessions[userID]; ok {
		sess.LastSeen = time.Now()
	}
	t.mu.Unlock()
}

// MembersOf returns a snapshot of the board's online users.
func (t *Tracker) MembersOf(boardID string) []model.OnlineUser {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.membersLocked(boardID)
}

// AllOnlineUsers returns every active session across all boards, each entry
// carrying the board it belongs to.
func (t *Tracker) AllOnlineUsers() []model.OnlineUser {
	t.mu.RLock()
	defer t.mu.RUnlock()

	users := make([]model.OnlineUser, 0, len(t.sessions))
	for userID, sess := range t.sessions {
		users = append(users, model.OnlineUser{
			ID:       userID,
			Name:     sess.Info.Name,
			Email:    sess.Info.Email,
			LastSeen: sess.LastSeen,
			BoardID:  sess.BoardID,
		})
	}
	return users
}

// SessionOf returns a copy of the user's active session, if any.
func (t *Tracker) SessionOf(userID string) (model.BoardSession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sess, ok := t.sessions[userID]
	if !ok {
		return model.BoardSession{}, false
	}
	return *sess, true
}

// SweepStale evicts every session whose last-seen timestamp is older than
// maxAge, using the same removal path as Leave, and returns the evicted
// sessions. Disconnect events can be lost to crashes and partitions; the sweep
// is the liveness backstop that clears the resulting orphaned entries.
func (t *Tracker) SweepStale(maxAge time.Duration) []model.BoardSession {
	cutoff := time.Now().Add(-maxAge)

	t.mu.Lock()
	var evicted []model.BoardSession
	for _, sess := range t.sessions {
		if sess.LastSeen.Before(cutoff) {
			evicted = append(evicted, *sess)
		}
	}
	for _, sess := range evicted {
		t.removeLocked(sess.UserID, sess.BoardID)
	}
	t.mu.Unlock()

	if len(evicted) > 0 {
		log.Printf("Cleaned up %d inactive users", len(evicted))
	}
	return evicted
}

// removeLocked deletes the user from the board's member set and, only when the
// user's session actually points at that board, drops the session. The guard
// keeps Leave idempotent: leaving the wrong board must not destroy a live
// session elsewhere.
func (t *Tracker) removeLocked(userID, boardID string) {
	if set, ok := t.boards[boardID]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(t.boards, boardID)
		}
	}
	if sess, ok := t.sessions[userID]; ok && sess.BoardID == boardID {
		delete(t.sessions, userID)
	}
}

// membersLocked builds the membership snapshot for a board. Entries whose
// recorded board no longer matches are filtered out defensively.
func (t *Tracker) membersLocked(boardID string) []model.OnlineUser {
	set, ok := t.boards[boardID]
	if !ok {
		return []model.OnlineUser{}
	}

	members := make([]model.OnlineUser, 0, len(set))
	for userID := range set {
		sess, ok := t.sessions[userID]
		if !ok || sess.BoardID != boardID {
			continue
		}
		members = append(members, model.OnlineUser{
			ID:       userID,
			Name:     sess.Info.Name,
			Email:    sess.Info.Email,
			LastSeen: sess.LastSeen,
		})
	}
	return members
}

// defaultName is the display name used when a client joins without one.
func defaultName(userID string) string {
	if len(userID) > 8 {
		userID = userID[:8]
	}
	return "User " + userID
}
