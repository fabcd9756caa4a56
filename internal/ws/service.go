package ws

import (
	"log"
	"sync"
	"time"

	"github.com/Rishabhh01/collab-kanban/internal/model"
	"github.com/Rishabhh01/collab-kanban/internal/presence"
)

const (
	// defaultSweepInterval is how often stale presence entries are swept.
	defaultSweepInterval = 2 * time.Minute

	// defaultStaleAfter is the inactivity threshold for eviction.
	defaultStaleAfter = 5 * time.Minute
)

// Config holds configuration for the relay service.
type Config struct {
	SweepInterval time.Duration
	StaleAfter    time.Duration
}

// Service owns the relay's state: connection registry, presence tracker,
// broadcast router and the stale-presence sweep. It is constructed explicitly
// and its lifecycle is tied to server start/stop; there are no package-level
// singletons or free-floating timers.
type Service struct {
	registry *Registry
	tracker  *presence.Tracker
	router   *Router
	handler  *Handler

	sweepInterval time.Duration
	staleAfter    time.Duration

	stop chan struct{}
	once sync.Once
}

// NewService creates a relay service. Zero config fields fall back to the
// defaults (2-minute sweep, 5-minute staleness threshold).
func NewService(config Config) *Service {
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaultSweepInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = defaultStaleAfter
	}

	registry := NewRegistry()
	tracker := presence.NewTracker()
	router := NewRouter(registry)

	return &Service{
		registry:      registry,
		tracker:       tracker,
		router:        router,
		handler:       NewHandler(registry, tracker, router),
		sweepInterval: config.SweepInterval,
		staleAfter:    config.StaleAfter,
		stop:          make(chan struct{}),
	}
}

// Handler returns the protocol handler for mounting on an HTTP route.
func (s *Service) Handler() *Handler {
	return s.handler
}

// Tracker returns the presence tracker.
func (s *Service) Tracker() *presence.Tracker {
	return s.tracker
}

// ConnectionCount returns the number of live connections.
func (s *Service) ConnectionCount() int {
	return s.registry.Count()
}

// Start launches the background sweep loop.
func (s *Service) Start() {
	go s.sweepLoop()
}

func (s *Service) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Sweep evicts presence entries idle longer than the configured threshold and
// broadcasts each departure exactly as an explicit leave would, so clients
// stop rendering users whose disconnects were lost. Returns the eviction
// count. Exported so tests can drive the sweep deterministically instead of
// waiting on wall-clock time.
func (s *Service) Sweep() int {
	evicted := s.tracker.SweepStale(s.staleAfter)
	for _, sess := range evicted {
		s.router.publish(userLeftBoardMsg{
			Type:        MessageTypeUserLeftBoard,
			BoardID:     sess.BoardID,
			UserID:      sess.UserID,
			OnlineUsers: s.tracker.MembersOf(sess.BoardID),
		}, sess.BoardID, "")
	}
	return len(evicted)
}

// AddUserToBoard records presence on behalf of the CRUD collaborator and
// returns the board's membership.
func (s *Service) AddUserToBoard(userID, boardID string, info model.UserInfo) []model.OnlineUser {
	return s.tracker.Join(userID, boardID, info)
}

// RemoveUserFromBoard removes the user's presence on behalf of the CRUD
// collaborator and returns the board's remaining membership.
func (s *Service) RemoveUserFromBoard(userID, boardID string) []model.OnlineUser {
	return s.tracker.Leave(userID, boardID)
}

// OnlineUsersForBoard returns the board's current membership snapshot.
func (s *Service) OnlineUsersForBoard(boardID string) []model.OnlineUser {
	return s.tracker.MembersOf(boardID)
}

// AllOnlineUsers returns every online user across all boards.
func (s *Service) AllOnlineUsers() []model.OnlineUser {
	return s.tracker.AllOnlineUsers()
}

// Broadcast fires a collaborator event at connected clients, scoped to the
// event's board when one is set. Fire-and-forget: delivery failures are
// invisible to the caller.
func (s *Service) Broadcast(event Event) {
	s.router.Publish(event)
}

// Close stops the sweep loop and closes every connection. Safe to call more
// than once.
func (s *Service) Close() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.registry.Close()
	log.Printf("Relay service closed")
}
