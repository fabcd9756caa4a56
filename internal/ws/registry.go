package ws

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnectionID uniquely identifies a live connection.
type ConnectionID string

// Client is a single WebSocket connection and its optional attached board
// session. The session is written only by the protocol handler driving this
// connection.
type Client struct {
	id   ConnectionID
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	closed  bool
	userID  string
	boardID string
}

// NewClient creates a client for the given transport connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   ConnectionID(uuid.New().String()),
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() ConnectionID {
	return c.id
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the outbound queue for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// attach records the board session carried by this connection.
func (c *Client) attach(userID, boardID string) {
	c.mu.Lock()
	c.userID, c.boardID = userID, boardID
	c.mu.Unlock()
}

// detach clears the attached session and reports what was attached. Only the
// first call after an attach reports ok, so close cleanup runs exactly once.
func (c *Client) detach() (userID, boardID string, ok bool) {
	c.mu.Lock()
	userID, boardID = c.userID, c.boardID
	ok = boardID != ""
	c.userID, c.boardID = "", ""
	c.mu.Unlock()
	return userID, boardID, ok
}

// session returns the attached session, if any.
func (c *Client) session() (userID, boardID string, ok bool) {
	c.mu.Lock()
	userID, boardID = c.userID, c.boardID
	c.mu.Unlock()
	return userID, boardID, boardID != ""
}

// Send queues data for delivery. A client with a full queue is closed rather
// than allowed to stall the fan-out.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.closeLocked()
	}
}

// Close closes the client's outbound queue.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Registry tracks live connections. It owns the Clients registered with it.
type Registry struct {
	mu      sync.RWMutex
	clients map[ConnectionID]*Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[ConnectionID]*Client),
	}
}

// Register adds a client and returns its connection id.
func (r *Registry) Register(c *Client) ConnectionID {
	r.mu.Lock()
	r.clients[c.id] = c
	r.mu.Unlock()
	return c.id
}

// Unregister removes and closes the client for the given id.
func (r *Registry) Unregister(id ConnectionID) {
	r.mu.Lock()
	c, ok := r.clients[id]
	delete(r.clients, id)
	r.mu.Unlock()

	if ok {
		c.Close()
	}
}

// ForEach invokes action on every live client matching pred, each at most
// once. A failed delivery to one client never aborts iteration over the rest,
// and no error surfaces to the caller. A nil pred matches every client.
func (r *Registry) ForEach(pred func(*Client) bool, action func(*Client)) {
	r.mu.RLock()
	matched := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		if pred == nil || pred(c) {
			matched = append(matched, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range matched {
		action(c)
	}
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes every registered connection and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.clients = make(map[ConnectionID]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
