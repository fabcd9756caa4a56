package ws

import (
	"encoding/json"
	"log"
)

// Event is a broadcast request, either built by the protocol handler or
// injected by the CRUD collaborator after one of its own writes. BoardID
// scopes delivery to connections attached to that board; empty means every
// live connection. Exclude suppresses delivery to one connection, typically
// the sender. Events are transient: constructed, dispatched, discarded.
type Event struct {
	Type    MessageType
	BoardID string
	Payload map[string]interface{}
	Exclude ConnectionID
}

// encode flattens type, boardId and the payload fields into a single JSON
// object, matching the {type, ...fields} wire shape.
func (e Event) encode() ([]byte, error) {
	obj := make(map[string]interface{}, len(e.Payload)+2)
	for k, v := range e.Payload {
		obj[k] = v
	}
	obj["type"] = e.Type
	if e.BoardID != "" {
		obj["boardId"] = e.BoardID
	}
	return json.Marshal(obj)
}

// Router fans events out to registered connections.
type Router struct {
	registry *Registry
}

// NewRouter creates a Router delivering through the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Publish encodes the event once and delivers the identical bytes to every
// connection in scope. Delivery is best effort: a recipient that has gone away
// is skipped and nothing surfaces to the publisher.
func (rt *Router) Publish(event Event) {
	data, err := event.encode()
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event.Type, err)
		return
	}
	rt.PublishRaw(data, event.BoardID, event.Exclude)
}

// PublishRaw delivers pre-encoded bytes. It is the path for verbatim
// pass-through of client frames and the compatibility fallback.
func (rt *Router) PublishRaw(data []byte, boardID string, exclude ConnectionID) {
	rt.registry.ForEach(func(c *Client) bool {
		if exclude != "" && c.ID() == exclude {
			return false
		}
		if boardID == "" {
			return true
		}
		_, attached, ok := c.session()
		return ok && attached == boardID
	}, func(c *Client) {
		c.Send(data)
	})
}

// publish marshals a typed outbound message and delivers it with the given
// scope and exclusion.
func (rt *Router) publish(v interface{}, boardID string, exclude ConnectionID) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal outbound message: %v", err)
		return
	}
	rt.PublishRaw(data, boardID, exclude)
}
