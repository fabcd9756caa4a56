package ws

import (
	"encoding/json"
	"testing"
	"time"
)

// newTestClient builds a registered client without a live transport, in the
// style of the mock clients used by the pump-less hub tests.
func newTestClient(r *Registry) *Client {
	client := NewClient(nil)
	r.Register(client)
	return client
}

func joinTestClient(r *Registry, userID, boardID string) *Client {
	client := newTestClient(r)
	client.attach(userID, boardID)
	return client
}

func receiveWithTimeout(t *testing.T, client *Client, timeout time.Duration) []byte {
	t.Helper()
	select {
	case data := <-client.SendChan():
		return data
	case <-time.After(timeout):
		return nil
	}
}

func expectNoMessage(t *testing.T, client *Client, timeout time.Duration) {
	t.Helper()
	select {
	case data := <-client.SendChan():
		t.Errorf("unexpected message delivered: %s", data)
	case <-time.After(timeout):
	}
}

func decodeFrame(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var frame map[string]interface{}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("invalid JSON frame %q: %v", data, err)
	}
	return frame
}

func TestScopedBroadcastExcludesSender(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry)

	sender := joinTestClient(registry, "u1", "b1")
	peer1 := joinTestClient(registry, "u2", "b1")
	peer2 := joinTestClient(registry, "u3", "b1")
	other := joinTestClient(registry, "u4", "b2")

	payload := []byte(`{"type":"USER_ACTIVITY","boardId":"b1"}`)
	router.PublishRaw(payload, "b1", sender.ID())

	for i, c := range []*Client{peer1, peer2} {
		got := receiveWithTimeout(t, c, 100*time.Millisecond)
		if string(got) != string(payload) {
			t.Errorf("peer %d received %q, want %q", i, got, payload)
		}
	}
	expectNoMessage(t, sender, 50*time.Millisecond)
	expectNoMessage(t, other, 50*time.Millisecond)
}

func TestScopedBroadcastSkipsUnattached(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry)

	attached := joinTestClient(registry, "u1", "b1")
	unattached := newTestClient(registry)

	router.PublishRaw([]byte(`{"type":"CARD_UPDATE","boardId":"b1"}`), "b1", "")

	if got := receiveWithTimeout(t, attached, 100*time.Millisecond); got == nil {
		t.Error("attached client did not receive scoped broadcast")
	}
	expectNoMessage(t, unattached, 50*time.Millisecond)
}

func TestGlobalBroadcastReachesEveryConnection(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry)

	clients := []*Client{
		joinTestClient(registry, "u1", "b1"),
		joinTestClient(registry, "u2", "b2"),
		newTestClient(registry),
	}

	payload := []byte(`{"type":"BOARD_CREATED","board":{"id":"b9"}}`)
	router.PublishRaw(payload, "", "")

	for i, c := range clients {
		got := receiveWithTimeout(t, c, 100*time.Millisecond)
		if string(got) != string(payload) {
			t.Errorf("client %d received %q, want %q", i, got, payload)
		}
	}
}

func TestPublishEncodesOnce(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry)

	c1 := joinTestClient(registry, "u1", "b1")
	c2 := joinTestClient(registry, "u2", "b1")

	router.Publish(Event{
		Type:    "CARD_CREATED",
		BoardID: "b1",
		Payload: map[string]interface{}{"card": map[string]interface{}{"id": "c42", "title": "Write tests"}},
	})

	got1 := receiveWithTimeout(t, c1, 100*time.Millisecond)
	got2 := receiveWithTimeout(t, c2, 100*time.Millisecond)

	if string(got1) != string(got2) {
		t.Errorf("recipients saw different encodings: %q vs %q", got1, got2)
	}

	frame := decodeFrame(t, got1)
	if frame["type"] != "CARD_CREATED" || frame["boardId"] != "b1" {
		t.Errorf("event fields missing from frame: %v", frame)
	}
	if _, ok := frame["card"]; !ok {
		t.Errorf("payload fields were not flattened into the frame: %v", frame)
	}
}

func TestDeliveryIsolation(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry)

	c1 := joinTestClient(registry, "u1", "b1")
	dead := joinTestClient(registry, "u2", "b1")
	c3 := joinTestClient(registry, "u3", "b1")

	// A connection that died mid-iteration must not abort the fan-out.
	dead.Close()

	router.PublishRaw([]byte(`{"type":"COLUMN_UPDATE","boardId":"b1"}`), "b1", "")

	if got := receiveWithTimeout(t, c1, 100*time.Millisecond); got == nil {
		t.Error("c1 did not receive broadcast")
	}
	if got := receiveWithTimeout(t, c3, 100*time.Millisecond); got == nil {
		t.Error("c3 did not receive broadcast")
	}
}

func TestRegistryForEachVisitsOnce(t *testing.T) {
	registry := NewRegistry()

	joinTestClient(registry, "u1", "b1")
	joinTestClient(registry, "u2", "b1")

	visits := make(map[ConnectionID]int)
	registry.ForEach(nil, func(c *Client) {
		visits[c.ID()]++
	})

	if len(visits) != 2 {
		t.Fatalf("expected 2 clients visited, got %d", len(visits))
	}
	for id, n := range visits {
		if n != 1 {
			t.Errorf("client %s visited %d times", id, n)
		}
	}
}

func TestRegistryUnregisterClosesClient(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient(registry)

	registry.Unregister(client.ID())

	if !client.IsClosed() {
		t.Error("unregistered client was not closed")
	}
	if registry.Count() != 0 {
		t.Errorf("expected empty registry, got %d", registry.Count())
	}

	// Unregistering again is harmless.
	registry.Unregister(client.ID())
}
