package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

// newTestServer serves websocket clients whose topic is taken from ?topic=.
// Any client message is answered with "ready" once the client is registered.
func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		client := NewClient(hub, conn, r.URL.Query().Get("topic"))
		if !hub.Join(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go func() {
			client.ReadPump(func(c *Client, _ []byte) { hub.SendTo(c, []byte("ready")) })
			hub.Leave(client)
		}()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, topic string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?topic=" + topic
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := read(t, conn); got != "ready" {
		t.Fatalf("expected ready, got %q", got)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(msg)
}

func TestHub_PublishRoutesByServer(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	srv := newTestServer(t, hub)

	global := dial(t, srv, "")
	followerA := dial(t, srv, "a")
	followerB := dial(t, srv, "b")

	hub.Publish("a", NewServerStatusMessage("a", map[string]int{"total_containers": 2}))

	for name, conn := range map[string]*websocket.Conn{"global": global, "a": followerA} {
		var msg Message
		if err := json.Unmarshal([]byte(read(t, conn)), &msg); err != nil {
			t.Fatalf("%s: decode failed: %v", name, err)
		}
		if msg.Type != TypeServerStatus || msg.ServerID != "a" {
			t.Errorf("%s: unexpected message %+v", name, msg)
		}
	}

	followerB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, msg, err := followerB.ReadMessage(); err == nil {
		t.Errorf("client following b received %s", msg)
	}
}

func TestHub_SendToReachesOnlyThatClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	srv := newTestServer(t, hub)

	// dial's handshake reply went through SendTo; a second client must not
	// see the first one's reply.
	first := dial(t, srv, "a")
	second := dial(t, srv, "a")
	if err := first.WriteMessage(websocket.TextMessage, []byte("again")); err != nil {
		t.Fatal(err)
	}
	if got := read(t, first); got != "ready" {
		t.Errorf("expected ready, got %q", got)
	}

	second.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, msg, err := second.ReadMessage(); err == nil {
		t.Errorf("second client received %s", msg)
	}
}

func TestHub_SendToDuringStop(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, Send: make(chan []byte, 256), ServerID: GlobalTopic}
	if !hub.Join(client) {
		t.Fatal("Join failed on a running hub")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.SendTo(client, []byte("x"))
		}
	}()
	hub.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SendTo blocked after Stop")
	}
	// Send is closed by the hub once it stops.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-client.Send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("client Send was not closed on Stop")
		}
	}
}

func TestHub_PublishAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish("a", []byte("x"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked after Stop")
	}
}

func TestNewErrorMessage(t *testing.T) {
	var msg Message
	if err := json.Unmarshal(NewErrorMessage("boom"), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeError {
		t.Errorf("Type = %q, want %q", msg.Type, TypeError)
	}
}
