package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID int64) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) (Event, bool) {
	t.Helper()
	select {
	case data := <-c.send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return ev, true
	case <-time.After(50 * time.Millisecond):
		return Event{}, false
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c1) // double unregister must not panic
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}
	hub.Unregister(c2)
}

func TestBroadcastReachesEveryone(t *testing.T) {
	hub := NewHub(testLogger())
	anon := mockClient(hub, 0)
	user := mockClient(hub, 5)
	hub.Register(anon)
	hub.Register(user)

	n := 3
	hub.Broadcast(Event{Type: ListingUpdated, ListingID: 42, SubscribedUsers: &n})

	for _, c := range []*Client{anon, user} {
		ev, ok := receive(t, c)
		if !ok {
			t.Fatal("timeout waiting for event")
		}
		if ev.Type != ListingUpdated || ev.ListingID != 42 {
			t.Errorf("event = %+v", ev)
		}
		if ev.SubscribedUsers == nil || *ev.SubscribedUsers != 3 {
			t.Errorf("subscribed_users = %v, want 3", ev.SubscribedUsers)
		}
	}
}

func TestNotifyTargetsUsers(t *testing.T) {
	hub := NewHub(testLogger())
	owner := mockClient(hub, 1)
	renter := mockClient(hub, 2)
	stranger := mockClient(hub, 3)
	anon := mockClient(hub, 0)
	for _, c := range []*Client{owner, renter, stranger, anon} {
		hub.Register(c)
	}

	hub.Notify(Event{Type: RentalCreated, RentalID: 9}, 1, 2, 0)

	for _, c := range []*Client{owner, renter} {
		if _, ok := receive(t, c); !ok {
			t.Errorf("user %d did not receive event", c.userID)
		}
	}
	for _, c := range []*Client{stranger, anon} {
		if _, ok := receive(t, c); ok {
			t.Errorf("user %d should not receive event", c.userID)
		}
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(testLogger())
	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.Broadcast(Event{Type: ListingUpdated, ListingID: int64(i)})
	}

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(testLogger())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c := mockClient(hub, id)
			hub.Register(c)
			hub.Broadcast(Event{Type: ListingUpdated})
			hub.Notify(Event{Type: RentalCreated}, id)
			hub.Unregister(c)
		}(int64(i))
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocketDelivers(t *testing.T) {
	hub := NewHub(testLogger())
	srv := httptest.NewServer(HandleWebSocket(hub, nil, testLogger()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), &ws.DialOptions{HTTPClient: http.DefaultClient})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	hub.Broadcast(Event{Type: ListingUpdated, ListingID: 7})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != ListingUpdated || ev.ListingID != 7 {
		t.Errorf("event = %+v", ev)
	}
}
