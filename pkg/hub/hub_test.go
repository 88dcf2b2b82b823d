package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kunalt17/echochat/pkg/models"
	"github.com/kunalt17/echochat/pkg/store/memory"
)

func newTestHub(t *testing.T) (*Hub, *memory.Store) {
	t.Helper()

	storage := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHub(storage, Config{TypingLease: 50 * time.Millisecond}, logger)

	for _, name := range []string{"alice", "bob", "carol"} {
		user := &models.User{ID: name, Username: name, Email: name + "@example.com", PasswordHash: "x"}
		if err := storage.CreateUser(user); err != nil {
			t.Fatalf("CreateUser(%s): %v", name, err)
		}
	}
	return h, storage
}

func connect(t *testing.T, h *Hub, userID string) *Client {
	t.Helper()
	c := NewClient(h, userID, userID, nil, nil)
	h.handleRegister(c)
	return c
}

// waitEvent reads frames from the client's send buffer until the wanted
// event arrives.
func waitEvent(t *testing.T, c *Client, want string) models.WsEvent {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				t.Fatalf("send channel closed while waiting for %q", want)
			}
			var event models.WsEvent
			if err := json.Unmarshal(data, &event); err != nil {
				t.Fatalf("malformed frame: %v", err)
			}
			if event.Event == want {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame: %s", data)
	default:
	}
}

func TestNewHubConfigDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := NewHub(memory.NewStore(), Config{}, logger)
	cfg := h.Config()
	if cfg.PongWait != defaultPongWait || cfg.PingPeriod != defaultPingPeriod {
		t.Errorf("zero config must fall back to defaults, got %+v", cfg)
	}
	if cfg.ReadBufferSize != defaultReadBufferSize || cfg.MaxMessageSize != defaultMaxMessageSize {
		t.Errorf("buffer defaults not applied: %+v", cfg)
	}

	custom := Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		WriteWait:       5 * time.Second,
		PongWait:        30 * time.Second,
		PingPeriod:      27 * time.Second,
		MaxMessageSize:  128 * 1024,
		TypingLease:     2 * time.Second,
	}
	if got := NewHub(memory.NewStore(), custom, logger).Config(); got != custom {
		t.Errorf("explicit config altered: got %+v, want %+v", got, custom)
	}
}

func TestRegisterSendsPresenceSnapshot(t *testing.T) {
	h, _ := newTestHub(t)

	alice := connect(t, h, "alice")
	event := waitEvent(t, alice, models.EventUsersOnline)

	var payload models.OnlineUsersPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.UserIDs) != 1 || payload.UserIDs[0] != "alice" {
		t.Errorf("snapshot = %v, want [alice]", payload.UserIDs)
	}
}

func TestPresenceBroadcastOnFirstAndLastConnection(t *testing.T) {
	h, _ := newTestHub(t)

	alice := connect(t, h, "alice")
	waitEvent(t, alice, models.EventUsersOnline)

	bob1 := connect(t, h, "bob")
	waitEvent(t, bob1, models.EventUsersOnline)

	// Alice sees bob come online exactly once.
	event := waitEvent(t, alice, models.EventUserOnline)
	var presence models.PresencePayload
	json.Unmarshal(event.Payload, &presence)
	if presence.UserID != "bob" {
		t.Errorf("user_id = %q, want bob", presence.UserID)
	}

	// Second device: no new online edge.
	bob2 := connect(t, h, "bob")
	waitEvent(t, bob2, models.EventUsersOnline)
	assertNoEvent(t, alice)

	// First device drops: bob still online, no offline broadcast.
	h.handleUnregister(bob1)
	assertNoEvent(t, alice)

	// Last device drops: exactly one offline event.
	h.handleUnregister(bob2)
	event = waitEvent(t, alice, models.EventUserOffline)
	json.Unmarshal(event.Payload, &presence)
	if presence.UserID != "bob" {
		t.Errorf("user_id = %q, want bob", presence.UserID)
	}
	assertNoEvent(t, alice)
}

func TestSendToUserTargetsEveryConnectionOfIdentityOnly(t *testing.T) {
	h, _ := newTestHub(t)

	alice := connect(t, h, "alice")
	bob1 := connect(t, h, "bob")
	bob2 := connect(t, h, "bob")
	carol := connect(t, h, "carol")

	for _, c := range []*Client{alice, bob1, bob2, carol} {
		waitEvent(t, c, models.EventUsersOnline)
	}
	// Drain presence broadcasts from the staggered connects.
	waitEvent(t, alice, models.EventUserOnline) // bob
	waitEvent(t, alice, models.EventUserOnline) // carol
	waitEvent(t, bob1, models.EventUserOnline)  // carol
	waitEvent(t, bob2, models.EventUserOnline)  // carol

	delivered := h.SendToUser("bob", models.EventMessageReceived, models.DeliveryPayload{
		SenderID: "alice",
		Message:  models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Text: "hi"},
	})
	if delivered != 2 {
		t.Errorf("delivered to %d connections, want 2", delivered)
	}

	for _, c := range []*Client{bob1, bob2} {
		event := waitEvent(t, c, models.EventMessageReceived)
		var d models.DeliveryPayload
		json.Unmarshal(event.Payload, &d)
		if d.Message.ID != "m1" {
			t.Errorf("message id = %q, want m1", d.Message.ID)
		}
	}

	// No connection of any other identity sees the message.
	assertNoEvent(t, alice)
	assertNoEvent(t, carol)
}

func TestSendToOfflineIdentityIsSilentlyDropped(t *testing.T) {
	h, _ := newTestHub(t)

	if delivered := h.SendToUser("carol", models.EventMessageReceived, nil); delivered != 0 {
		t.Errorf("delivered = %d, want 0", delivered)
	}
}

func TestUnregisterWritesCachedPresence(t *testing.T) {
	h, storage := newTestHub(t)

	alice := connect(t, h, "alice")
	waitEvent(t, alice, models.EventUsersOnline)
	h.handleUnregister(alice)

	// The cached flag is written asynchronously.
	deadline := time.Now().Add(time.Second)
	for {
		user, err := storage.GetUserByID("alice")
		if err != nil {
			t.Fatal(err)
		}
		if !user.IsOnline {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cached online flag never flipped back to offline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestShutdownClosesAllConnections(t *testing.T) {
	h, _ := newTestHub(t)

	alice := connect(t, h, "alice")
	bob := connect(t, h, "bob")
	h.Shutdown()

	for _, c := range []*Client{alice, bob} {
		for {
			if _, ok := <-c.Send; !ok {
				break
			}
		}
	}

	if delivered := h.SendToUser("alice", models.EventMessageReceived, nil); delivered != 0 {
		t.Errorf("delivered = %d after shutdown, want 0", delivered)
	}
}
