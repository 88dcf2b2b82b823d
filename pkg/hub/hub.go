package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/kunalt17/echochat/pkg/models"
	"github.com/kunalt17/echochat/pkg/store"
)

const (
	defaultWriteWait       = 10 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultPingPeriod      = (defaultPongWait * 9) / 10
	defaultMaxMessageSize  = 64 * 1024
	defaultReadBufferSize  = 1024
	defaultWriteBufferSize = 1024
)

// Config carries the transport tunables for the hub and its connections.
// Zero values fall back to the defaults above.
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
	TypingLease     time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = defaultReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = defaultWriteBufferSize
	}
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = defaultPongWait
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = defaultPingPeriod
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	return c
}

// Hub owns the set of live connections, keyed by identity, and the presence
// registry derived from it. Fan-out is best-effort: an identity with zero
// connections silently receives nothing; durable history is the source of
// truth for anything that must survive an offline peer.
type Hub struct {
	Users    store.UserStore
	cfg      Config
	presence *Presence
	typing   *typingTracker
	logger   *slog.Logger

	// Registered clients by userID (multiple devices per user)
	clients map[string]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client

	mu sync.RWMutex
}

func NewHub(users store.UserStore, cfg Config, logger *slog.Logger) *Hub {
	h := &Hub{
		Users:      users,
		cfg:        cfg.withDefaults(),
		presence:   NewPresence(),
		logger:     logger,
		clients:    make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
	h.typing = newTypingTracker(cfg.TypingLease, h.expireTyping)
	return h
}

// Config returns the effective transport settings, defaults applied.
func (h *Hub) Config() Config {
	return h.cfg
}

func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.handleRegister(client)

		case client := <-h.Unregister:
			h.handleUnregister(client)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	h.mu.Unlock()

	becameOnline := h.presence.Connected(client.UserID)

	// Initial presence snapshot for the new connection.
	client.enqueue(marshalEvent(models.EventUsersOnline, models.OnlineUsersPayload{
		UserIDs: h.presence.Snapshot(),
	}))

	if becameOnline {
		h.BroadcastExcept(client, models.EventUserOnline, models.PresencePayload{
			UserID:    client.UserID,
			Username:  client.Username,
			AvatarURL: client.AvatarURL,
		})
		go h.writeCachedPresence(client.UserID, true)
	}

	h.logger.Info("Client registered",
		"user_id", client.UserID, "conn_id", client.ConnID, "became_online", becameOnline)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	removed := false
	if userClients, ok := h.clients[client.UserID]; ok {
		if userClients[client] {
			delete(userClients, client)
			removed = true
		}
		if len(userClients) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}
	client.closeSend()

	if h.presence.Disconnected(client.UserID) {
		// Last connection gone: release any typing leases the user held so
		// peers don't show a stuck indicator.
		for _, receiverID := range h.typing.StopAllFor(client.UserID) {
			h.SendToUser(receiverID, models.EventTypingStop, models.TypingPayload{
				ReceiverID: receiverID,
				SenderID:   client.UserID,
				Username:   client.Username,
			})
		}

		h.BroadcastExcept(client, models.EventUserOffline, models.PresencePayload{
			UserID: client.UserID,
		})
		go h.writeCachedPresence(client.UserID, false)
	}

	h.logger.Info("Client unregistered", "user_id", client.UserID, "conn_id", client.ConnID)
}

// SendToUser delivers an event to every live connection of the identity.
// Returns the number of connections the event was handed to; zero means the
// identity is offline and the event was dropped.
func (h *Hub) SendToUser(userID, event string, payload interface{}) int {
	data := marshalEvent(event, payload)

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range targets {
		if client.enqueue(data) {
			delivered++
		} else {
			h.logger.Warn("Dropping slow client", "user_id", client.UserID, "conn_id", client.ConnID)
		}
	}
	return delivered
}

// BroadcastExcept delivers an event to every connection system-wide except
// the source connection. Used for presence fan-out.
func (h *Hub) BroadcastExcept(source *Client, event string, payload interface{}) {
	data := marshalEvent(event, payload)

	h.mu.RLock()
	var targets []*Client
	for _, userClients := range h.clients {
		for client := range userClients {
			if client != source {
				targets = append(targets, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(data)
	}
}

// OnlineUsers exposes the presence snapshot to the REST layer.
func (h *Hub) OnlineUsers() []string {
	return h.presence.Snapshot()
}

func (h *Hub) IsOnline(userID string) bool {
	return h.presence.IsOnline(userID)
}

// Shutdown force-closes every connection; used at process teardown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	var all []*Client
	for _, userClients := range h.clients {
		for client := range userClients {
			all = append(all, client)
		}
	}
	h.clients = make(map[string]map[*Client]bool)
	h.mu.Unlock()

	for _, client := range all {
		client.closeSend()
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.logger.Info("Hub shut down", "closed_connections", len(all))
}

func (h *Hub) writeCachedPresence(userID string, online bool) {
	if err := h.Users.SetOnline(userID, online); err != nil {
		h.logger.Error("Failed to persist presence flag",
			"error", err, "user_id", userID, "online", online)
	}
}

// Helper functions
func marshalEvent(event string, payload interface{}) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	data, _ := json.Marshal(models.WsEvent{Event: event, Payload: raw})
	return data
}
