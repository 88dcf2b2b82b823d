// Package client is a Go client for the echochat server: a thin REST
// wrapper plus a reconnecting WebSocket event loop, and the conversation
// reconciliation logic that keeps a local thread consistent under duplicate
// and out-of-order delivery.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kunalt17/echochat/pkg/models"
)

const (
	reconnectMinDelay = time.Second
	reconnectMaxDelay = 30 * time.Second
)

type EventHandler func(payload json.RawMessage)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	token string
	user  *models.User

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]EventHandler

	// OnReconnect fires after a dropped connection is re-established; the
	// application should refetch history for its active conversation, since
	// events between drop and redial are gone for good.
	OnReconnect func()
}

func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
		handlers: make(map[string]EventHandler),
	}
}

func (c *Client) User() *models.User { return c.user }
func (c *Client) Token() string      { return c.token }

// On registers a handler for a server event. Must be called before Connect.
func (c *Client) On(event string, fn EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = fn
}

func (c *Client) Signup(username, email, password, fullName string) error {
	var resp models.AuthResponse
	err := c.post("/api/auth/signup", models.SignupRequest{
		Username: username,
		Email:    email,
		Password: password,
		FullName: fullName,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	c.user = &resp.User
	return nil
}

func (c *Client) Login(username, password string) error {
	var resp models.AuthResponse
	err := c.post("/api/auth/login", models.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	c.user = &resp.User
	return nil
}

// SendMessage persists the message over REST, then announces it on the
// realtime channel. The REST response is the authoritative record; the
// realtime emission is a best-effort freshness hint for the peer.
func (c *Client) SendMessage(receiverID, text string, imageURL *string) (*models.Message, error) {
	var msg models.Message
	err := c.post("/api/messages/send", models.SendMessageRequest{
		ReceiverID: receiverID,
		Text:       text,
		ImageURL:   imageURL,
	}, &msg)
	if err != nil {
		return nil, err
	}

	if err := c.Emit(models.EventMessageSend, models.SendPayload{
		MessageID:  msg.ID,
		ReceiverID: receiverID,
		Text:       msg.Text,
		ImageURL:   msg.ImageURL,
	}); err != nil {
		// Not fatal: the peer will see the message on its next history
		// fetch.
		c.logger.Warn("Realtime announce failed", "message_id", msg.ID, "error", err)
	}

	return &msg, nil
}

func (c *Client) History(otherID string, page, limit int) (*models.MessagePage, error) {
	var result models.MessagePage
	path := fmt.Sprintf("/api/messages/%s?page=%d&limit=%d", url.PathEscape(otherID), page, limit)
	if err := c.get(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Conversations() ([]models.User, error) {
	var users []models.User
	if err := c.get("/api/messages/conversations", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Connect dials the realtime endpoint and runs the event loop until ctx is
// cancelled, redialing with exponential backoff after drops.
func (c *Client) Connect(ctx context.Context) error {
	if c.token == "" {
		return fmt.Errorf("%w: login before connecting", models.ErrUnauthorized)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.setConn(conn)

	go c.readLoop(ctx)
	return nil
}

// Emit sends one event frame on the realtime connection.
func (c *Client) Emit(event string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return conn.WriteJSON(models.WsEvent{Event: event, Payload: raw})
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}
	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) readLoop(ctx context.Context) {
	delay := reconnectMinDelay
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		for conn != nil {
			var event models.WsEvent
			if err := conn.ReadJSON(&event); err != nil {
				c.logger.Warn("Realtime connection lost", "error", err)
				conn.Close()
				break
			}
			delay = reconnectMinDelay
			c.dispatch(event)
		}

		// Reconnect with backoff.
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}

		newConn, err := c.dial(ctx)
		if err != nil {
			c.logger.Warn("Reconnect failed", "error", err, "retry_in", delay)
			c.setConn(nil)
			continue
		}
		c.setConn(newConn)
		c.logger.Info("Realtime connection re-established")
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
	}
}

func (c *Client) dispatch(event models.WsEvent) {
	c.mu.Lock()
	fn := c.handlers[event.Event]
	c.mu.Unlock()
	if fn != nil {
		fn(event.Payload)
	}
}

// REST helpers

func (c *Client) post(path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
