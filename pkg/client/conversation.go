package client

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kunalt17/echochat/pkg/models"
)

const localIDPrefix = "local-"

// Conversation is the client-side ordered view of one direct-message
// thread. It tolerates duplicate delivery, out-of-order arrival and
// reconnect gaps: messages are keyed by server identity, optimistic local
// sends carry a temporary id until the REST response confirms them, and a
// history refetch merges over whatever realtime events were missed.
type Conversation struct {
	mu       sync.Mutex
	peerID   string
	messages []models.Message
	index    map[string]int // message ID -> position in messages
}

func NewConversation(peerID string) *Conversation {
	return &Conversation{
		peerID: peerID,
		index:  make(map[string]int),
	}
}

func (c *Conversation) PeerID() string { return c.peerID }

// AddLocal appends an optimistic, not-yet-confirmed send and returns its
// temporary id. The message renders immediately; ConfirmLocal swaps it for
// the server-confirmed record.
func (c *Conversation) AddLocal(senderID, text string, imageURL *string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	tempID := localIDPrefix + uuid.NewString()
	c.appendLocked(models.Message{
		ID:         tempID,
		SenderID:   senderID,
		ReceiverID: c.peerID,
		Text:       text,
		ImageURL:   imageURL,
		CreatedAt:  time.Now(),
	})
	return tempID
}

// ConfirmLocal replaces the optimistic message with the server-confirmed
// one. If a realtime echo already inserted the confirmed id, the local copy
// is simply dropped.
func (c *Conversation) ConfirmLocal(tempID string, confirmed models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[tempID]; ok {
		c.removeLocked(pos)
	}
	c.upsertLocked(confirmed)
}

// DropLocal removes a failed optimistic send.
func (c *Conversation) DropLocal(tempID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[tempID]; ok {
		c.removeLocked(pos)
	}
}

// Upsert inserts or updates a message by server identity. Returns true when
// the message was new; a duplicate delivery returns false and leaves the
// list unchanged except for refreshed fields.
func (c *Conversation) Upsert(msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsertLocked(msg)
}

// Merge applies a server history page. History is authoritative: fields of
// known messages are overwritten, unknown ones inserted in order.
func (c *Conversation) Merge(history []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, msg := range history {
		c.upsertLocked(msg)
	}
}

func (c *Conversation) ApplyEdit(messageID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[messageID]; ok {
		c.messages[pos].Text = text
		c.messages[pos].IsEdited = true
	}
}

func (c *Conversation) ApplyDelete(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[messageID]; ok {
		c.removeLocked(pos)
	}
}

func (c *Conversation) ApplyPin(messageID string, pinned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[messageID]; ok {
		c.messages[pos].IsPinned = pinned
	}
}

func (c *Conversation) ApplyRead(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[messageID]; ok {
		c.messages[pos].IsRead = true
		c.messages[pos].IsDelivered = true
	}
}

// Messages returns a copy of the ordered thread, oldest-first.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *Conversation) upsertLocked(msg models.Message) bool {
	if pos, ok := c.index[msg.ID]; ok {
		// Duplicate delivery: keep ordering, refresh fields. A zero
		// timestamp (realtime projection) never clobbers a confirmed one.
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = c.messages[pos].CreatedAt
		}
		c.messages[pos] = msg
		return false
	}
	if msg.CreatedAt.IsZero() {
		// Realtime projections carry no server timestamp; approximate with
		// arrival time until history confirms.
		msg.CreatedAt = time.Now()
	}
	c.appendLocked(msg)
	return true
}

func (c *Conversation) appendLocked(msg models.Message) {
	c.messages = append(c.messages, msg)
	sort.SliceStable(c.messages, func(i, j int) bool {
		if !c.messages[i].CreatedAt.Equal(c.messages[j].CreatedAt) {
			return c.messages[i].CreatedAt.Before(c.messages[j].CreatedAt)
		}
		return c.messages[i].ID < c.messages[j].ID
	})
	c.reindexLocked()
}

func (c *Conversation) removeLocked(pos int) {
	c.messages = append(c.messages[:pos], c.messages[pos+1:]...)
	c.reindexLocked()
}

func (c *Conversation) reindexLocked() {
	for k := range c.index {
		delete(c.index, k)
	}
	for i, msg := range c.messages {
		c.index[msg.ID] = i
	}
}

// IsLocalID reports whether the id belongs to an unconfirmed optimistic
// send.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}
