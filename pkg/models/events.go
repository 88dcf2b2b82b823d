package models

import (
	"encoding/json"
)

// Event names form a closed catalog; any other name on the wire is rejected
// with EventError back to the sender.
const (
	// Client -> server
	EventMessageSend = "message:send"
	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"
	EventMessageRead = "message:read"
	EventMessageEdit = "message:edit"
	EventMessageDel  = "message:delete"
	EventMessagePin  = "message:pin"

	// Server -> client
	EventMessageSent     = "message:sent"
	EventMessageReceived = "message:received"
	EventMessageEdited   = "message:edited"
	EventMessageDeleted  = "message:deleted"
	EventMessagePinned   = "message:pinned"
	EventError           = "message:error"
	EventUsersOnline     = "users:online"
	EventUserOnline      = "user:online"
	EventUserOffline     = "user:offline"
)

// WsEvent is the envelope for every frame in both directions.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SendPayload struct {
	MessageID  string  `json:"message_id"`
	ReceiverID string  `json:"receiver_id"`
	Text       string  `json:"text,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
}

type TypingPayload struct {
	ReceiverID string `json:"receiver_id"`
	// Filled in by the server before fan-out.
	SenderID string `json:"sender_id,omitempty"`
	Username string `json:"username,omitempty"`
}

type ReadPayload struct {
	MessageID string `json:"message_id"`
	// Identity of the original sender, who receives the receipt.
	SenderID string `json:"sender_id"`
	ReaderID string `json:"reader_id,omitempty"`
}

type EditPayload struct {
	MessageID  string `json:"message_id"`
	ReceiverID string `json:"receiver_id"`
	Text       string `json:"text"`
	SenderID   string `json:"sender_id,omitempty"`
}

type DeletePayload struct {
	MessageID  string `json:"message_id"`
	ReceiverID string `json:"receiver_id"`
	SenderID   string `json:"sender_id,omitempty"`
}

type PinPayload struct {
	MessageID  string `json:"message_id"`
	ReceiverID string `json:"receiver_id"`
	IsPinned   bool   `json:"is_pinned"`
	SenderID   string `json:"sender_id,omitempty"`
}

// DeliveryPayload is the read-only message projection fanned out on
// message:sent / message:received.
type DeliveryPayload struct {
	Message  Message `json:"message"`
	SenderID string  `json:"sender_id"`
}

type ErrorPayload struct {
	Event  string `json:"event,omitempty"`
	Reason string `json:"reason"`
}

type PresencePayload struct {
	UserID    string  `json:"user_id"`
	Username  string  `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type OnlineUsersPayload struct {
	UserIDs []string `json:"user_ids"`
}
