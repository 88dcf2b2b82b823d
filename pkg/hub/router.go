package hub

import (
	"encoding/json"
	"strings"

	"github.com/kunalt17/echochat/pkg/models"
)

// route consumes one inbound frame from a connection. The router is purely
// a notification bus: persistence already happened on the REST path before
// the client emits its event here. A malformed frame produces a
// message:error on the originating connection only; the connection stays
// open and other in-flight events are unaffected.
func (h *Hub) route(c *Client, raw []byte) {
	var event models.WsEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.sendError(c, "", "malformed event envelope")
		return
	}

	switch event.Event {
	case models.EventMessageSend:
		h.routeMessageSend(c, event)
	case models.EventTypingStart:
		h.routeTypingStart(c, event)
	case models.EventTypingStop:
		h.routeTypingStop(c, event)
	case models.EventMessageRead:
		h.routeMessageRead(c, event)
	case models.EventMessageEdit:
		h.routeMessageEdit(c, event)
	case models.EventMessageDel:
		h.routeMessageDelete(c, event)
	case models.EventMessagePin:
		h.routeMessagePin(c, event)
	default:
		h.sendError(c, event.Event, "unknown event")
	}
}

func (h *Hub) routeMessageSend(c *Client, event models.WsEvent) {
	var p models.SendPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		h.sendError(c, event.Event, "malformed payload")
		return
	}
	if p.MessageID == "" || p.ReceiverID == "" {
		h.sendError(c, event.Event, "message_id and receiver_id are required")
		return
	}
	hasImage := p.ImageURL != nil && *p.ImageURL != ""
	if strings.TrimSpace(p.Text) == "" && !hasImage {
		h.sendError(c, event.Event, "message requires text or an image")
		return
	}

	delivery := models.DeliveryPayload{
		SenderID: c.UserID,
		Message: models.Message{
			ID:         p.MessageID,
			SenderID:   c.UserID,
			ReceiverID: p.ReceiverID,
			Text:       strings.TrimSpace(p.Text),
			ImageURL:   p.ImageURL,
		},
	}

	// Sending implicitly ends any typing lease toward the receiver.
	h.typing.Stop(c.UserID, p.ReceiverID)

	// Feedback copy to every connection of the sender, delivery copy to
	// every connection of the receiver; zero receiver connections means the
	// durable copy is all there is.
	h.SendToUser(c.UserID, models.EventMessageSent, delivery)
	delivered := h.SendToUser(p.ReceiverID, models.EventMessageReceived, delivery)

	h.logger.Debug("Message routed",
		"message_id", p.MessageID, "sender_id", c.UserID,
		"receiver_id", p.ReceiverID, "delivered_connections", delivered)
}

func (h *Hub) routeTypingStart(c *Client, event models.WsEvent) {
	p, ok := h.typingPayload(c, event)
	if !ok {
		return
	}

	h.typing.Start(c.UserID, p.ReceiverID, c.Username)
	h.SendToUser(p.ReceiverID, models.EventTypingStart, p)
}

func (h *Hub) routeTypingStop(c *Client, event models.WsEvent) {
	p, ok := h.typingPayload(c, event)
	if !ok {
		return
	}

	if h.typing.Stop(c.UserID, p.ReceiverID) {
		h.SendToUser(p.ReceiverID, models.EventTypingStop, p)
	}
}

// expireTyping is the lease-expiry callback: the sender went silent without
// an explicit stop.
func (h *Hub) expireTyping(senderID, receiverID, username string) {
	h.logger.Debug("Typing lease expired", "sender_id", senderID, "receiver_id", receiverID)
	h.SendToUser(receiverID, models.EventTypingStop, models.TypingPayload{
		ReceiverID: receiverID,
		SenderID:   senderID,
		Username:   username,
	})
}

func (h *Hub) typingPayload(c *Client, event models.WsEvent) (models.TypingPayload, bool) {
	var p models.TypingPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		h.sendError(c, event.Event, "malformed payload")
		return p, false
	}
	if p.ReceiverID == "" {
		h.sendError(c, event.Event, "receiver_id is required")
		return p, false
	}
	p.SenderID = c.UserID
	p.Username = c.Username
	return p, true
}

func (h *Hub) routeMessageRead(c *Client, event models.WsEvent) {
	var p models.ReadPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		h.sendError(c, event.Event, "malformed payload")
		return
	}
	if p.MessageID == "" || p.SenderID == "" {
		h.sendError(c, event.Event, "message_id and sender_id are required")
		return
	}

	p.ReaderID = c.UserID
	h.SendToUser(p.SenderID, models.EventMessageRead, p)
}

func (h *Hub) routeMessageEdit(c *Client, event models.WsEvent) {
	var p models.EditPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		h.sendError(c, event.Event, "malformed payload")
		return
	}
	if p.MessageID == "" || p.ReceiverID == "" || strings.TrimSpace(p.Text) == "" {
		h.sendError(c, event.Event, "message_id, receiver_id and text are required")
		return
	}

	p.SenderID = c.UserID
	h.SendToUser(p.ReceiverID, models.EventMessageEdited, p)
}

func (h *Hub) routeMessageDelete(c *Client, event models.WsEvent) {
	var p models.DeletePayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		h.sendError(c, event.Event, "malformed payload")
		return
	}
	if p.MessageID == "" || p.ReceiverID == "" {
		h.sendError(c, event.Event, "message_id and receiver_id are required")
		return
	}

	p.SenderID = c.UserID
	h.SendToUser(p.ReceiverID, models.EventMessageDeleted, p)
}

func (h *Hub) routeMessagePin(c *Client, event models.WsEvent) {
	var p models.PinPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		h.sendError(c, event.Event, "malformed payload")
		return
	}
	if p.MessageID == "" || p.ReceiverID == "" {
		h.sendError(c, event.Event, "message_id and receiver_id are required")
		return
	}

	p.SenderID = c.UserID
	h.SendToUser(p.ReceiverID, models.EventMessagePinned, p)
}

func (h *Hub) sendError(c *Client, event, reason string) {
	h.logger.Debug("Rejecting event", "user_id", c.UserID, "event", event, "reason", reason)
	c.enqueue(marshalEvent(models.EventError, models.ErrorPayload{
		Event:  event,
		Reason: reason,
	}))
}
