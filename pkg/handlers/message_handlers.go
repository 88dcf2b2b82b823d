package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kunalt17/echochat/pkg/auth"
	"github.com/kunalt17/echochat/pkg/models"
	"github.com/kunalt17/echochat/pkg/store"
)

type MessageHandler struct {
	messages store.MessageStore
	logger   *slog.Logger
}

func NewMessageHandler(messages store.MessageStore, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

// Send persists a direct message. The REST write is the single authority
// for message existence; the sender's client only announces the message in
// real time after this returns 201.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReceiverID == "" {
		writeErrorMsg(w, http.StatusBadRequest, "receiver_id is required")
		return
	}

	message, err := h.messages.CreateMessage(userID, req.ReceiverID, req.Text, req.ImageURL)
	if err != nil {
		h.logger.Warn("Send: failed", "error", err, "sender_id", userID, "receiver_id", req.ReceiverID)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, message)
}

// History returns one page of the conversation with {userId}, oldest-first.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	otherID := mux.Vars(r)["userId"]

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	limit := store.DefaultPageLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	result, err := h.messages.ListBetween(userID, otherID, page, limit)
	if err != nil {
		h.logger.Error("History: failed", "error", err, "user_id", userID, "other_id", otherID)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *MessageHandler) Pinned(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	otherID := mux.Vars(r)["userId"]

	messages, err := h.messages.ListPinned(userID, otherID)
	if err != nil {
		h.logger.Error("Pinned: failed", "error", err, "user_id", userID, "other_id", otherID)
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	users, err := h.messages.ListConversations(userID)
	if err != nil {
		h.logger.Error("Conversations: failed", "error", err, "user_id", userID)
		writeError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	messageID := mux.Vars(r)["messageId"]

	var req models.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messages.EditMessage(messageID, userID, req.Text)
	if err != nil {
		h.logger.Warn("Edit: failed", "error", err, "message_id", messageID, "user_id", userID)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, message)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	messageID := mux.Vars(r)["messageId"]

	if err := h.messages.DeleteMessage(messageID, userID); err != nil {
		h.logger.Warn("Delete: failed", "error", err, "message_id", messageID, "user_id", userID)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) Pin(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	messageID := mux.Vars(r)["messageId"]

	message, err := h.messages.TogglePin(messageID, userID)
	if err != nil {
		h.logger.Warn("Pin: failed", "error", err, "message_id", messageID, "user_id", userID)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, message)
}

func (h *MessageHandler) Read(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	messageID := mux.Vars(r)["messageId"]

	message, err := h.messages.MarkRead(messageID, userID)
	if err != nil {
		h.logger.Warn("Read: failed", "error", err, "message_id", messageID, "user_id", userID)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, message)
}
