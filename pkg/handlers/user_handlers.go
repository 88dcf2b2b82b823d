package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kunalt17/echochat/pkg/auth"
	"github.com/kunalt17/echochat/pkg/hub"
	"github.com/kunalt17/echochat/pkg/models"
	"github.com/kunalt17/echochat/pkg/store"
)

type UserHandler struct {
	users  store.UserStore
	hub    *hub.Hub
	logger *slog.Logger
}

func NewUserHandler(users store.UserStore, h *hub.Hub, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, hub: h, logger: logger}
}

// ListUsers returns the directory for the sidebar, everyone but the caller,
// with the live presence flag overlaid from the hub.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	users, err := h.users.ListUsers(userID)
	if err != nil {
		h.logger.Error("ListUsers: failed", "error", err, "user_id", userID)
		writeError(w, err)
		return
	}

	// The persisted flag is a cache; presence in the hub is authoritative
	// while the process lives.
	for i := range users {
		users[i].IsOnline = h.hub.IsOnline(users[i].ID)
	}

	writeJSON(w, http.StatusOK, users)
}

// OnlineUsers returns the identity strings currently online.
func (h *UserHandler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.OnlineUsersPayload{
		UserIDs: h.hub.OnlineUsers(),
	})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var req models.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FullName == nil && req.AvatarURL == nil {
		writeErrorMsg(w, http.StatusBadRequest, "nothing to update")
		return
	}

	user, err := h.users.UpdateProfile(userID, &req)
	if err != nil {
		h.logger.Error("UpdateMe: failed", "error", err, "user_id", userID)
		writeError(w, err)
		return
	}

	h.logger.Info("UpdateMe: profile updated", "user_id", userID)
	writeJSON(w, http.StatusOK, user)
}
