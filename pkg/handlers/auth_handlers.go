package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kunalt17/echochat/pkg/auth"
	"github.com/kunalt17/echochat/pkg/models"
	"github.com/kunalt17/echochat/pkg/store"
)

type AuthHandler struct {
	users  store.UserStore
	logger *slog.Logger
}

func NewAuthHandler(users store.UserStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Signup: invalid request body", "error", err)
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" || req.Email == "" {
		writeErrorMsg(w, http.StatusBadRequest, "username and email are required")
		return
	}
	if len(req.Password) < 6 {
		writeErrorMsg(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	if _, err := h.users.GetUserByUsername(req.Username); err == nil {
		h.logger.Warn("Signup: username taken", "username", req.Username)
		writeErrorMsg(w, http.StatusBadRequest, "username already taken")
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		h.logger.Error("Signup: failed to check username", "error", err)
		writeError(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("Signup: failed to hash password", "error", err)
		writeError(w, err)
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
	}
	if err := h.users.CreateUser(user); err != nil {
		h.logger.Error("Signup: failed to create user", "error", err, "username", req.Username)
		writeError(w, err)
		return
	}

	token, expiresAt, err := auth.GenerateJWT(user.ID)
	if err != nil {
		h.logger.Error("Signup: failed to generate token", "error", err, "user_id", user.ID)
		writeError(w, err)
		return
	}

	h.logger.Info("Signup: successful", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, models.AuthResponse{
		Token:     token,
		User:      *user,
		ExpiresAt: expiresAt,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Login: invalid request body", "error", err)
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.GetUserByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		// Same response for unknown user and bad password.
		h.logger.Warn("Login: user not found", "username", req.Username)
		writeErrorMsg(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.logger.Warn("Login: bad password", "user_id", user.ID)
		writeErrorMsg(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := auth.GenerateJWT(user.ID)
	if err != nil {
		h.logger.Error("Login: failed to generate token", "error", err, "user_id", user.ID)
		writeError(w, err)
		return
	}

	h.logger.Info("Login: successful", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusOK, models.AuthResponse{
		Token:     token,
		User:      *user,
		ExpiresAt: expiresAt,
	})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	if userID == "" {
		writeErrorMsg(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.users.GetUserByID(userID)
	if err != nil {
		h.logger.Error("Verify: failed to get user", "error", err, "user_id", userID)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
