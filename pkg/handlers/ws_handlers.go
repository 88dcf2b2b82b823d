package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/kunalt17/echochat/pkg/auth"
	"github.com/kunalt17/echochat/pkg/hub"
	"github.com/kunalt17/echochat/pkg/store"
)

// HandleWS authenticates the handshake and admits the connection. The
// transport is long-lived, so the bearer token arrives as a query parameter
// rather than a header. A connection refused here was never registered:
// no partial presence state can leak.
func HandleWS(h *hub.Hub, users store.UserStore, logger *slog.Logger) http.HandlerFunc {
	cfg := h.Config()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			// CORS policy is enforced at the router; the upgrade itself
			// accepts any origin.
			return true
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeErrorMsg(w, http.StatusUnauthorized, "token required")
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			logger.Warn("WebSocket auth failed", "error", err)
			writeErrorMsg(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		// The embedded identity must still resolve to a live record.
		user, err := users.GetUserByID(claims.UserID)
		if err != nil {
			logger.Warn("WebSocket auth: identity not found", "user_id", claims.UserID)
			writeErrorMsg(w, http.StatusUnauthorized, "unknown identity")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error", "error", err)
			return
		}

		client := hub.NewClient(h, user.ID, user.Username, user.AvatarURL, conn)
		h.Register <- client

		go client.WritePump()
		go client.ReadPump()

		logger.Info("WebSocket connection established",
			"user_id", user.ID, "conn_id", client.ConnID)
	}
}
