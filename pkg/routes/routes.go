package routes

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/kunalt17/echochat/pkg/auth"
	"github.com/kunalt17/echochat/pkg/handlers"
	"github.com/kunalt17/echochat/pkg/hub"
	"github.com/kunalt17/echochat/pkg/store"
)

// Stores bundles the narrow store interfaces the handlers consume.
type Stores struct {
	Users    store.UserStore
	Messages store.MessageStore
}

func NewRouter(h *hub.Hub, stores Stores, allowedOrigins []string, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()

	authHandler := handlers.NewAuthHandler(stores.Users, logger)
	userHandler := handlers.NewUserHandler(stores.Users, h, logger)
	messageHandler := handlers.NewMessageHandler(stores.Messages, logger)

	// Authentication endpoints (no auth required)
	r.HandleFunc("/api/auth/signup", authHandler.Signup).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)

	// WebSocket endpoint; token is carried in the query string
	r.HandleFunc("/ws", handlers.HandleWS(h, stores.Users, logger))

	// Authenticated API
	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware)

	api.HandleFunc("/auth/verify", authHandler.Verify).Methods(http.MethodGet)

	api.HandleFunc("/users", userHandler.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/online", userHandler.OnlineUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/me", userHandler.UpdateMe).Methods(http.MethodPut, http.MethodPatch)

	api.HandleFunc("/messages/send", messageHandler.Send).Methods(http.MethodPost)
	api.HandleFunc("/messages/conversations", messageHandler.Conversations).Methods(http.MethodGet)
	api.HandleFunc("/messages/{userId}/pinned", messageHandler.Pinned).Methods(http.MethodGet)
	api.HandleFunc("/messages/{messageId}/edit", messageHandler.Edit).Methods(http.MethodPut)
	api.HandleFunc("/messages/{messageId}/pin", messageHandler.Pin).Methods(http.MethodPatch)
	api.HandleFunc("/messages/{messageId}/read", messageHandler.Read).Methods(http.MethodPatch)
	api.HandleFunc("/messages/{messageId}", messageHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/messages/{userId}", messageHandler.History).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
