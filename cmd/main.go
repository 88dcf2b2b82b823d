package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kunalt17/echochat/config"
	"github.com/kunalt17/echochat/pkg/auth"
	"github.com/kunalt17/echochat/pkg/hub"
	"github.com/kunalt17/echochat/pkg/routes"
	"github.com/kunalt17/echochat/pkg/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	logger.Info("Starting echochat server", "port", cfg.Server.Port, "env", cfg.Server.Env)

	// 1. Storage
	storage, err := store.NewStore(ctx, cfg.Database.URL, cfg.Redis.URL, logger)
	if err != nil {
		logger.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	storage.DB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	storage.DB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	storage.DB.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	if err := storage.InitSchema(); err != nil {
		logger.Error("Failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// 2. Authentication
	auth.InitJWT(cfg.JWT.Secret, cfg.JWT.Expiration)

	// 3. WebSocket hub
	wsHub := hub.NewHub(storage, hub.Config{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		WriteWait:       cfg.WebSocket.WriteWait,
		PongWait:        cfg.WebSocket.PongWait,
		PingPeriod:      cfg.WebSocket.PingPeriod,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
		TypingLease:     cfg.WebSocket.TypingLease,
	}, logger)
	go wsHub.Run()

	// 4. Router
	router := routes.NewRouter(wsHub, routes.Stores{
		Users:    storage,
		Messages: storage,
	}, cfg.CORS.AllowedOrigins, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server ready to accept connections", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Drain on SIGINT/SIGTERM: close live websockets, then the listener.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	wsHub.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
