package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.JWT.Expiration != 7*24*time.Hour {
		t.Errorf("jwt expiration = %v, want 168h", cfg.JWT.Expiration)
	}
	if cfg.WebSocket.TypingLease != 5*time.Second {
		t.Errorf("typing lease = %v, want 5s", cfg.WebSocket.TypingLease)
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		t.Error("allowed origins must have a default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("WS_TYPING_LEASE", "2s")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := Load()

	if cfg.Server.Port != "9999" {
		t.Errorf("port = %q, want 9999", cfg.Server.Port)
	}
	if cfg.WebSocket.TypingLease != 2*time.Second {
		t.Errorf("typing lease = %v, want 2s", cfg.WebSocket.TypingLease)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("max open conns = %d, want 50", cfg.Database.MaxOpenConns)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[0] != want[0] || cfg.CORS.AllowedOrigins[1] != want[1] {
		t.Errorf("origins = %v, want %v", cfg.CORS.AllowedOrigins, want)
	}
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("WS_TYPING_LEASE", "soonish")

	cfg := Load()

	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("max open conns = %d, want default 25", cfg.Database.MaxOpenConns)
	}
	if cfg.WebSocket.TypingLease != 5*time.Second {
		t.Errorf("typing lease = %v, want default 5s", cfg.WebSocket.TypingLease)
	}
}
