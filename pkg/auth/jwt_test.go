package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kunalt17/echochat/pkg/models"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	InitJWT("test-secret", time.Hour)

	token, expiresAt, err := GenerateJWT("user-42")
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(expiresAt) < 55*time.Minute {
		t.Errorf("expiry %v too close, want ~1h out", expiresAt)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "user-42" {
		t.Errorf("user_id = %q, want user-42", claims.UserID)
	}
}

func TestValidateJWTFailures(t *testing.T) {
	InitJWT("test-secret", time.Hour)
	token, _, err := GenerateJWT("user-42")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"garbage token", "not.a.jwt"},
		{"tampered token", token[:len(token)-2] + "xx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateJWT(tt.token); !errors.Is(err, models.ErrUnauthorized) {
				t.Errorf("error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	InitJWT("secret-one", time.Hour)
	token, _, err := GenerateJWT("user-42")
	if err != nil {
		t.Fatal(err)
	}

	InitJWT("secret-two", time.Hour)
	if _, err := ValidateJWT(token); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestValidateJWTExpired(t *testing.T) {
	InitJWT("test-secret", time.Millisecond)
	token, _, err := GenerateJWT("user-42")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := ValidateJWT(token); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestMiddleware(t *testing.T) {
	InitJWT("test-secret", time.Hour)
	token, _, err := GenerateJWT("user-42")
	if err != nil {
		t.Fatal(err)
	}

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
	})
	handler := Middleware(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUserID string
	}{
		{"valid bearer token", "Bearer " + token, http.StatusOK, "user-42"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not a bearer scheme", "Basic abc123", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer junk", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = ""
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUserID != tt.wantUserID {
				t.Errorf("user id = %q, want %q", gotUserID, tt.wantUserID)
			}
		})
	}
}
