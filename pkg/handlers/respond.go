package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kunalt17/echochat/pkg/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is a transient infrastructure failure and surfaces as 500
// without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, models.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, models.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, err.Error()
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
