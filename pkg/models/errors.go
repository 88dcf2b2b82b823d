package models

import "errors"

// Error taxonomy shared by the store, the handlers and the hub. Handlers map
// these to HTTP statuses; the realtime router maps them to message:error
// events on the originating connection.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)
