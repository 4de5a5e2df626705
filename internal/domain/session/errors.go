package session

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is closed")
	ErrInvalidStatus   = errors.New("invalid session status")
	ErrInvalidUser     = errors.New("session requires a user")
)
