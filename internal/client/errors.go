package client

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when the server no longer knows the session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidState is returned when the session is not in the state an operation needs.
	ErrInvalidState = errors.New("invalid session state")
	// ErrConflict is returned while another operation holds the session.
	ErrConflict = errors.New("session busy")
	// ErrSessionReplaced means the operation ran against a fresh session that
	// lacks earlier steps. The resume has to be uploaded again.
	ErrSessionReplaced = errors.New("session was replaced, upload the resume again")
)

// APIError is a non-2xx response decoded from the standard error body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("api error: status %d (%s): %s", e.Status, e.Code, e.Message)
}

// Is maps stable error codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrSessionNotFound:
		return e.Code == "session_not_found"
	case ErrInvalidState:
		return e.Code == "invalid_state"
	case ErrConflict:
		return e.Code == "conflict"
	}
	return false
}
