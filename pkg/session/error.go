package session

import "errors"

var (
	// ErrNotFound is returned when no session exists for an id.
	ErrNotFound = errors.New("session not found")

	// ErrNoID is returned when a session is stored without an id.
	ErrNoID = errors.New("session has no id")
)
