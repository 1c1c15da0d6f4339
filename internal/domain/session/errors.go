package session

import "errors"

var (
	// ErrUnknownSession indicates the session is not in the active set.
	ErrUnknownSession = errors.New("unknown or inactive session")
	// ErrNotFound indicates the session is neither active nor in the ledger.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")
)
