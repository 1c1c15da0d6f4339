package engine

import "errors"

// ErrShuttingDown indicates the engine no longer accepts new sessions.
var ErrShuttingDown = errors.New("engine is shutting down")
