package domain

import "errors"

// Stable failure kinds surfaced by the session core. The transport layer
// maps these to wire codes; anything not in this set is an internal error.
var (
	ErrNotFound          = errors.New("session not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrSessionEnded      = errors.New("session already ended")
	ErrInvalidMoveFormat = errors.New("invalid move format")
	ErrUnauthenticated   = errors.New("no verified caller identity")
	ErrNotParticipant    = errors.New("not a participant")
	ErrSettlementFailed  = errors.New("settlement failed")

	// ErrConflict reports a concurrent writer won the optimistic update.
	// Retrying is a caller concern.
	ErrConflict = errors.New("concurrent update detected")
)
