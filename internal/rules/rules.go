// Package rules provides pluggable move validation for the lifecycle
// engine. The default Permissive validator accepts every well-formed
// square pair and never reports check or game over, matching the service's
// documented behavior. Strict swaps in a full legality engine.
package rules

import (
	"errors"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
)

// ErrIllegalMove reports a move rejected by a legality-checking validator.
var ErrIllegalMove = errors.New("illegal move")

// Flags summarize the position after a validated move. With the Permissive
// validator every field is false.
type Flags struct {
	Check     bool
	Checkmate bool
	GameOver  bool
	// Winner is set only when GameOver is true.
	Winner domain.Color
}

// Validator judges a proposed move (a from+to token) against the session's
// prior move list.
type Validator interface {
	Validate(prior []string, move string) (Flags, error)
}

// Permissive accepts any move and reports no outcome. Move format is the
// ledger's concern, not the validator's.
type Permissive struct{}

func (Permissive) Validate([]string, string) (Flags, error) { return Flags{}, nil }

// ForMode returns the validator for a configured mode name. Unknown modes
// fall back to permissive.
func ForMode(mode string) Validator {
	if mode == "strict" {
		return Strict{}
	}
	return Permissive{}
}
