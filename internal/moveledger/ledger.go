// Package moveledger owns the ordered move list of a session and the
// position snapshot derived from it. Moves are stored as origin and
// destination square labels concatenated ("e2e4"); no piece, capture or
// promotion disambiguation is recorded.
package moveledger

import (
	"fmt"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
)

// InitialFEN is the standard starting position.
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ValidSquare reports whether s is a well-formed square label (a1..h8).
func ValidSquare(s string) bool {
	if len(s) != 2 {
		return false
	}
	return s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}

// Encode validates both square labels and returns the move token.
func Encode(from, to string) (string, error) {
	if !ValidSquare(from) || !ValidSquare(to) {
		return "", fmt.Errorf("%w: %q-%q", domain.ErrInvalidMoveFormat, from, to)
	}
	return from + to, nil
}

// Append validates and appends one move, returning the extended move list
// and the position after replay. The input slice is not mutated.
func Append(moves []string, from, to string) ([]string, string, error) {
	token, err := Encode(from, to)
	if err != nil {
		return nil, "", err
	}
	next := make([]string, 0, len(moves)+1)
	next = append(next, moves...)
	next = append(next, token)
	return next, Replay(next), nil
}

// Replay derives the position after applying every move in order from the
// initial position. Replay is a pure function of the move list, so a stored
// FEN can always be reproduced from the stored moves.
func Replay(moves []string) string {
	if len(moves) == 0 {
		return InitialFEN
	}
	b := startingBoard()
	for _, m := range moves {
		b.applyForced(m)
	}
	return b.fen(len(moves))
}
