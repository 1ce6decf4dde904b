package rules

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
)

// Strict validates moves with a real chess engine. It assumes the whole
// session history was produced under strict validation; a history this
// engine cannot replay is rejected outright.
type Strict struct{}

func (Strict) Validate(prior []string, move string) (Flags, error) {
	game := reconstruct(prior)
	if game == nil {
		return Flags{}, fmt.Errorf("%w: unreplayable history", ErrIllegalMove)
	}
	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, move)
	if err != nil {
		return Flags{}, fmt.Errorf("%w: %s", ErrIllegalMove, move)
	}
	if err := game.Move(mv, nil); err != nil {
		return Flags{}, fmt.Errorf("%w: %s", ErrIllegalMove, move)
	}

	var flags Flags
	for _, vm := range pos.ValidMoves() {
		if vm.S1() == mv.S1() && vm.S2() == mv.S2() && vm.Promo() == mv.Promo() {
			flags.Check = vm.HasTag(nchess.Check)
			break
		}
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		flags.GameOver = true
		flags.Check = true
		flags.Checkmate = true
		flags.Winner = domain.White
	case nchess.BlackWon:
		flags.GameOver = true
		flags.Check = true
		flags.Checkmate = true
		flags.Winner = domain.Black
	}
	// Draw outcomes are not modeled by the session lifecycle; stalemate and
	// repetition positions keep the session open.
	return flags, nil
}

func reconstruct(moves []string) *nchess.Game {
	game := nchess.NewGame()
	for _, m := range moves {
		if err := game.PushNotationMove(m, nchess.UCINotation{}, nil); err != nil {
			return nil
		}
	}
	return game
}
