package moveledger

import (
	"strconv"
	"strings"
)

// board is a plain piece placement grid indexed [rank][file], rank 0 being
// the first rank. Pieces are moved wherever the stored moves say, without
// legality interpretation: castling rights and en passant are not tracked,
// so the emitted FEN carries "-" in those fields once a move was played.
type board struct {
	sq [8][8]byte
}

const backRank = "rnbqkbnr"

func startingBoard() *board {
	var b board
	for f := 0; f < 8; f++ {
		b.sq[0][f] = backRank[f] &^ 0x20 // upper-case for white
		b.sq[1][f] = 'P'
		b.sq[6][f] = 'p'
		b.sq[7][f] = backRank[f]
	}
	return &b
}

// applyForced moves whatever occupies the origin square to the destination.
// An empty origin consumes the ply without touching the placement.
func (b *board) applyForced(move string) {
	if len(move) != 4 {
		return
	}
	ff, fr := int(move[0]-'a'), int(move[1]-'1')
	tf, tr := int(move[2]-'a'), int(move[3]-'1')
	if ff < 0 || ff > 7 || fr < 0 || fr > 7 || tf < 0 || tf > 7 || tr < 0 || tr > 7 {
		return
	}
	piece := b.sq[fr][ff]
	if piece == 0 {
		return
	}
	b.sq[fr][ff] = 0
	b.sq[tr][tf] = piece
}

func (b *board) fen(plies int) string {
	var sb strings.Builder
	for r := 7; r >= 0; r-- {
		empty := 0
		for f := 0; f < 8; f++ {
			p := b.sq[r][f]
			if p == 0 {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p)
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if r > 0 {
			sb.WriteByte('/')
		}
	}
	turn := " w "
	if plies%2 == 1 {
		turn = " b "
	}
	sb.WriteString(turn)
	sb.WriteString("- - 0 ")
	sb.WriteString(strconv.Itoa(plies/2 + 1))
	return sb.String()
}
