// Package query renders read-side views over live and archived sessions.
// It owns pagination normalization and the viewer-relative projections
// (opponent, WIN/LOSS) that the write-side engine stays agnostic of.
package query

import (
	"context"
	"fmt"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/archive"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/session"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/pkg/gamedto"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

type Service struct {
	sessions *session.Manager
	archive  archive.Store
}

func NewService(sessions *session.Manager, store archive.Store) *Service {
	return &Service{sessions: sessions, archive: store}
}

// Session returns the full state view of one session. Reads are not
// restricted to participants.
func (s *Service) Session(ctx context.Context, id string) (*gamedto.SessionView, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v := sessionView(sess)
	return &v, nil
}

// ListActive returns the user's ongoing sessions from the user's own
// perspective: each entry names the opponent, never the viewer.
func (s *Service) ListActive(ctx context.Context, userID string) ([]gamedto.ActiveSessionView, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	list, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]gamedto.ActiveSessionView, 0, len(list))
	for _, sess := range list {
		views = append(views, gamedto.ActiveSessionView{
			ID:          sess.ID,
			Opponent:    opponentOf(sess, userID),
			Stake:       sess.Stake,
			Status:      string(sess.Status),
			StartedAt:   sess.StartedAt,
			CurrentTurn: string(sess.CurrentTurn()),
		})
	}
	return views, nil
}

// ListHistory returns one page of the user's completed sessions, newest
// first. The limit is clamped into [1, 100]; callers that omit the
// parameter pass DefaultHistoryLimit. The offset may point past the end,
// which yields an empty page with an accurate total.
func (s *Service) ListHistory(ctx context.Context, userID string, limit, offset int) ([]gamedto.HistoryItem, gamedto.Pagination, error) {
	if userID == "" {
		return nil, gamedto.Pagination{}, domain.ErrUnauthenticated
	}
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	sessions, total, err := s.archive.History(ctx, userID, limit, offset)
	if err != nil {
		return nil, gamedto.Pagination{}, fmt.Errorf("load history: %w", err)
	}

	items := make([]gamedto.HistoryItem, 0, len(sessions))
	for _, sess := range sessions {
		result := "LOSS"
		if sess.WinnerID == userID {
			result = "WIN"
		}
		item := gamedto.HistoryItem{
			ID:        sess.ID,
			Opponent:  opponentOf(sess, userID),
			Stake:     sess.Stake,
			Result:    result,
			MoveCount: len(sess.Moves),
		}
		if sess.CompletedAt != nil {
			item.CompletedAt = *sess.CompletedAt
		}
		items = append(items, item)
	}
	return items, gamedto.Pagination{Total: total, Limit: limit, Offset: offset}, nil
}

func clampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

func sessionView(s *domain.Session) gamedto.SessionView {
	moves := make([]string, len(s.Moves))
	copy(moves, s.Moves)
	return gamedto.SessionView{
		ID:          s.ID,
		White:       gamedto.Player{ID: s.WhiteID, Name: s.WhiteName},
		Black:       gamedto.Player{ID: s.BlackID, Name: s.BlackName},
		Stake:       s.Stake,
		Status:      string(s.Status),
		Moves:       moves,
		CurrentFEN:  s.FEN,
		StartedAt:   s.StartedAt,
		Result:      string(s.Result),
		WinnerID:    s.WinnerID,
		CompletedAt: s.CompletedAt,
	}
}

func opponentOf(s *domain.Session, viewerID string) gamedto.Player {
	if viewerID == s.WhiteID {
		return gamedto.Player{ID: s.BlackID, Name: s.BlackName}
	}
	return gamedto.Player{ID: s.WhiteID, Name: s.WhiteName}
}
