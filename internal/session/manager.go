// Package session implements the lifecycle engine for staked two-player
// games. Every mutation of a session runs inside an optimistic Redis
// transaction keyed on the session blob, so a status check and the write
// that depends on it commit together or not at all.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/archive"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/moveledger"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/obslog"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/rules"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/settle"
)

const DefaultSessionTTL = 24 * time.Hour

// casRetries bounds how often a mutation is retried after losing an
// optimistic transaction before ErrConflict surfaces to the caller.
const casRetries = 8

type Manager struct {
	rdb       *redis.Client
	settler   *settle.Engine
	archive   archive.Store
	validator rules.Validator
	ttl       time.Duration
}

func NewManager(rdb *redis.Client, settler *settle.Engine, store archive.Store, validator rules.Validator, ttl time.Duration) *Manager {
	if validator == nil {
		validator = rules.Permissive{}
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{rdb: rdb, settler: settler, archive: store, validator: validator, ttl: ttl}
}

// CreateParams seeds a pre-existing session. Matchmaking and stake escrow
// happen upstream; the engine only manages the lifecycle from here on.
type CreateParams struct {
	ID        string
	WhiteID   string
	WhiteName string
	BlackID   string
	BlackName string
	Stake     int64
}

func (m *Manager) Create(ctx context.Context, p CreateParams) (*domain.Session, error) {
	whiteID := strings.TrimSpace(p.WhiteID)
	blackID := strings.TrimSpace(p.BlackID)
	if whiteID == "" || blackID == "" {
		return nil, fmt.Errorf("%w: both participants required", domain.ErrInvalidRequest)
	}
	if whiteID == blackID {
		return nil, fmt.Errorf("%w: participants must be distinct", domain.ErrInvalidRequest)
	}
	if p.Stake < 0 {
		return nil, fmt.Errorf("%w: stake must be non-negative", domain.ErrInvalidRequest)
	}

	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = "game-" + uuid.New().String()
	}
	now := time.Now().UTC()
	s := &domain.Session{
		ID:        id,
		WhiteID:   whiteID,
		WhiteName: strings.TrimSpace(p.WhiteName),
		BlackID:   blackID,
		BlackName: strings.TrimSpace(p.BlackName),
		Stake:     p.Stake,
		Status:    domain.StatusOngoing,
		Moves:     []string{},
		FEN:       moveledger.InitialFEN,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	if err := m.indexParticipants(ctx, s.ID, s.WhiteID, s.BlackID); err != nil {
		return nil, err
	}
	obslog.L().Info("session_create",
		zap.String("session_id", s.ID),
		zap.String("white_id", s.WhiteID),
		zap.String("black_id", s.BlackID),
		zap.Int64("stake", s.Stake),
	)
	return s, nil
}

// Get returns the session or domain.ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Session, error) {
	return m.load(ctx, id)
}

// MoveOutcome reports an applied move.
type MoveOutcome struct {
	Session   *domain.Session
	Move      string
	FEN       string
	Check     bool
	Checkmate bool
	GameOver  bool
}

// ApplyMove appends one move to an ongoing session. The read of the move
// list and the write of its successor are a single optimistic transaction:
// two concurrent movers cannot both commit against the same list.
//
// Any authenticated caller may submit a move; participant and turn
// enforcement is not part of this engine's contract.
func (m *Manager) ApplyMove(ctx context.Context, sessionID, userID, from, to string) (*MoveOutcome, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrUnauthenticated
	}
	token, err := moveledger.Encode(from, to)
	if err != nil {
		return nil, err
	}

	var (
		out   MoveOutcome
		key   = sessionKey(sessionID)
		flags rules.Flags
		cur   *domain.Session
	)
	err = m.withCAS(ctx, key, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		var s domain.Session
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if !s.Ongoing() {
			return domain.ErrSessionEnded
		}

		flags, err = m.validator.Validate(s.Moves, token)
		if err != nil {
			return err
		}

		moves, fen, err := moveledger.Append(s.Moves, from, to)
		if err != nil {
			return err
		}
		s.Moves = moves
		s.FEN = fen
		s.UpdatedAt = time.Now().UTC()

		if flags.GameOver {
			finalize(&s, domain.ResultFor(flags.Winner), s.UpdatedAt)
		}

		newRaw, err := json.Marshal(&s)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newRaw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		cur = &s
		return nil
	})
	if err != nil {
		return nil, err
	}

	obslog.L().Info("session_move",
		zap.String("session_id", cur.ID),
		zap.String("user_id", strings.TrimSpace(userID)),
		zap.String("move", token),
		zap.Int("move_count", len(cur.Moves)),
		zap.Bool("game_over", flags.GameOver),
	)

	if flags.GameOver {
		if err := m.settleCompleted(ctx, cur); err != nil {
			return nil, err
		}
	}

	out = MoveOutcome{
		Session:   cur,
		Move:      token,
		FEN:       cur.FEN,
		Check:     flags.Check,
		Checkmate: flags.Checkmate,
		GameOver:  flags.GameOver,
	}
	return &out, nil
}

// Resign completes the session in the opponent's favor and settles the
// stake exactly once. The status check and the terminal write share one
// transaction, so only a single terminal transition can ever commit.
func (m *Manager) Resign(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, domain.ErrUnauthenticated
	}

	var cur *domain.Session
	key := sessionKey(sessionID)
	err := m.withCAS(ctx, key, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		var s domain.Session
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if !s.Ongoing() {
			return domain.ErrSessionEnded
		}
		if !s.Participant(uid) {
			return domain.ErrNotParticipant
		}

		winnerID := s.OpponentOf(uid)
		finalizeWith(&s, winnerID, domain.ResultFor(s.ColorOf(winnerID)), time.Now().UTC())

		newRaw, err := json.Marshal(&s)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, newRaw, m.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		cur = &s
		return nil
	})
	if err != nil {
		return nil, err
	}

	obslog.L().Info("session_resign",
		zap.String("session_id", cur.ID),
		zap.String("resigner", uid),
		zap.String("winner_id", cur.WinnerID),
		zap.String("result", string(cur.Result)),
	)

	if err := m.settleCompleted(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// ListActiveByUser returns the user's ongoing sessions, most recently
// started first. Ordering is stable across calls with unchanged data.
func (m *Manager) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	ids, err := m.sessionIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		s, err := m.load(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue // expired from the live store
		}
		if err != nil {
			return nil, err
		}
		if s.Ongoing() {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.After(list[j].StartedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// withCAS runs fn inside an optimistic transaction on key, retrying a
// bounded number of times when a concurrent writer invalidates the watch.
// A retry re-reads the session, so stale decisions cannot commit; losing
// every attempt surfaces as ErrConflict.
func (m *Manager) withCAS(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < casRetries; i++ {
		err := m.rdb.Watch(ctx, fn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return domain.ErrConflict
}

func finalize(s *domain.Session, result domain.Result, at time.Time) {
	winnerID := s.WhiteID
	if result == domain.ResultBlackWin {
		winnerID = s.BlackID
	}
	finalizeWith(s, winnerID, result, at)
}

func finalizeWith(s *domain.Session, winnerID string, result domain.Result, at time.Time) {
	s.Status = domain.StatusCompleted
	s.Result = result
	s.WinnerID = winnerID
	s.CompletedAt = &at
	s.UpdatedAt = at
}

// settleTimeout bounds the settlement unit once it is detached from the
// request context.
const settleTimeout = 10 * time.Second

// settleCompleted runs the stake transfer for a freshly completed session,
// then archives it. A failed transfer compensates by restoring the session
// to ONGOING: the session is never left completed without settlement.
//
// The terminal flip has already committed when this runs, so the transfer
// and its compensation must outlive the caller: a client disconnect after
// the flip cannot be allowed to strand a completed session with untouched
// balances.
func (m *Manager) settleCompleted(ctx context.Context, s *domain.Session) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	loserID := s.OpponentOf(s.WinnerID)
	if err := m.settler.Settle(ctx, s.WinnerID, loserID, s.Stake, s.ID); err != nil {
		m.rollbackTerminal(ctx, s)
		return err
	}
	if m.archive != nil {
		if err := m.archive.SaveResult(ctx, s); err != nil {
			obslog.L().Error("session_archive_error",
				zap.String("session_id", s.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (m *Manager) rollbackTerminal(ctx context.Context, s *domain.Session) {
	s.Status = domain.StatusOngoing
	s.Result = ""
	s.WinnerID = ""
	s.CompletedAt = nil
	s.UpdatedAt = time.Now().UTC()
	if err := m.save(ctx, s); err != nil {
		// Worst case: a completed session without settlement. Loud by
		// intent, reconciliation has to step in.
		obslog.L().Error("session_rollback_error",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
		return
	}
	obslog.L().Warn("session_settlement_rollback", zap.String("session_id", s.ID))
}
