package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS games (
		game_id      TEXT PRIMARY KEY,
		white_id     TEXT NOT NULL,
		white_name   TEXT NOT NULL DEFAULT '',
		black_id     TEXT NOT NULL,
		black_name   TEXT NOT NULL DEFAULT '',
		stake        BIGINT NOT NULL DEFAULT 0,
		result       TEXT NOT NULL,
		winner_id    TEXT NOT NULL,
		moves        JSONB NOT NULL DEFAULT '[]',
		fen          TEXT NOT NULL DEFAULT '',
		move_count   INTEGER NOT NULL DEFAULT 0,
		started_at   TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS games_white_idx ON games (white_id, completed_at DESC);
	CREATE INDEX IF NOT EXISTS games_black_idx ON games (black_id, completed_at DESC)`

type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// EnsureSchema creates the games table when it does not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Postgres) SaveResult(ctx context.Context, s *domain.Session) error {
	if s == nil || s.Status != domain.StatusCompleted || s.CompletedAt == nil {
		return fmt.Errorf("refusing to archive non-completed session")
	}
	movesRaw, err := json.Marshal(s.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	const q = `
		INSERT INTO games (
			game_id, white_id, white_name, black_id, black_name,
			stake, result, winner_id, moves, fen, move_count,
			started_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10,$11,$12,$13)
		ON CONFLICT (game_id) DO UPDATE SET
			result=EXCLUDED.result,
			winner_id=EXCLUDED.winner_id,
			moves=EXCLUDED.moves,
			fen=EXCLUDED.fen,
			move_count=EXCLUDED.move_count,
			completed_at=EXCLUDED.completed_at`

	_, err = p.db.ExecContext(ctx, q,
		s.ID,
		s.WhiteID, s.WhiteName,
		s.BlackID, s.BlackName,
		s.Stake, string(s.Result), s.WinnerID,
		string(movesRaw), s.FEN, len(s.Moves),
		s.StartedAt, *s.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (p *Postgres) History(ctx context.Context, userID string, limit, offset int) ([]*domain.Session, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	const countQ = `SELECT COUNT(*) FROM games WHERE white_id = $1 OR black_id = $1`
	if err := p.db.QueryRowContext(ctx, countQ, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count games: %w", err)
	}

	const q = `
		SELECT
			game_id, white_id, white_name, black_id, black_name,
			stake, result, winner_id, moves, fen,
			started_at, completed_at
		FROM games
		WHERE white_id = $1 OR black_id = $1
		ORDER BY completed_at DESC, game_id
		LIMIT $2 OFFSET $3`

	rows, err := p.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select games: %w", err)
	}
	defer rows.Close()

	sessions := make([]*domain.Session, 0, limit)
	for rows.Next() {
		var (
			s           domain.Session
			result      string
			movesJSON   []byte
			completedAt time.Time
		)
		if err := rows.Scan(
			&s.ID,
			&s.WhiteID, &s.WhiteName,
			&s.BlackID, &s.BlackName,
			&s.Stake, &result, &s.WinnerID,
			&movesJSON, &s.FEN,
			&s.StartedAt, &completedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan game: %w", err)
		}
		if err := json.Unmarshal(movesJSON, &s.Moves); err != nil {
			return nil, 0, fmt.Errorf("unmarshal moves: %w", err)
		}
		s.Status = domain.StatusCompleted
		s.Result = domain.Result(result)
		s.CompletedAt = &completedAt
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate games: %w", err)
	}
	return sessions, total, nil
}
