// Package archive persists completed sessions for history queries. The
// live session store keeps blobs with a TTL; the archive is the durable
// record once a game has settled.
package archive

import (
	"context"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
)

type Store interface {
	// SaveResult upserts a completed session. Re-archiving the same
	// session is a no-op overwrite, never a duplicate.
	SaveResult(ctx context.Context, s *domain.Session) error

	// History returns the user's completed sessions ordered by completion
	// time descending, plus the total match count for pagination.
	History(ctx context.Context, userID string, limit, offset int) ([]*domain.Session, int, error)
}
