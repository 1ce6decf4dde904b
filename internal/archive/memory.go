package archive

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
)

// memory is an in-process archive used for development and tests when no
// database is configured.
type memory struct {
	mu   sync.RWMutex
	byID map[string]*domain.Session
}

func NewMemory() Store {
	return &memory{byID: make(map[string]*domain.Session)}
}

func (m *memory) SaveResult(ctx context.Context, s *domain.Session) error {
	if s == nil || s.Status != domain.StatusCompleted || s.CompletedAt == nil {
		return fmt.Errorf("refusing to archive non-completed session")
	}
	cp := *s
	cp.Moves = append([]string(nil), s.Moves...)
	completed := *s.CompletedAt
	cp.CompletedAt = &completed

	m.mu.Lock()
	m.byID[cp.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *memory) History(ctx context.Context, userID string, limit, offset int) ([]*domain.Session, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	m.mu.RLock()
	matched := make([]*domain.Session, 0, len(m.byID))
	for _, s := range m.byID {
		if s.Participant(userID) {
			matched = append(matched, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CompletedAt.Equal(*matched[j].CompletedAt) {
			return matched[i].CompletedAt.After(*matched[j].CompletedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if offset >= total {
		return []*domain.Session{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*domain.Session, 0, end-offset)
	for _, s := range matched[offset:end] {
		cp := *s
		page = append(page, &cp)
	}
	return page, total, nil
}
