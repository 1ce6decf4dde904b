package session

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
)

func sessionKey(id string) string { return "session:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string {
	return "session:index:user:" + strings.TrimSpace(userID)
}

func (m *Manager) save(ctx context.Context, s *domain.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, sessionKey(s.ID), raw, m.ttl).Err()
}

func (m *Manager) load(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := m.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// indexParticipants records both users in the per-user session index so
// listings can find their games. Index TTL tracks the session TTL.
func (m *Manager) indexParticipants(ctx context.Context, id string, userIDs ...string) error {
	for _, uid := range userIDs {
		if strings.TrimSpace(uid) == "" {
			continue
		}
		key := idxUserKey(uid)
		if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return err
		}
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

func (m *Manager) sessionIDsByUser(ctx context.Context, userID string) ([]string, error) {
	return m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
}
