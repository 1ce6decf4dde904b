package query

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/archive"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/session"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/settle"
)

func newTestService(t *testing.T) (*Service, *session.Manager, archive.Store, *settle.Engine) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine := settle.NewEngine(rdb)
	store := archive.NewMemory()
	mgr := session.NewManager(rdb, engine, store, nil, 0)
	return NewService(mgr, store), mgr, store, engine
}

func completedSession(id, winnerID, loserID string, moves int, at time.Time) *domain.Session {
	s := &domain.Session{
		ID:        id,
		WhiteID:   winnerID,
		WhiteName: "Winner",
		BlackID:   loserID,
		BlackName: "Loser",
		Stake:     50,
		Status:    domain.StatusCompleted,
		Result:    domain.ResultWhiteWin,
		WinnerID:  winnerID,
		Moves:     make([]string, moves),
		StartedAt: at.Add(-time.Hour),
		UpdatedAt: at,
	}
	s.CompletedAt = &at
	return s
}

func TestListHistoryLimitClamp(t *testing.T) {
	svc, _, store, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s := completedSession("game-"+string(rune('a'+i)), "alice", "bob", 4, base.Add(time.Duration(i)*time.Minute))
		if err := store.SaveResult(ctx, s); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}

	cases := []struct {
		in, want int
	}{
		{200, 100},
		{101, 100},
		{100, 100},
		{1, 1},
		{0, 1},
		{-7, 1},
		{10, 10},
	}
	for _, tc := range cases {
		_, page, err := svc.ListHistory(ctx, "alice", tc.in, 0)
		if err != nil {
			t.Fatalf("ListHistory(limit=%d): %v", tc.in, err)
		}
		if page.Limit != tc.want {
			t.Errorf("limit %d: got %d, want %d", tc.in, page.Limit, tc.want)
		}
		if page.Total != 5 {
			t.Errorf("limit %d: total = %d, want 5", tc.in, page.Total)
		}
	}
}

func TestListHistoryOffsetPastEnd(t *testing.T) {
	svc, _, store, _ := newTestService(t)
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SaveResult(ctx, completedSession("game-1", "alice", "bob", 2, at)); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	items, page, err := svc.ListHistory(ctx, "alice", 10, 50)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty page, got %d items", len(items))
	}
	if page.Total != 1 || page.Offset != 50 {
		t.Fatalf("pagination = %+v, want total 1 offset 50", page)
	}
}

func TestListHistoryViewerRelativeResult(t *testing.T) {
	svc, _, store, _ := newTestService(t)
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SaveResult(ctx, completedSession("game-1", "alice", "bob", 6, at)); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	aliceItems, _, err := svc.ListHistory(ctx, "alice", 10, 0)
	if err != nil {
		t.Fatalf("ListHistory(alice): %v", err)
	}
	if len(aliceItems) != 1 || aliceItems[0].Result != "WIN" {
		t.Fatalf("alice items = %+v, want one WIN", aliceItems)
	}
	if aliceItems[0].Opponent.ID != "bob" {
		t.Fatalf("alice opponent = %q, want bob", aliceItems[0].Opponent.ID)
	}
	if aliceItems[0].MoveCount != 6 {
		t.Fatalf("move count = %d, want 6", aliceItems[0].MoveCount)
	}

	bobItems, _, err := svc.ListHistory(ctx, "bob", 10, 0)
	if err != nil {
		t.Fatalf("ListHistory(bob): %v", err)
	}
	if len(bobItems) != 1 || bobItems[0].Result != "LOSS" {
		t.Fatalf("bob items = %+v, want one LOSS", bobItems)
	}
	if bobItems[0].Opponent.ID != "alice" {
		t.Fatalf("bob opponent = %q, want alice", bobItems[0].Opponent.ID)
	}
}

func TestListHistoryUnauthenticated(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, _, err := svc.ListHistory(context.Background(), "", 10, 0); err != domain.ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestListActivePerspective(t *testing.T) {
	svc, mgr, _, engine := newTestService(t)
	ctx := context.Background()

	for _, uid := range []string{"alice", "bob"} {
		if err := engine.EnsureWallet(ctx, uid, 100); err != nil {
			t.Fatalf("EnsureWallet(%s): %v", uid, err)
		}
	}
	created, err := mgr.Create(ctx, session.CreateParams{
		ID:        "game-1",
		WhiteID:   "alice",
		WhiteName: "Alice",
		BlackID:   "bob",
		BlackName: "Bob",
		Stake:     50,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	views, err := svc.ListActive(ctx, "alice")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d views, want 1", len(views))
	}
	v := views[0]
	if v.ID != created.ID || v.Opponent.ID != "bob" || v.Opponent.Name != "Bob" {
		t.Fatalf("unexpected view %+v", v)
	}
	if v.CurrentTurn != "white" {
		t.Fatalf("current turn = %q, want white", v.CurrentTurn)
	}

	if _, err := mgr.ApplyMove(ctx, created.ID, "alice", "e2", "e4"); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	views, err = svc.ListActive(ctx, "bob")
	if err != nil {
		t.Fatalf("ListActive(bob): %v", err)
	}
	if len(views) != 1 || views[0].Opponent.ID != "alice" {
		t.Fatalf("unexpected bob views %+v", views)
	}
	if views[0].CurrentTurn != "black" {
		t.Fatalf("current turn = %q, want black", views[0].CurrentTurn)
	}
}

func TestListActiveExcludesCompleted(t *testing.T) {
	svc, mgr, _, engine := newTestService(t)
	ctx := context.Background()

	for _, uid := range []string{"alice", "bob"} {
		if err := engine.EnsureWallet(ctx, uid, 100); err != nil {
			t.Fatalf("EnsureWallet(%s): %v", uid, err)
		}
	}
	created, err := mgr.Create(ctx, session.CreateParams{
		WhiteID: "alice", WhiteName: "Alice",
		BlackID: "bob", BlackName: "Bob",
		Stake: 50,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := mgr.Resign(ctx, created.ID, "alice"); err != nil {
		t.Fatalf("Resign: %v", err)
	}

	views, err := svc.ListActive(ctx, "alice")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("got %d views, want 0", len(views))
	}
}
