package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/archive"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/moveledger"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/obslog"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/rules"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/settle"
)

type fixture struct {
	manager *Manager
	engine  *settle.Engine
	store   archive.Store
	rdb     *redis.Client
}

func newFixture(t *testing.T, validator rules.Validator) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	engine := settle.NewEngine(rdb)
	store := archive.NewMemory()
	return &fixture{
		manager: NewManager(rdb, engine, store, validator, 0),
		engine:  engine,
		store:   store,
		rdb:     rdb,
	}
}

// cancelOnScript cancels a context the moment a Lua script command goes out,
// simulating a client disconnect right after the terminal flip committed but
// before the stake transfer ran.
type cancelOnScript struct {
	cancel context.CancelFunc
}

func (h *cancelOnScript) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *cancelOnScript) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if name := cmd.Name(); name == "eval" || name == "evalsha" {
			h.cancel()
		}
		return next(ctx, cmd)
	}
}

func (h *cancelOnScript) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (f *fixture) seedWallets(t *testing.T, balance int64, users ...string) {
	t.Helper()
	for _, uid := range users {
		if err := f.engine.EnsureWallet(context.Background(), uid, balance); err != nil {
			t.Fatalf("EnsureWallet(%s): %v", uid, err)
		}
	}
}

func (f *fixture) createGame(t *testing.T, stake int64) *domain.Session {
	t.Helper()
	s, err := f.manager.Create(context.Background(), CreateParams{
		WhiteID:   "alice",
		WhiteName: "Alice",
		BlackID:   "bob",
		BlackName: "Bob",
		Stake:     stake,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s
}

func (f *fixture) balance(t *testing.T, uid string) int64 {
	t.Helper()
	w, err := f.engine.Wallet(context.Background(), uid)
	if err != nil {
		t.Fatalf("Wallet(%s): %v", uid, err)
	}
	if w == nil {
		t.Fatalf("wallet %s missing", uid)
	}
	return w.Balance
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cases := []CreateParams{
		{WhiteID: "", BlackID: "bob"},
		{WhiteID: "alice", BlackID: ""},
		{WhiteID: "alice", BlackID: "alice"},
		{WhiteID: "alice", BlackID: "bob", Stake: -1},
	}
	for i, p := range cases {
		if _, err := f.manager.Create(ctx, p); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("case %d: err = %v, want ErrInvalidRequest", i, err)
		}
	}
}

func TestCreateInitialState(t *testing.T) {
	f := newFixture(t, nil)
	s := f.createGame(t, 50)

	if s.Status != domain.StatusOngoing {
		t.Fatalf("status = %s, want ONGOING", s.Status)
	}
	if len(s.Moves) != 0 || s.FEN != moveledger.InitialFEN {
		t.Fatalf("new session not at initial position: %+v", s)
	}
	if s.CurrentTurn() != domain.White {
		t.Fatalf("current turn = %s, want white", s.CurrentTurn())
	}

	got, err := f.manager.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID || got.Stake != 50 {
		t.Fatalf("Get returned %+v", got)
	}
}

func TestGetUnknown(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.manager.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestApplyMoveSequence(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	s := f.createGame(t, 0)

	moves := [][2]string{{"e2", "e4"}, {"e7", "e5"}, {"g1", "f3"}}
	for i, mv := range moves {
		out, err := f.manager.ApplyMove(ctx, s.ID, "alice", mv[0], mv[1])
		if err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		if len(out.Session.Moves) != i+1 {
			t.Fatalf("move %d: count = %d, want %d", i, len(out.Session.Moves), i+1)
		}
		if out.Check || out.Checkmate || out.GameOver {
			t.Fatalf("move %d: flags must stay false without a rules engine: %+v", i, out)
		}
		if out.FEN != moveledger.Replay(out.Session.Moves) {
			t.Fatalf("move %d: stored FEN diverges from replay", i)
		}
	}

	got, err := f.manager.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []string{"e2e4", "e7e5", "g1f3"}
	if len(got.Moves) != len(want) {
		t.Fatalf("moves = %v, want %v", got.Moves, want)
	}
	for i := range want {
		if got.Moves[i] != want[i] {
			t.Fatalf("moves = %v, want %v", got.Moves, want)
		}
	}
	if got.CurrentTurn() != domain.Black {
		t.Fatalf("current turn = %s, want black after 3 plies", got.CurrentTurn())
	}
}

func TestApplyMoveErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	s := f.createGame(t, 0)

	if _, err := f.manager.ApplyMove(ctx, s.ID, "", "e2", "e4"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("no user: err = %v", err)
	}
	if _, err := f.manager.ApplyMove(ctx, "nope", "alice", "e2", "e4"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown session: err = %v", err)
	}
	if _, err := f.manager.ApplyMove(ctx, s.ID, "alice", "z9", "e4"); !errors.Is(err, domain.ErrInvalidMoveFormat) {
		t.Fatalf("bad square: err = %v", err)
	}
	if _, err := f.manager.ApplyMove(ctx, s.ID, "alice", "e2", ""); !errors.Is(err, domain.ErrInvalidMoveFormat) {
		t.Fatalf("empty square: err = %v", err)
	}
}

// Stake flow end to end: white resigns after one move, black collects the
// stake, and the terminal session rejects every further mutation.
func TestResignSettlesExactlyOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedWallets(t, 100, "alice", "bob")
	s := f.createGame(t, 50)

	if _, err := f.manager.ApplyMove(ctx, s.ID, "alice", "e2", "e4"); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}

	done, err := f.manager.Resign(ctx, s.ID, "alice")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.Result != domain.ResultBlackWin {
		t.Fatalf("session = %+v, want COMPLETED BLACK_WIN", done)
	}
	if done.WinnerID != "bob" || done.CompletedAt == nil {
		t.Fatalf("winner = %q completedAt = %v", done.WinnerID, done.CompletedAt)
	}

	if got := f.balance(t, "alice"); got != 50 {
		t.Fatalf("alice balance = %d, want 50", got)
	}
	if got := f.balance(t, "bob"); got != 150 {
		t.Fatalf("bob balance = %d, want 150", got)
	}

	if _, err := f.manager.ApplyMove(ctx, s.ID, "bob", "e7", "e5"); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("move after end: err = %v", err)
	}
	if _, err := f.manager.Resign(ctx, s.ID, "bob"); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("double resign: err = %v", err)
	}

	if got := f.balance(t, "alice"); got != 50 {
		t.Fatalf("alice balance moved again: %d", got)
	}
	if got := f.balance(t, "bob"); got != 150 {
		t.Fatalf("bob balance moved again: %d", got)
	}

	// Completed game landed in the archive.
	items, total, err := f.store.History(ctx, "alice", 10, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != s.ID {
		t.Fatalf("archive = %v (total %d), want the completed game", items, total)
	}
}

func TestResignGuards(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedWallets(t, 100, "alice", "bob")
	s := f.createGame(t, 50)

	if _, err := f.manager.Resign(ctx, s.ID, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("no user: err = %v", err)
	}
	if _, err := f.manager.Resign(ctx, "nope", "alice"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown session: err = %v", err)
	}
	if _, err := f.manager.Resign(ctx, s.ID, "mallory"); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("outsider: err = %v", err)
	}

	// The failed attempts left the session untouched.
	got, err := f.manager.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Ongoing() {
		t.Fatalf("session no longer ongoing: %+v", got)
	}
}

// A caller disconnecting after the terminal flip committed must not strand
// a completed session with untouched balances: the settlement unit runs
// detached from request cancellation.
func TestResignSettlesDespiteCallerDisconnect(t *testing.T) {
	f := newFixture(t, nil)
	f.seedWallets(t, 100, "alice", "bob")
	s := f.createGame(t, 50)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.rdb.AddHook(&cancelOnScript{cancel: cancel})

	done, err := f.manager.Resign(ctx, s.ID, "alice")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if done.Status != domain.StatusCompleted || done.WinnerID != "bob" {
		t.Fatalf("session = %+v, want COMPLETED with winner bob", done)
	}

	if got := f.balance(t, "alice"); got != 50 {
		t.Fatalf("alice balance = %d, want 50", got)
	}
	if got := f.balance(t, "bob"); got != 150 {
		t.Fatalf("bob balance = %d, want 150", got)
	}

	got, err := f.manager.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Fatalf("stored status = %s, want COMPLETED", got.Status)
	}
}

// A failed stake transfer must not leave a completed session behind.
func TestSettlementFailureRollsBackTerminalState(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	prev := obslog.L()
	obslog.SetLogger(zap.New(core))
	t.Cleanup(func() { obslog.SetLogger(prev) })

	f := newFixture(t, nil)
	ctx := context.Background()
	// No wallets seeded: the transfer script aborts.
	s := f.createGame(t, 50)

	_, err := f.manager.Resign(ctx, s.ID, "alice")
	if !errors.Is(err, domain.ErrSettlementFailed) {
		t.Fatalf("err = %v, want ErrSettlementFailed", err)
	}
	if logs.FilterMessage("session_settlement_rollback").Len() != 1 {
		t.Fatal("rollback was not logged")
	}

	got, err := f.manager.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Ongoing() || got.WinnerID != "" || got.CompletedAt != nil {
		t.Fatalf("session not rolled back: %+v", got)
	}

	// The game can still finish once wallets exist.
	f.seedWallets(t, 100, "alice", "bob")
	if _, err := f.manager.Resign(ctx, s.ID, "alice"); err != nil {
		t.Fatalf("Resign after seeding: %v", err)
	}
	if got := f.balance(t, "bob"); got != 150 {
		t.Fatalf("bob balance = %d, want 150", got)
	}
}

// Two movers racing on the same session: losing an optimistic transaction
// retries against the fresh state, so every concurrent append lands, in
// some total order, with none lost.
func TestConcurrentMovesNoLostUpdate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	s := f.createGame(t, 0)

	attempts := [][2]string{
		{"e2", "e4"}, {"e7", "e5"}, {"g1", "f3"}, {"b8", "c6"}, {"f1", "c4"},
	}
	var wg sync.WaitGroup
	for _, mv := range attempts {
		wg.Add(1)
		go func(from, to string) {
			defer wg.Done()
			if _, err := f.manager.ApplyMove(ctx, s.ID, "alice", from, to); err != nil {
				t.Errorf("ApplyMove(%s%s): %v", from, to, err)
			}
		}(mv[0], mv[1])
	}
	wg.Wait()

	got, err := f.manager.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Moves) != len(attempts) {
		t.Fatalf("moves = %v, want all %d appends present", got.Moves, len(attempts))
	}
	seen := make(map[string]bool, len(got.Moves))
	for _, m := range got.Moves {
		if seen[m] {
			t.Fatalf("duplicate move %q in %v", m, got.Moves)
		}
		seen[m] = true
	}
	if got.FEN != moveledger.Replay(got.Moves) {
		t.Fatal("stored FEN diverges from replay after concurrent appends")
	}
}

func TestListActiveByUserOrdering(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.manager.Create(ctx, CreateParams{WhiteID: "alice", BlackID: "bob"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := f.manager.Create(ctx, CreateParams{WhiteID: "carol", BlackID: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := f.manager.ListActiveByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d sessions, want 2", len(list))
	}
	if list[0].StartedAt.Before(list[1].StartedAt) {
		t.Fatalf("not ordered newest first: %v then %v", list[0].StartedAt, list[1].StartedAt)
	}
	ids := map[string]bool{list[0].ID: true, list[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Fatalf("wrong sessions: %v", ids)
	}

	list, err = f.manager.ListActiveByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("ListActiveByUser(bob): %v", err)
	}
	if len(list) != 1 || list[0].ID != first.ID {
		t.Fatalf("bob sessions = %v, want only %s", list, first.ID)
	}
}

// With the strict validator a checkmating move completes and settles the
// game in one call.
func TestStrictValidatorCompletesOnCheckmate(t *testing.T) {
	f := newFixture(t, rules.Strict{})
	ctx := context.Background()
	f.seedWallets(t, 100, "alice", "bob")
	s := f.createGame(t, 50)

	plies := [][2]string{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}}
	for i, mv := range plies {
		out, err := f.manager.ApplyMove(ctx, s.ID, "alice", mv[0], mv[1])
		if err != nil {
			t.Fatalf("ply %d: %v", i, err)
		}
		if out.GameOver {
			t.Fatalf("ply %d: game over too early", i)
		}
	}

	out, err := f.manager.ApplyMove(ctx, s.ID, "bob", "d8", "h4")
	if err != nil {
		t.Fatalf("mating move: %v", err)
	}
	if !out.GameOver || !out.Checkmate {
		t.Fatalf("flags = %+v, want checkmate and game over", out)
	}
	if out.Session.Result != domain.ResultBlackWin || out.Session.WinnerID != "bob" {
		t.Fatalf("result = %s winner = %s, want BLACK_WIN bob", out.Session.Result, out.Session.WinnerID)
	}
	if got := f.balance(t, "bob"); got != 150 {
		t.Fatalf("bob balance = %d, want 150", got)
	}
	if got := f.balance(t, "alice"); got != 50 {
		t.Fatalf("alice balance = %d, want 50", got)
	}
}

func TestStrictValidatorRejectsIllegalMove(t *testing.T) {
	f := newFixture(t, rules.Strict{})
	ctx := context.Background()
	s := f.createGame(t, 0)

	if _, err := f.manager.ApplyMove(ctx, s.ID, "alice", "e2", "e5"); !errors.Is(err, rules.ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	got, err := f.manager.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Moves) != 0 {
		t.Fatalf("illegal move was stored: %v", got.Moves)
	}
}
