// Package settle owns every balance mutation in the service. A completed
// session settles exactly once: the stake moves from loser to winner in a
// single Redis script, so the two wallet writes are one atomic unit.
package settle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/obslog"
)

const (
	ttlTransaction = 30 * 24 * time.Hour
	maxUserTx      = 100
)

func walletKey(userID string) string { return "wallet:" + userID }
func txKey(id string) string         { return "transaction:" + id }
func userTxKey(userID string) string { return "user:" + userID + ":transactions" }

// transferScript credits the winner and debits the loser in one atomic
// step. It aborts with no partial effect when either wallet is missing.
// Overdraft is not checked here; a negative result is flagged by the caller
// for reconciliation.
var transferScript = redis.NewScript(`
	local wraw = redis.call("GET", KEYS[1])
	if not wraw then
		return redis.error_reply("winner wallet not found")
	end
	local lraw = redis.call("GET", KEYS[2])
	if not lraw then
		return redis.error_reply("loser wallet not found")
	end

	local amount = tonumber(ARGV[1])
	local w = cjson.decode(wraw)
	local l = cjson.decode(lraw)

	w.balance = w.balance + amount
	w.total_won = (w.total_won or 0) + amount
	w.updated_at = ARGV[2]

	l.balance = l.balance - amount
	l.total_lost = (l.total_lost or 0) + amount
	l.updated_at = ARGV[2]

	redis.call("SET", KEYS[1], cjson.encode(w))
	redis.call("SET", KEYS[2], cjson.encode(l))

	return {w.balance, l.balance}
`)

type Engine struct {
	rdb *redis.Client
}

func NewEngine(rdb *redis.Client) *Engine {
	return &Engine{rdb: rdb}
}

// Settle transfers amount from the loser's wallet to the winner's. Either
// both balances change or neither does. Transaction records are written
// afterwards on a best-effort basis.
func (e *Engine) Settle(ctx context.Context, winnerID, loserID string, amount int64, sessionID string) error {
	if winnerID == "" || loserID == "" || winnerID == loserID {
		return fmt.Errorf("%w: invalid parties %q/%q", domain.ErrSettlementFailed, winnerID, loserID)
	}
	if amount < 0 {
		return fmt.Errorf("%w: negative amount %d", domain.ErrSettlementFailed, amount)
	}

	now := time.Now().UTC()
	res, err := transferScript.Run(ctx, e.rdb,
		[]string{walletKey(winnerID), walletKey(loserID)},
		amount, now.Format(time.RFC3339Nano),
	).Int64Slice()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSettlementFailed, err)
	}
	if len(res) != 2 {
		return fmt.Errorf("%w: unexpected transfer reply %v", domain.ErrSettlementFailed, res)
	}
	winnerBalance, loserBalance := res[0], res[1]

	obslog.L().Info("settlement",
		zap.String("session_id", sessionID),
		zap.String("winner_id", winnerID),
		zap.String("loser_id", loserID),
		zap.Int64("amount", amount),
	)
	if loserBalance < 0 {
		// No overdraft check by contract; reconciliation picks these up.
		obslog.L().Warn("settlement_negative_balance",
			zap.String("session_id", sessionID),
			zap.String("user_id", loserID),
			zap.Int64("balance", loserBalance),
		)
	}

	e.recordTransaction(ctx, &domain.Transaction{
		ID:           uuid.New().String(),
		UserID:       winnerID,
		Type:         domain.TransactionSettlementCredit,
		Amount:       amount,
		BalanceAfter: winnerBalance,
		SessionID:    sessionID,
		CreatedAt:    now,
	})
	e.recordTransaction(ctx, &domain.Transaction{
		ID:           uuid.New().String(),
		UserID:       loserID,
		Type:         domain.TransactionSettlementDebit,
		Amount:       amount,
		BalanceAfter: loserBalance,
		SessionID:    sessionID,
		CreatedAt:    now,
	})
	return nil
}

// EnsureWallet creates a wallet with an opening balance unless one already
// exists. Used by seeding and tests; live balances only move via Settle.
func (e *Engine) EnsureWallet(ctx context.Context, userID string, balance int64) error {
	w := &domain.Wallet{UserID: userID, Balance: balance, UpdatedAt: time.Now().UTC()}
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return e.rdb.SetNX(ctx, walletKey(userID), raw, 0).Err()
}

// Wallet returns the current wallet state, or nil when none exists.
func (e *Engine) Wallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	raw, err := e.rdb.Get(ctx, walletKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var w domain.Wallet
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Transactions returns the user's most recent settlement records, newest
// first.
func (e *Engine) Transactions(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > maxUserTx {
		limit = 50
	}
	ids, err := e.rdb.ZRevRange(ctx, userTxKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	txs := make([]*domain.Transaction, 0, len(ids))
	for _, id := range ids {
		raw, err := e.rdb.Get(ctx, txKey(id)).Bytes()
		if err != nil {
			continue
		}
		var tx domain.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			continue
		}
		txs = append(txs, &tx)
	}
	return txs, nil
}

func (e *Engine) recordTransaction(ctx context.Context, tx *domain.Transaction) {
	raw, err := json.Marshal(tx)
	if err != nil {
		obslog.L().Error("transaction_marshal_error", zap.Error(err))
		return
	}
	pipe := e.rdb.Pipeline()
	pipe.Set(ctx, txKey(tx.ID), raw, ttlTransaction)
	pipe.ZAdd(ctx, userTxKey(tx.UserID), redis.Z{
		Score:  float64(tx.CreatedAt.UnixNano()),
		Member: tx.ID,
	})
	pipe.ZRemRangeByRank(ctx, userTxKey(tx.UserID), 0, -int64(maxUserTx)-1)
	if _, err := pipe.Exec(ctx); err != nil {
		obslog.L().Error("transaction_record_error",
			zap.String("user_id", tx.UserID),
			zap.String("session_id", tx.SessionID),
			zap.Error(err),
		)
	}
}
