package domain

import "time"

// Wallet is a user's account balance. Balances move only through the
// settlement engine's atomic transfer; there is no other mutation path.
type Wallet struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	TotalWon  int64     `json:"total_won"`
	TotalLost int64     `json:"total_lost"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionType labels a balance movement.
type TransactionType string

const (
	TransactionSettlementCredit TransactionType = "settlement_credit"
	TransactionSettlementDebit  TransactionType = "settlement_debit"
)

// Transaction records one side of a settlement for reconciliation.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	SessionID    string          `json:"session_id"`
	CreatedAt    time.Time       `json:"created_at"`
}
