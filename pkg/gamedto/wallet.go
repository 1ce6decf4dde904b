package gamedto

import "time"

// CreateSessionRequest starts a staked match between the authenticated
// caller (white) and the named opponent (black).
type CreateSessionRequest struct {
	SessionID    string `json:"sessionId"`
	OpponentID   string `json:"opponentId" binding:"required"`
	OpponentName string `json:"opponentName"`
	Stake        int64  `json:"stake"`
}

// TransactionView is one settlement ledger entry.
type TransactionView struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balanceAfter"`
	SessionID    string    `json:"sessionId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// WalletResponse reports the caller's balance and recent settlements.
type WalletResponse struct {
	Success      bool              `json:"success"`
	UserID       string            `json:"userId"`
	Balance      int64             `json:"balance"`
	TotalWon     int64             `json:"totalWon"`
	TotalLost    int64             `json:"totalLost"`
	Transactions []TransactionView `json:"transactions"`
}
