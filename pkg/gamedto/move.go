package gamedto

// MoveRequest carries one proposed move as origin and destination square
// labels (e.g. "e2" and "e4").
type MoveRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// MoveResponse reports the applied move and the resulting position.
// Message is set only when the move ended the game.
type MoveResponse struct {
	SessionID   string `json:"sessionId"`
	Move        string `json:"move"`
	CurrentFEN  string `json:"currentFen"`
	IsCheck     bool   `json:"isCheck"`
	IsCheckmate bool   `json:"isCheckmate"`
	IsGameOver  bool   `json:"isGameOver"`
	Message     string `json:"message,omitempty"`
}

// ResignResponse reports the terminal outcome of a resignation.
type ResignResponse struct {
	SessionID string `json:"sessionId"`
	Result    string `json:"result"`
	WinnerID  string `json:"winnerId"`
	Message   string `json:"message"`
}
