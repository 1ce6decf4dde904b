package gamedto

import "time"

// HistoryItem is one completed session rendered from the viewer's
// perspective: result is WIN or LOSS relative to the requesting user.
type HistoryItem struct {
	ID          string    `json:"id"`
	Opponent    Player    `json:"opponent"`
	Stake       int64     `json:"stake"`
	Result      string    `json:"result"`
	MoveCount   int       `json:"moveCount"`
	CompletedAt time.Time `json:"completedAt"`
}

// Pagination echoes the effective paging window with the total match count.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// HistoryResponse wraps a history page.
type HistoryResponse struct {
	Success    bool          `json:"success"`
	Data       []HistoryItem `json:"data"`
	Pagination Pagination    `json:"pagination"`
}
