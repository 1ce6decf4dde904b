package gamedto

import "time"

// Player is the public slice of a participant profile exposed in views.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionView is the full session state returned by GetSession.
type SessionView struct {
	ID          string     `json:"id"`
	White       Player     `json:"white"`
	Black       Player     `json:"black"`
	Stake       int64      `json:"stake"`
	Status      string     `json:"status"`
	Moves       []string   `json:"moves"`
	CurrentFEN  string     `json:"currentFen"`
	StartedAt   time.Time  `json:"startedAt"`
	Result      string     `json:"result,omitempty"`
	WinnerID    string     `json:"winnerId,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ActiveSessionView renders an ongoing session from one participant's
// perspective.
type ActiveSessionView struct {
	ID          string    `json:"id"`
	Opponent    Player    `json:"opponent"`
	Stake       int64     `json:"stake"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"startedAt"`
	CurrentTurn string    `json:"currentTurn"`
}

// ActiveSessionsResponse wraps the active list.
type ActiveSessionsResponse struct {
	Success bool                `json:"success"`
	Data    []ActiveSessionView `json:"data"`
}
