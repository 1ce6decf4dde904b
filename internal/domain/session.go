package domain

import "time"

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Status represents a session lifecycle state. Transitions are one-way:
// ONGOING -> COMPLETED.
type Status string

const (
	StatusOngoing   Status = "ONGOING"
	StatusCompleted Status = "COMPLETED"
)

// Result is the terminal outcome of a completed session. Draws are not
// modeled: every completed session has a winning side.
type Result string

const (
	ResultWhiteWin Result = "WHITE_WIN"
	ResultBlackWin Result = "BLACK_WIN"
)

// Session is the persisted state of a staked two-player match. Participant
// names are denormalized onto the session at creation time; the identity
// service owns the canonical profiles.
type Session struct {
	ID        string `json:"id"`
	WhiteID   string `json:"white_id"`
	WhiteName string `json:"white_name"`
	BlackID   string `json:"black_id"`
	BlackName string `json:"black_name"`

	// Stake is held in minor currency units. Both players wager the same
	// amount; it transfers from loser to winner on completion.
	Stake int64 `json:"stake"`

	Status   Status `json:"status"`
	Result   Result `json:"result,omitempty"`
	WinnerID string `json:"winner_id,omitempty"`

	Moves []string `json:"moves"`
	FEN   string   `json:"fen"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Ongoing reports whether the session still accepts moves.
func (s *Session) Ongoing() bool { return s.Status == StatusOngoing }

// Participant reports whether userID plays in this session.
func (s *Session) Participant(userID string) bool {
	return userID != "" && (userID == s.WhiteID || userID == s.BlackID)
}

// OpponentOf returns the id of the other participant, or "" if userID is
// not a participant.
func (s *Session) OpponentOf(userID string) string {
	switch userID {
	case s.WhiteID:
		return s.BlackID
	case s.BlackID:
		return s.WhiteID
	}
	return ""
}

// ColorOf returns the side userID plays, or "" for non-participants.
func (s *Session) ColorOf(userID string) Color {
	switch userID {
	case s.WhiteID:
		return White
	case s.BlackID:
		return Black
	}
	return ""
}

// CurrentTurn derives the side to move from move-list parity.
func (s *Session) CurrentTurn() Color {
	if len(s.Moves)%2 == 0 {
		return White
	}
	return Black
}

// ResultFor maps a winning color to the session result token.
func ResultFor(winner Color) Result {
	if winner == Black {
		return ResultBlackWin
	}
	return ResultWhiteWin
}
