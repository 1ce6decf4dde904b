package gamedto

// Stable machine-readable error codes.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeSessionEnded      = "SESSION_ENDED"
	CodeInvalidMoveFormat = "INVALID_MOVE_FORMAT"
	CodeIllegalMove       = "ILLEGAL_MOVE"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeNotParticipant    = "NOT_PARTICIPANT"
	CodeSettlementFailed  = "SETTLEMENT_FAILED"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL"
)

// DomainError carries a stable code plus a human-readable message across
// the transport boundary.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "game service error"
}
