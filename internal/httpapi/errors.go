package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/obslog"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/rules"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/pkg/gamedto"
)

// writeError maps domain sentinels onto HTTP statuses and stable codes.
// Anything unmapped is an internal error and gets logged, not leaked.
func writeError(c *gin.Context, err error) {
	var (
		status    int
		code      string
		retryable bool
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, gamedto.CodeNotFound
	case errors.Is(err, domain.ErrInvalidRequest):
		status, code = http.StatusBadRequest, gamedto.CodeInvalidRequest
	case errors.Is(err, domain.ErrSessionEnded):
		status, code = http.StatusConflict, gamedto.CodeSessionEnded
	case errors.Is(err, domain.ErrInvalidMoveFormat):
		status, code = http.StatusBadRequest, gamedto.CodeInvalidMoveFormat
	case errors.Is(err, rules.ErrIllegalMove):
		status, code = http.StatusBadRequest, gamedto.CodeIllegalMove
	case errors.Is(err, domain.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, gamedto.CodeUnauthenticated
	case errors.Is(err, domain.ErrNotParticipant):
		status, code = http.StatusForbidden, gamedto.CodeNotParticipant
	case errors.Is(err, domain.ErrConflict):
		status, code, retryable = http.StatusConflict, gamedto.CodeConflict, true
	case errors.Is(err, domain.ErrSettlementFailed):
		status, code, retryable = http.StatusInternalServerError, gamedto.CodeSettlementFailed, true
	default:
		obslog.L().Error("http_internal_error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		status, code = http.StatusInternalServerError, gamedto.CodeInternal
		err = errors.New("internal error")
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gamedto.DomainError{
			Code:      code,
			Message:   err.Error(),
			Retryable: retryable,
		},
	})
}
