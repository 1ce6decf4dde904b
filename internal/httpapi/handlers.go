// Package httpapi exposes the game engine over HTTP: a gin router, JWT
// bearer auth, and a stable error envelope shared by every endpoint.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/domain"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/msgcat"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/query"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/session"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/internal/settle"
	"github.com/TheGreatKamikaze1/GlobalChessBackend/pkg/gamedto"
)

const recentTransactions = 20

type Handler struct {
	sessions *session.Manager
	queries  *query.Service
	wallets  *settle.Engine
	messages *msgcat.Catalog

	historyLimit int
}

func NewHandler(sessions *session.Manager, queries *query.Service, wallets *settle.Engine, messages *msgcat.Catalog, historyLimit int) *Handler {
	if historyLimit < 1 || historyLimit > query.MaxHistoryLimit {
		historyLimit = query.DefaultHistoryLimit
	}
	return &Handler{
		sessions:     sessions,
		queries:      queries,
		wallets:      wallets,
		messages:     messages,
		historyLimit: historyLimit,
	}
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req gamedto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gamedto.DomainError{
				Code:    gamedto.CodeInvalidRequest,
				Message: "invalid request body",
			},
		})
		return
	}

	s, err := h.sessions.Create(c.Request.Context(), session.CreateParams{
		ID:        req.SessionID,
		WhiteID:   c.GetString(ctxUserID),
		WhiteName: c.GetString(ctxUserName),
		BlackID:   req.OpponentID,
		BlackName: req.OpponentName,
		Stake:     req.Stake,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	view, err := h.queries.Session(c.Request.Context(), s.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": view})
}

func (h *Handler) GetSession(c *gin.Context) {
	view, err := h.queries.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
}

func (h *Handler) ApplyMove(c *gin.Context) {
	var req gamedto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gamedto.DomainError{
				Code:    gamedto.CodeInvalidMoveFormat,
				Message: "move requires from and to squares",
			},
		})
		return
	}

	out, err := h.sessions.ApplyMove(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID), req.From, req.To)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gamedto.MoveResponse{
		SessionID:   out.Session.ID,
		Move:        out.Move,
		CurrentFEN:  out.FEN,
		IsCheck:     out.Check,
		IsCheckmate: out.Checkmate,
		IsGameOver:  out.GameOver,
	}
	if out.GameOver {
		resp.Message = h.outcomeMessage(out.Session)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp})
}

func (h *Handler) outcomeMessage(s *domain.Session) string {
	winnerName := s.WhiteName
	if s.WinnerID == s.BlackID {
		winnerName = s.BlackName
	}
	msg, err := h.messages.Render("outcome.checkmate", map[string]string{"WinnerName": winnerName})
	if err != nil {
		return "Checkmate. " + winnerName + " wins the game."
	}
	return msg
}

func (h *Handler) Resign(c *gin.Context) {
	uid := c.GetString(ctxUserID)
	s, err := h.sessions.Resign(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		writeError(c, err)
		return
	}

	winnerName := s.WhiteName
	if s.WinnerID == s.BlackID {
		winnerName = s.BlackName
	}
	msg, err := h.messages.Render("resign.self", map[string]string{"WinnerName": winnerName})
	if err != nil {
		msg = "You resigned. " + winnerName + " wins the game."
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gamedto.ResignResponse{
		SessionID: s.ID,
		Result:    string(s.Result),
		WinnerID:  s.WinnerID,
		Message:   msg,
	}})
}

func (h *Handler) ListActive(c *gin.Context) {
	views, err := h.queries.ListActive(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gamedto.ActiveSessionsResponse{Success: true, Data: views})
}

func (h *Handler) ListHistory(c *gin.Context) {
	limit := intQuery(c, "limit", h.historyLimit)
	offset := intQuery(c, "offset", 0)

	items, page, err := h.queries.ListHistory(c.Request.Context(), c.GetString(ctxUserID), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gamedto.HistoryResponse{Success: true, Data: items, Pagination: page})
}

func (h *Handler) Wallet(c *gin.Context) {
	ctx := c.Request.Context()
	uid := c.GetString(ctxUserID)

	w, err := h.wallets.Wallet(ctx, uid)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gamedto.WalletResponse{
		Success:      true,
		UserID:       uid,
		Transactions: []gamedto.TransactionView{},
	}
	if w != nil {
		resp.Balance = w.Balance
		resp.TotalWon = w.TotalWon
		resp.TotalLost = w.TotalLost
	}

	txs, err := h.wallets.Transactions(ctx, uid, recentTransactions)
	if err != nil {
		writeError(c, err)
		return
	}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, gamedto.TransactionView{
			ID:           tx.ID,
			Type:         string(tx.Type),
			Amount:       tx.Amount,
			BalanceAfter: tx.BalanceAfter,
			SessionID:    tx.SessionID,
			CreatedAt:    tx.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
