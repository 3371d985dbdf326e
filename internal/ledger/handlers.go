package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paymentmate/paymentmate/internal/logging"
	"github.com/paymentmate/paymentmate/internal/scoring"
)

// EventEmitter notifies live subscribers about ledger-wide events.
type EventEmitter interface {
	HistoryCleared()
}

// Handler provides HTTP endpoints for transaction history.
type Handler struct {
	ledger       *Ledger
	events       EventEmitter
	defaultLimit int
}

// NewHandler creates a new history handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger, defaultLimit: DefaultQueryLimit}
}

// WithDefaultLimit overrides the page size used when a history query
// carries no limit parameter. Values outside [1, MaxQueryLimit] keep
// the built-in default.
func (h *Handler) WithDefaultLimit(limit int) *Handler {
	if limit >= 1 && limit <= MaxQueryLimit {
		h.defaultLimit = limit
	}
	return h
}

// WithEvents adds a real-time event emitter.
func (h *Handler) WithEvents(events EventEmitter) *Handler {
	h.events = events
	return h
}

// RegisterRoutes sets up the read-only history routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/data/history", h.GetHistory)
	r.GET("/data/history/stats", h.GetStats)
}

// RegisterAdminRoutes sets up destructive history routes. The caller is
// responsible for wrapping the group in an admin guard.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.DELETE("/data/history", h.ClearHistory)
}

// HistoryItem is the trimmed per-transaction view returned by history
// queries.
type HistoryItem struct {
	TransactionID string           `json:"transaction_id"`
	UserID        int64            `json:"user_id"`
	Amount        float64          `json:"amount"`
	MerchantID    string           `json:"merchant_id"`
	Score         float64          `json:"score"`
	Decision      scoring.Decision `json:"decision"`
	Timestamp     time.Time        `json:"timestamp"`
	Country       string           `json:"country,omitempty"`
}

func toHistoryItem(txn *scoring.ScoredTransaction) HistoryItem {
	return HistoryItem{
		TransactionID: txn.ID,
		UserID:        txn.Input.UserID,
		Amount:        txn.Input.Amount,
		MerchantID:    txn.Input.MerchantID,
		Score:         txn.Score,
		Decision:      txn.Decision,
		Timestamp:     txn.Input.Timestamp,
		Country:       txn.Input.Country,
	}
}

// GetHistory handles GET /data/history?limit=20&decision=FLAG&cursor=...
func (h *Handler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()

	limit := h.defaultLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxQueryLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer between 1 and 100",
			})
			return
		}
		limit = n
	}

	var filter scoring.Decision
	if s := c.Query("decision"); s != "" {
		d, err := scoring.ParseDecision(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_decision",
				"message": "decision must be one of ALLOW, FLAG, DECLINE",
			})
			return
		}
		filter = d
	}

	items, next, hasMore, err := h.ledger.HistoryPage(ctx, filter, limit, c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "cursor is malformed",
		})
		return
	}

	total, _, err := h.ledger.Stats(ctx)
	if err != nil {
		logging.L(ctx).Error("failed to read ledger stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "history_error",
			"message": "Failed to retrieve transaction history",
		})
		return
	}

	transactions := make([]HistoryItem, 0, len(items))
	for _, txn := range items {
		transactions = append(transactions, toHistoryItem(txn))
	}

	resp := gin.H{
		"transactions":   transactions,
		"total_count":    total,
		"returned_count": len(transactions),
		"has_more":       hasMore,
	}
	if next != "" {
		resp["next_cursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}

// GetStats handles GET /data/history/stats
func (h *Handler) GetStats(c *gin.Context) {
	total, byDecision, err := h.ledger.Stats(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to read ledger stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "stats_error",
			"message": "Failed to retrieve history statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"by_decision": gin.H{
			string(scoring.DecisionAllow):   byDecision[scoring.DecisionAllow],
			string(scoring.DecisionFlag):    byDecision[scoring.DecisionFlag],
			string(scoring.DecisionDecline): byDecision[scoring.DecisionDecline],
		},
	})
}

// ClearHistory handles DELETE /data/history. Destructive: wipes the
// in-memory ledger (the Postgres audit copy, if any, is untouched).
func (h *Handler) ClearHistory(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.ledger.Clear(ctx); err != nil {
		logging.L(ctx).Error("failed to clear history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "clear_error",
			"message": "Failed to clear transaction history",
		})
		return
	}

	if h.events != nil {
		h.events.HistoryCleared()
	}

	logging.L(ctx).Info("transaction history cleared")
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
