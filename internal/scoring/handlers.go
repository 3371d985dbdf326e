package scoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paymentmate/paymentmate/internal/logging"
	"github.com/paymentmate/paymentmate/internal/metrics"
	"github.com/paymentmate/paymentmate/internal/validation"
)

// Recorder persists scored transactions.
type Recorder interface {
	Append(ctx context.Context, txn *ScoredTransaction) error
}

// EventEmitter publishes scored transactions to live subscribers.
type EventEmitter interface {
	Scored(txn *ScoredTransaction)
}

// Handler provides the HTTP scoring endpoint.
type Handler struct {
	engine    *Engine
	maxAmount float64
	recorder  Recorder
	events    EventEmitter
}

// NewHandler creates a scoring handler. recorder persists each scored
// transaction; nil skips persistence.
func NewHandler(engine *Engine, maxAmount float64, recorder Recorder) *Handler {
	return &Handler{
		engine:    engine,
		maxAmount: maxAmount,
		recorder:  recorder,
	}
}

// WithEvents adds a real-time event emitter.
func (h *Handler) WithEvents(events EventEmitter) *Handler {
	h.events = events
	return h
}

// RegisterRoutes sets up the scoring routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transaction/score", h.ScoreTransaction)
}

// ScoreTransaction handles POST /transaction/score
func (h *Handler) ScoreTransaction(c *gin.Context) {
	ctx := c.Request.Context()

	var input TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	now := time.Now()
	input.Normalize(now)

	if err := input.Validate(h.maxAmount, now); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   errorCode(err),
			"message": err.Error(),
		})
		return
	}

	if verrs := validation.Validate(
		validation.ValidMerchantID("merchant_id", input.MerchantID),
		validation.ValidCurrency("currency", input.Currency),
		validation.ValidCountry("country", input.Country),
		validation.MaxLength("merchant_category", input.MerchantCategory, validation.MaxStringLength),
	); verrs != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": verrs.Error(),
		})
		return
	}

	start := time.Now()
	txn := h.engine.Score(&input)
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())

	if h.recorder != nil {
		if err := h.recorder.Append(ctx, txn); err != nil {
			logging.L(ctx).Error("failed to record scored transaction",
				"transaction_id", txn.ID,
				"error", err,
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "scoring_error",
				"message": "Failed to record scored transaction",
			})
			return
		}
	}

	if h.events != nil {
		h.events.Scored(txn)
	}

	logging.L(ctx).Info("transaction scored",
		"transaction_id", txn.ID,
		"user_id", txn.Input.UserID,
		"score", txn.Score,
		"decision", txn.Decision,
	)

	c.JSON(http.StatusOK, txn)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrAmountTooLarge):
		return "amount_too_large"
	case errors.Is(err, ErrMissingMerchant):
		return "missing_merchant"
	case errors.Is(err, ErrFutureTimestamp):
		return "future_timestamp"
	default:
		return "invalid_request"
	}
}
