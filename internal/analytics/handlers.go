package analytics

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paymentmate/paymentmate/internal/logging"
)

// Handler provides the HTTP endpoint for aggregate metrics.
type Handler struct {
	aggregator *Aggregator
}

// NewHandler creates a new metrics handler.
func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// RegisterRoutes sets up the metrics route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/data/metrics", h.GetMetrics)
}

// GetMetrics handles GET /data/metrics
func (h *Handler) GetMetrics(c *gin.Context) {
	snap, err := h.aggregator.Compute(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to compute metrics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "metrics_error",
			"message": "Failed to compute aggregate metrics",
		})
		return
	}

	c.JSON(http.StatusOK, snap)
}
