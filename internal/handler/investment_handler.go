package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// investmentsComposer is the slice of the dashboard service the handler
// needs.
type investmentsComposer interface {
	Balance(ctx context.Context) (float64, error)
	ForceBalance(ctx context.Context) (float64, error)
	ChangeRatio(ctx context.Context) (float64, error)
	Dashboard(ctx context.Context) (*model.Dashboard, error)
}

// InvestmentHandler handles the investments HTTP surface. Every failure
// maps to a bare 500; upstream detail stays in the server logs.
type InvestmentHandler struct {
	dashboard investmentsComposer
	logger    *zap.Logger
}

// NewInvestmentHandler creates a new investments handler
func NewInvestmentHandler(dashboard investmentsComposer, logger *zap.Logger) *InvestmentHandler {
	return &InvestmentHandler{
		dashboard: dashboard,
		logger:    logger,
	}
}

// Auth handles the liveness probe used by the dashboard frontend
// GET /investments/auth
func (h *InvestmentHandler) Auth(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Balance returns the cached-or-fresh household total
// GET /investments/balance
func (h *InvestmentHandler) Balance(c *gin.Context) {
	balance, err := h.dashboard.Balance(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to get balance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, balance)
}

// ForceBalance recomputes the total straight from upstream
// GET /investments/balance/force
func (h *InvestmentHandler) ForceBalance(c *gin.Context) {
	amount, err := h.dashboard.ForceBalance(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to force balance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, model.BalanceResponse{Amount: amount})
}

// PercentageChange returns the latest/yesterday balance ratio
// GET /investments/balance/percentage-change
func (h *InvestmentHandler) PercentageChange(c *gin.Context) {
	ratio, err := h.dashboard.ChangeRatio(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to get percentage change", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get percentage change"})
		return
	}

	c.JSON(http.StatusOK, ratio)
}

// Dashboard returns the full composed investments payload
// GET /investments/dashboard
func (h *InvestmentHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.dashboard.Dashboard(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compose dashboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dashboard"})
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
