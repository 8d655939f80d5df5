package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

type energyRecorder interface {
	Record(ctx context.Context, create *model.EnergyReadingCreate) (*model.EnergyReading, error)
	Recent(ctx context.Context, hours int) ([]model.EnergyReading, error)
	TodaySummary(ctx context.Context) (*model.EnergySummary, error)
}

// EnergyHandler handles the household energy HTTP surface.
type EnergyHandler struct {
	energy energyRecorder
	logger *zap.Logger
}

// NewEnergyHandler creates a new energy handler
func NewEnergyHandler(energy energyRecorder, logger *zap.Logger) *EnergyHandler {
	return &EnergyHandler{
		energy: energy,
		logger: logger,
	}
}

// Record stores one consumption/production sample
// POST /energy/readings
func (h *EnergyHandler) Record(c *gin.Context) {
	var request model.EnergyReadingCreate
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reading, err := h.energy.Record(c.Request.Context(), &request)
	if err != nil {
		h.logger.Error("failed to record energy reading", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record reading"})
		return
	}

	c.JSON(http.StatusCreated, reading)
}

// Recent returns the trailing sample series
// GET /energy/readings/recent?hours=24
func (h *EnergyHandler) Recent(c *gin.Context) {
	hours := 24
	if hoursStr := c.Query("hours"); hoursStr != "" {
		parsed, err := strconv.Atoi(hoursStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid hours parameter"})
			return
		}
		hours = parsed
	}

	readings, err := h.energy.Recent(c.Request.Context(), hours)
	if err != nil {
		h.logger.Error("failed to list energy readings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get readings"})
		return
	}

	if readings == nil {
		readings = []model.EnergyReading{}
	}
	c.JSON(http.StatusOK, readings)
}

// TodaySummary returns today's integrated consumption and production
// GET /energy/summary/today
func (h *EnergyHandler) TodaySummary(c *gin.Context) {
	summary, err := h.energy.TodaySummary(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to summarize energy readings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
