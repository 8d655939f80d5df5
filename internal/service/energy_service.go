package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

type energyStore interface {
	Insert(ctx context.Context, create *model.EnergyReadingCreate) (*model.EnergyReading, error)
	ListSince(ctx context.Context, since time.Time) ([]model.EnergyReading, error)
}

// EnergyService records household consumption and solar production
// samples and summarizes them per day.
type EnergyService struct {
	repo   energyStore
	logger *zap.Logger
}

// NewEnergyService creates a new energy service
func NewEnergyService(repo energyStore, logger *zap.Logger) *EnergyService {
	return &EnergyService{
		repo:   repo,
		logger: logger,
	}
}

// Record stores one sample as reported by the home automation feed.
func (s *EnergyService) Record(ctx context.Context, create *model.EnergyReadingCreate) (*model.EnergyReading, error) {
	return s.repo.Insert(ctx, create)
}

// Recent returns the samples from the trailing window, oldest first.
func (s *EnergyService) Recent(ctx context.Context, hours int) ([]model.EnergyReading, error) {
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	return s.repo.ListSince(ctx, since)
}

// TodaySummary integrates today's samples into watt-hours. Readings are
// instantaneous watt values, so the energy between two samples is
// approximated by the trapezoid rule over their interval.
func (s *EnergyService) TodaySummary(ctx context.Context) (*model.EnergySummary, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	readings, err := s.repo.ListSince(ctx, start)
	if err != nil {
		return nil, err
	}

	summary := &model.EnergySummary{
		Date:        start.Format("2006-01-02"),
		SampleCount: len(readings),
	}

	for i := 1; i < len(readings); i++ {
		prev, cur := readings[i-1], readings[i]
		hours := cur.RecordedAt.Sub(prev.RecordedAt).Hours()
		if hours <= 0 {
			continue
		}
		summary.ConsumedWh += (prev.ConsumedW + cur.ConsumedW) / 2 * hours
		summary.ProducedWh += (prev.ProducedW + cur.ProducedW) / 2 * hours
	}
	summary.NetWh = summary.ProducedWh - summary.ConsumedWh

	return summary, nil
}
