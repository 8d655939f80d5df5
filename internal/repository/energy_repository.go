package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// EnergyRepository handles household energy sample persistence.
type EnergyRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewEnergyRepository creates a new energy repository
func NewEnergyRepository(db *sqlx.DB, logger *zap.Logger) *EnergyRepository {
	return &EnergyRepository{
		db:     db,
		logger: logger,
	}
}

// Insert records one consumption/production sample stamped now.
func (r *EnergyRepository) Insert(ctx context.Context, create *model.EnergyReadingCreate) (*model.EnergyReading, error) {
	query := `INSERT INTO energy_readings (consumed_w, produced_w, recorded_at)
		VALUES ($1, $2, $3)
		RETURNING id, consumed_w, produced_w, recorded_at`

	var reading model.EnergyReading
	err := r.db.GetContext(ctx, &reading, query, create.ConsumedW, create.ProducedW, time.Now().UTC())
	if err != nil {
		r.logger.Error("failed to insert energy reading", zap.Error(err))
		return nil, err
	}

	return &reading, nil
}

// ListSince returns all samples recorded at or after the given instant,
// oldest first.
func (r *EnergyRepository) ListSince(ctx context.Context, since time.Time) ([]model.EnergyReading, error) {
	query := `SELECT id, consumed_w, produced_w, recorded_at
		FROM energy_readings
		WHERE recorded_at >= $1
		ORDER BY recorded_at ASC`

	var readings []model.EnergyReading
	if err := r.db.SelectContext(ctx, &readings, query, since); err != nil {
		r.logger.Error("failed to list energy readings", zap.Error(err), zap.Time("since", since))
		return nil, err
	}

	return readings, nil
}
