package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

// SnapshotRepository handles daily balance snapshot persistence. Snapshot
// dates are truncated to start-of-day UTC and unique per day.
type SnapshotRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sqlx.DB, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Latest returns the most recent snapshot by date, or a zero-amount
// snapshot dated today when none has ever been written.
func (r *SnapshotRepository) Latest(ctx context.Context) (*model.DailySnapshot, error) {
	query := `SELECT snapshot_date, amount, updated_at
		FROM balance_snapshots
		ORDER BY snapshot_date DESC
		LIMIT 1`

	var snap model.DailySnapshot
	if err := r.db.GetContext(ctx, &snap, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			now := time.Now().UTC()
			return &model.DailySnapshot{
				Date:      startOfDayUTC(now),
				Amount:    decimal.Zero,
				UpdatedAt: now,
			}, nil
		}
		r.logger.Error("failed to get latest snapshot", zap.Error(err))
		return nil, model.NewCacheReadError(err)
	}

	return &snap, nil
}

// ByDate returns the snapshot for the given calendar day, or nil when no
// snapshot exists for that day.
func (r *SnapshotRepository) ByDate(ctx context.Context, date time.Time) (*model.DailySnapshot, error) {
	query := `SELECT snapshot_date, amount, updated_at
		FROM balance_snapshots
		WHERE snapshot_date = $1`

	var snap model.DailySnapshot
	if err := r.db.GetContext(ctx, &snap, query, startOfDayUTC(date)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to get snapshot by date",
			zap.Error(err),
			zap.Time("date", date))
		return nil, model.NewCacheReadError(err)
	}

	return &snap, nil
}

// TodayIfFresh returns today's snapshot only if it was written within the
// freshness window; a stale or missing snapshot returns nil.
func (r *SnapshotRepository) TodayIfFresh(ctx context.Context, window time.Duration) (*model.DailySnapshot, error) {
	snap, err := r.ByDate(ctx, time.Now().UTC())
	if err != nil || snap == nil {
		return nil, err
	}

	if time.Since(snap.UpdatedAt) > window {
		return nil, nil
	}

	return snap, nil
}

// Upsert writes today's snapshot, inserting the row on first write of the
// day and updating the amount in place afterwards.
func (r *SnapshotRepository) Upsert(ctx context.Context, amount decimal.Decimal) (*model.DailySnapshot, error) {
	query := `INSERT INTO balance_snapshots (snapshot_date, amount, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (snapshot_date)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at
		RETURNING snapshot_date, amount, updated_at`

	now := time.Now().UTC()

	var snap model.DailySnapshot
	if err := r.db.GetContext(ctx, &snap, query, startOfDayUTC(now), amount, now); err != nil {
		r.logger.Error("failed to upsert snapshot",
			zap.Error(err),
			zap.String("amount", amount.String()))
		return nil, model.NewCacheWriteError(err)
	}

	return &snap, nil
}

// History returns all snapshots from the last N days as dashboard points,
// sorted ascending by date.
func (r *SnapshotRepository) History(ctx context.Context, days int) ([]model.HistoryPoint, error) {
	query := `SELECT snapshot_date, amount, updated_at
		FROM balance_snapshots
		WHERE snapshot_date >= $1
		ORDER BY snapshot_date ASC`

	since := startOfDayUTC(time.Now().UTC()).AddDate(0, 0, -days)

	var snaps []model.DailySnapshot
	if err := r.db.SelectContext(ctx, &snaps, query, since); err != nil {
		r.logger.Error("failed to get snapshot history", zap.Error(err), zap.Int("days", days))
		return nil, model.NewCacheReadError(err)
	}

	points := make([]model.HistoryPoint, 0, len(snaps))
	for _, s := range snaps {
		value, _ := s.Amount.Float64()
		points = append(points, model.HistoryPoint{
			Date:  s.Date.Format("2006-01-02"),
			Value: value,
		})
	}

	return points, nil
}

// startOfDayUTC truncates a timestamp to midnight UTC.
func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
