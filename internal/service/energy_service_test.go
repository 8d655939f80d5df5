package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foyerhq/home-api/internal/model"
)

type mockEnergyRepo struct {
	readings []model.EnergyReading
	inserted []model.EnergyReadingCreate
	since    time.Time
}

func (m *mockEnergyRepo) Insert(ctx context.Context, create *model.EnergyReadingCreate) (*model.EnergyReading, error) {
	m.inserted = append(m.inserted, *create)
	return &model.EnergyReading{
		ID:         int64(len(m.inserted)),
		ConsumedW:  create.ConsumedW,
		ProducedW:  create.ProducedW,
		RecordedAt: time.Now().UTC(),
	}, nil
}

func (m *mockEnergyRepo) ListSince(ctx context.Context, since time.Time) ([]model.EnergyReading, error) {
	m.since = since
	return m.readings, nil
}

func TestRecordStoresSample(t *testing.T) {
	repo := &mockEnergyRepo{}
	svc := NewEnergyService(repo, zap.NewNop())

	reading, err := svc.Record(context.Background(), &model.EnergyReadingCreate{ConsumedW: 450, ProducedW: 1200})
	require.NoError(t, err)

	assert.Equal(t, 450.0, reading.ConsumedW)
	assert.Equal(t, 1200.0, reading.ProducedW)
	require.Len(t, repo.inserted, 1)
}

func TestRecentUsesTrailingWindow(t *testing.T) {
	repo := &mockEnergyRepo{}
	svc := NewEnergyService(repo, zap.NewNop())

	_, err := svc.Recent(context.Background(), 6)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().UTC().Add(-6*time.Hour), repo.since, 2*time.Second)
}

func TestTodaySummaryIntegratesByTrapezoid(t *testing.T) {
	base := time.Now().UTC().Truncate(24 * time.Hour)
	repo := &mockEnergyRepo{
		readings: []model.EnergyReading{
			{ConsumedW: 1000, ProducedW: 0, RecordedAt: base.Add(8 * time.Hour)},
			{ConsumedW: 2000, ProducedW: 1000, RecordedAt: base.Add(9 * time.Hour)},
			{ConsumedW: 2000, ProducedW: 3000, RecordedAt: base.Add(10 * time.Hour)},
		},
	}
	svc := NewEnergyService(repo, zap.NewNop())

	summary, err := svc.TodaySummary(context.Background())
	require.NoError(t, err)

	// Hour 1: (1000+2000)/2; hour 2: (2000+2000)/2
	assert.InDelta(t, 3500, summary.ConsumedWh, 0.01)
	// Hour 1: (0+1000)/2; hour 2: (1000+3000)/2
	assert.InDelta(t, 2500, summary.ProducedWh, 0.01)
	assert.InDelta(t, -1000, summary.NetWh, 0.01)
	assert.Equal(t, 3, summary.SampleCount)
}

func TestTodaySummaryWithFewSamples(t *testing.T) {
	t.Run("no samples", func(t *testing.T) {
		svc := NewEnergyService(&mockEnergyRepo{}, zap.NewNop())

		summary, err := svc.TodaySummary(context.Background())
		require.NoError(t, err)

		assert.Zero(t, summary.ConsumedWh)
		assert.Zero(t, summary.ProducedWh)
		assert.Zero(t, summary.SampleCount)
	})

	t.Run("single sample has no interval to integrate", func(t *testing.T) {
		repo := &mockEnergyRepo{
			readings: []model.EnergyReading{
				{ConsumedW: 5000, ProducedW: 100, RecordedAt: time.Now().UTC()},
			},
		}
		svc := NewEnergyService(repo, zap.NewNop())

		summary, err := svc.TodaySummary(context.Background())
		require.NoError(t, err)

		assert.Zero(t, summary.ConsumedWh)
		assert.Equal(t, 1, summary.SampleCount)
	})
}
