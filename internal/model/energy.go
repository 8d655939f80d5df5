package model

import "time"

// EnergyReading is one recorded sample of household consumption and
// solar production, both in watts.
type EnergyReading struct {
	ID         int64     `json:"id" db:"id"`
	ConsumedW  float64   `json:"consumed_w" db:"consumed_w"`
	ProducedW  float64   `json:"produced_w" db:"produced_w"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// EnergyReadingCreate is the request body for recording a sample.
type EnergyReadingCreate struct {
	ConsumedW float64 `json:"consumed_w" binding:"gte=0"`
	ProducedW float64 `json:"produced_w" binding:"gte=0"`
}

// EnergySummary is the integrated consumption and production for one day,
// in watt-hours.
type EnergySummary struct {
	Date        string  `json:"date"`
	ConsumedWh  float64 `json:"consumed_wh"`
	ProducedWh  float64 `json:"produced_wh"`
	NetWh       float64 `json:"net_wh"`
	SampleCount int     `json:"sample_count"`
}
