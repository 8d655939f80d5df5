package service

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// round2 rounds to two decimal places and returns the float form used in
// response payloads.
func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// percentChange computes round2((latest-base)/base*100). A missing or
// non-positive base yields 0; gaps in the snapshot history are expected
// after off-cycle periods and are not errors.
func percentChange(latest, base decimal.Decimal) float64 {
	if !base.IsPositive() {
		return 0
	}
	return round2(latest.Sub(base).Div(base).Mul(hundred))
}

// changeRatio computes round2(latest/base) with the same zero fallback.
func changeRatio(latest, base decimal.Decimal) float64 {
	if !base.IsPositive() {
		return 0
	}
	return round2(latest.Div(base))
}
