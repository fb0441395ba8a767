package calculator

import (
	"PriceSentinel/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Compute derives price deltas from extracted fields. A metric is left
// undefined when any of its inputs is missing; a percentage is also left
// undefined when the base price is not positive.
func Compute(f model.PriceFields) model.Metrics {
	var m model.Metrics
	m.Delta3m, m.Pct3m = Change(f.NowPrice, f.Min3mPrice)
	m.Delta30d, m.Pct30d = Change(f.NowPrice, f.Min30dPrice)
	return m
}

// Change returns now-base and (now-base)/base*100.
func Change(now, base decimal.NullDecimal) (delta, pct decimal.NullDecimal) {
	if !now.Valid || !base.Valid {
		return delta, pct
	}
	d := now.Decimal.Sub(base.Decimal)
	delta = decimal.NewNullDecimal(d)
	if !base.Decimal.IsPositive() {
		return delta, pct
	}
	pct = decimal.NewNullDecimal(d.Div(base.Decimal).Mul(hundred))
	return delta, pct
}

// Round rounds a defined value to at most two decimals for presentation.
func Round(v decimal.NullDecimal) decimal.NullDecimal {
	if !v.Valid {
		return v
	}
	return decimal.NewNullDecimal(v.Decimal.Round(2))
}
