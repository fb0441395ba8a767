package flagger

import (
	"fmt"

	"PriceSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// Thresholds are the policy values used by the rules, in percent.
type Thresholds struct {
	Pct3mIncrease  decimal.Decimal
	PctAbove30dLow decimal.Decimal
}

// DefaultThresholds returns 15% over three months and 10% above the 30-day low.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pct3mIncrease:  decimal.NewFromInt(15),
		PctAbove30dLow: decimal.NewFromInt(10),
	}
}

// rule returns a reason when it applies.
type rule func(f model.PriceFields, m model.Metrics, th Thresholds) (string, bool)

// Rules are evaluated in order and every applicable reason is kept.
var Rules = []rule{
	threeMonthIncrease,
	aboveThirtyDayLow,
}

// Evaluate applies all rules. Missing metrics never trigger a rule.
func Evaluate(f model.PriceFields, m model.Metrics, th Thresholds) model.FlagResult {
	res := model.FlagResult{Reasons: []string{}}
	for _, r := range Rules {
		if reason, ok := r(f, m, th); ok {
			res.Reasons = append(res.Reasons, reason)
		}
	}
	res.Suspicious = len(res.Reasons) > 0
	return res
}

func threeMonthIncrease(_ model.PriceFields, m model.Metrics, th Thresholds) (string, bool) {
	if !m.Pct3m.Valid || m.Pct3m.Decimal.LessThan(th.Pct3mIncrease) {
		return "", false
	}
	return fmt.Sprintf("3-month price increase ≥%s%%", th.Pct3mIncrease), true
}

// aboveThirtyDayLow compares prices directly: now >= min30d * (1 + pct/100).
func aboveThirtyDayLow(f model.PriceFields, _ model.Metrics, th Thresholds) (string, bool) {
	if !f.NowPrice.Valid || !f.Min30dPrice.Valid || !f.Min30dPrice.Decimal.IsPositive() {
		return "", false
	}
	factor := decimal.NewFromInt(1).Add(th.PctAbove30dLow.Div(decimal.NewFromInt(100)))
	if f.NowPrice.Decimal.LessThan(f.Min30dPrice.Decimal.Mul(factor)) {
		return "", false
	}
	return fmt.Sprintf("current price ≥%s%% above 30-day low", th.PctAbove30dLow), true
}
