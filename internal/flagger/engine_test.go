package flagger

import (
	"reflect"
	"testing"

	"PriceSentinel/internal/calculator"
	"PriceSentinel/internal/model"

	"github.com/shopspring/decimal"
)

func nd(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func evaluate(f model.PriceFields) model.FlagResult {
	return Evaluate(f, calculator.Compute(f), DefaultThresholds())
}

func TestEvaluate_ThreeMonthIncrease(t *testing.T) {
	res := evaluate(model.PriceFields{Min3mPrice: nd("1000"), NowPrice: nd("1200")})
	if !res.Suspicious {
		t.Fatal("expected suspicious")
	}
	want := []string{"3-month price increase ≥15%"}
	if !reflect.DeepEqual(res.Reasons, want) {
		t.Errorf("expected %v, got %v", want, res.Reasons)
	}
}

func TestEvaluate_EndToEnd(t *testing.T) {
	f := model.PriceFields{Min3mPrice: nd("1000"), NowPrice: nd("1200"), Min30dPrice: nd("1150")}
	m := calculator.Compute(f)

	checks := []struct {
		name string
		got  decimal.NullDecimal
		want string
	}{
		{"delta3m", m.Delta3m, "200"},
		{"pct3m", m.Pct3m, "20"},
		{"delta30d", m.Delta30d, "50"},
		{"pct30d", calculator.Round(m.Pct30d), "4.35"},
	}
	for _, c := range checks {
		if !c.got.Valid || !c.got.Decimal.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("%s: expected %s, got %+v", c.name, c.want, c.got)
		}
	}

	res := Evaluate(f, m, DefaultThresholds())
	want := model.FlagResult{Suspicious: true, Reasons: []string{"3-month price increase ≥15%"}}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("expected %+v, got %+v", want, res)
	}
}

func TestEvaluate_BothRules(t *testing.T) {
	res := evaluate(model.PriceFields{Min3mPrice: nd("1000"), NowPrice: nd("1300"), Min30dPrice: nd("1000")})
	want := []string{"3-month price increase ≥15%", "current price ≥10% above 30-day low"}
	if !reflect.DeepEqual(res.Reasons, want) {
		t.Errorf("expected %v, got %v", want, res.Reasons)
	}
}

func TestEvaluate_Boundaries(t *testing.T) {
	tests := []struct {
		name       string
		fields     model.PriceFields
		suspicious bool
	}{
		{"exactly 15%", model.PriceFields{Min3mPrice: nd("1000"), NowPrice: nd("1150")}, true},
		{"just under 15%", model.PriceFields{Min3mPrice: nd("1000"), NowPrice: nd("1149.99")}, false},
		{"exactly 10% above 30d low", model.PriceFields{NowPrice: nd("1100"), Min30dPrice: nd("1000")}, true},
		{"just under 10% above 30d low", model.PriceFields{NowPrice: nd("1099.99"), Min30dPrice: nd("1000")}, false},
		{"price drop", model.PriceFields{Min3mPrice: nd("1000"), NowPrice: nd("800"), Min30dPrice: nd("900")}, false},
	}
	for _, tt := range tests {
		if got := evaluate(tt.fields).Suspicious; got != tt.suspicious {
			t.Errorf("%s: expected suspicious=%v, got %v", tt.name, tt.suspicious, got)
		}
	}
}

func TestEvaluate_NoEvidence(t *testing.T) {
	tests := []model.PriceFields{
		{},
		{NowPrice: nd("1200")},
		{Min3mPrice: nd("0"), NowPrice: nd("1200")},
		{NowPrice: nd("1200"), Min30dPrice: nd("0")},
	}
	for i, f := range tests {
		res := evaluate(f)
		if res.Suspicious || len(res.Reasons) != 0 {
			t.Errorf("case %d: expected not suspicious, got %+v", i, res)
		}
	}
}

func TestEvaluate_ConfiguredThresholds(t *testing.T) {
	th := Thresholds{Pct3mIncrease: decimal.NewFromInt(25), PctAbove30dLow: decimal.RequireFromString("2.5")}
	f := model.PriceFields{Min3mPrice: nd("1000"), NowPrice: nd("1200"), Min30dPrice: nd("1150")}
	res := Evaluate(f, calculator.Compute(f), th)
	want := []string{"current price ≥2.5% above 30-day low"}
	if !reflect.DeepEqual(res.Reasons, want) {
		t.Errorf("expected %v, got %v", want, res.Reasons)
	}
}
