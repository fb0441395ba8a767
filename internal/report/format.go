package report

import (
	"database/sql"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const dateLayout = "02.01.2006"

// amountCell renders a value for machine-readable output: at most two
// decimals, dot separator, empty when undefined.
func amountCell(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.Round(2).String()
}

func dateCell(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(dateLayout)
}

// FormatMoney renders whole kroner with space thousands grouping.
func FormatMoney(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return humanize.FormatFloat("# ###.", v.Decimal.Round(0).InexactFloat64())
}

// FormatSignedMoney is FormatMoney with a plus sign on increases.
func FormatSignedMoney(v decimal.NullDecimal) string {
	s := FormatMoney(v)
	if s != "" && v.Decimal.Round(0).IsPositive() {
		return "+" + s
	}
	return s
}

// FormatPercent renders a signed percentage with one decimal.
func FormatPercent(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	s := v.Decimal.StringFixed(1) + "%"
	if v.Decimal.IsPositive() {
		return "+" + s
	}
	return s
}

func suspiciousMark(s bool) string {
	if s {
		return "✅"
	}
	return "❌"
}

func joinNotes(notes []string) string {
	return strings.Join(notes, "; ")
}
