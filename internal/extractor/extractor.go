// Package extractor reads price-history fields out of normalized page text.
package extractor

import (
	"regexp"
	"strings"

	"PriceSentinel/internal/model"
	"PriceSentinel/internal/normalizer"

	"github.com/shopspring/decimal"
)

var (
	reSpanDate   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	reSpanAmount = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// a value line starts with the amount, the date or a currency prefix
	reValueLine = regexp.MustCompile(`(?i)^(?:kr\.?\s*|nok\s*|\(\s*)?\d`)
)

// Extractor applies pattern groups to normalized text.
type Extractor struct {
	Groups []Group
}

// New returns an Extractor with the default Norwegian groups.
func New() *Extractor {
	return &Extractor{Groups: DefaultGroups()}
}

// hit is a matched value for one category.
type hit struct {
	amount decimal.Decimal
	date   string
	raw    string
}

// Extract returns the fields found in text together with the variant that
// produced each one. Fields that no variant matched stay undefined.
func (e *Extractor) Extract(text string) (model.PriceFields, []model.FieldMatch) {
	var fields model.PriceFields
	var matches []model.FieldMatch

	for _, g := range e.Groups {
		v, h, ok := matchGroup(g, text)
		if !ok {
			continue
		}
		matches = append(matches, model.FieldMatch{Category: g.Category, Variant: v.Name, Raw: h.raw})
		switch g.Category {
		case CategoryMin3m:
			fields.Min3mPrice = decimal.NewNullDecimal(h.amount)
			if h.date != "" {
				if t, ok := normalizer.ParseDate(h.date); ok {
					fields.Min3mDate.Time = t
					fields.Min3mDate.Valid = true
				}
			}
		case CategoryNow:
			fields.NowPrice = decimal.NewNullDecimal(h.amount)
		case CategoryMin30d:
			fields.Min30dPrice = decimal.NewNullDecimal(h.amount)
		}
	}
	return fields, matches
}

// matchGroup tries variants in priority order and stops at the first label
// occurrence that is followed by an amount.
func matchGroup(g Group, text string) (Variant, hit, bool) {
	for _, v := range g.Variants {
		for _, loc := range v.Label.FindAllStringIndex(text, -1) {
			if h, ok := readSpan(text, loc[0], loc[1], g.WithDate); ok {
				return v, h, true
			}
		}
	}
	return Variant{}, hit{}, false
}

// readSpan reads the value after a label: the rest of the label's line, or
// the next line when the rest holds no amount and the next line is a value
// line. Dates are taken out before the
// amount is read so either may come first.
func readSpan(text string, start, end int, withDate bool) (hit, bool) {
	rest, next := splitLine(text[end:])
	spans := []string{rest}
	if reValueLine.MatchString(next) {
		spans = append(spans, next)
	}
	for _, span := range spans {
		date := ""
		clean := span
		if d := reSpanDate.FindString(span); d != "" {
			date = d
			clean = reSpanDate.ReplaceAllString(span, " ")
		}
		m := reSpanAmount.FindString(clean)
		if m == "" {
			continue
		}
		amount, ok := normalizer.ParseAmount(m)
		if !ok {
			continue
		}
		if !withDate {
			date = ""
		}
		raw := strings.TrimSpace(text[start:end] + " " + span)
		return hit{amount: amount, date: date, raw: raw}, true
	}
	return hit{}, false
}

// splitLine returns the remainder of the current line and the line after it.
func splitLine(s string) (string, string) {
	i := strings.IndexByte(s, '\n')
	if i < 0 {
		return s, ""
	}
	rest := s[:i]
	s = s[i+1:]
	if j := strings.IndexByte(s, '\n'); j >= 0 {
		s = s[:j]
	}
	return rest, s
}
