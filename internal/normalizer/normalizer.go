// Package normalizer turns rendered page text into a canonical form for
// pattern matching: unified whitespace, dot-decimal amounts and ISO dates.
package normalizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// DateLayout is the canonical date form written into normalized text.
const DateLayout = "2006-01-02"

// norwegianMonths maps the first three letters of a month name to its number.
var norwegianMonths = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"mai": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"okt": time.October,
	"nov": time.November,
	"des": time.December,
}

var (
	spaceReplacer = strings.NewReplacer(
		"\u00a0", " ",
		"\u202f", " ",
		"\u2009", " ",
		"\u2007", " ",
		"\t", " ",
		"\r\n", "\n",
		"\r", "\n",
	)
	reSpaces = regexp.MustCompile(` {2,}`)

	reNamedDate   = regexp.MustCompile(`(?i)\b(\d{1,2})\.?\s*(jan|feb|mar|apr|mai|jun|jul|aug|sep|okt|nov|des)[a-zæøå]*\.?\s*(\d{4})\b`)
	reNumericDate = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{4}|\d{2})\b`)
	reISODate     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

	reGrouped      = regexp.MustCompile(`\b\d{1,3}(?:[ .]\d{3})+\b(?:,\d{1,2}\b)?(?:,-)?`)
	reCommaDecimal = regexp.MustCompile(`\b\d+,\d{1,2}\b`)
	reDashSuffix   = regexp.MustCompile(`\b(\d+),-`)
	reAmountToken  = regexp.MustCompile(`\d[\d .]*(?:,\d{1,2})?`)
)

// Normalize cleans a raw text blob. Newlines are kept as line boundaries,
// dates become YYYY-MM-DD and grouped or comma-decimal amounts become plain
// dot-decimal numbers. Substrings that do not parse are left as they are.
func Normalize(raw string) string {
	s := norm.NFC.String(raw)
	s = spaceReplacer.Replace(s)

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		line = canonicalDates(line)
		line = canonicalAmounts(line)
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func canonicalDates(line string) string {
	line = reNamedDate.ReplaceAllStringFunc(line, func(m string) string {
		sub := reNamedDate.FindStringSubmatch(m)
		day, _ := strconv.Atoi(sub[1])
		year, _ := strconv.Atoi(sub[3])
		month := norwegianMonths[strings.ToLower(sub[2])]
		if t, ok := makeDate(year, month, day); ok {
			return t.Format(DateLayout)
		}
		return m
	})
	return reNumericDate.ReplaceAllStringFunc(line, func(m string) string {
		sub := reNumericDate.FindStringSubmatch(m)
		day, _ := strconv.Atoi(sub[1])
		month, _ := strconv.Atoi(sub[2])
		year, _ := strconv.Atoi(sub[3])
		if len(sub[3]) == 2 {
			year += 2000
		}
		if t, ok := makeDate(year, time.Month(month), day); ok {
			return t.Format(DateLayout)
		}
		return m
	})
}

func canonicalAmounts(line string) string {
	line = replaceGrouped(line)
	line = reCommaDecimal.ReplaceAllStringFunc(line, func(m string) string {
		return strings.Replace(m, ",", ".", 1)
	})
	return reDashSuffix.ReplaceAllString(line, "$1")
}

// replaceGrouped rewrites grouped amounts. A match glued to a date or another
// number ("2025-08-01 499") is left alone so the day and the amount stay apart.
func replaceGrouped(line string) string {
	var b strings.Builder
	last := 0
	for _, loc := range reGrouped.FindAllStringIndex(line, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && strings.IndexByte("-./", line[start-1]) >= 0 {
			continue
		}
		m := line[start:end]
		b.WriteString(line[last:start])
		if d, ok := ParseAmount(m); ok {
			b.WriteString(formatAmount(m, d))
		} else {
			b.WriteString(m)
		}
		last = end
	}
	b.WriteString(line[last:])
	return b.String()
}

// formatAmount keeps the number of decimals written in the source.
func formatAmount(raw string, d decimal.Decimal) string {
	raw = strings.TrimSuffix(raw, ",-")
	if i := strings.LastIndex(raw, ","); i >= 0 {
		return d.StringFixed(int32(len(raw) - i - 1))
	}
	return d.String()
}

func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// ParseAmount reads a price token in raw ("1 299,00", "12.990,-") or
// canonical ("1299.00") form.
func ParseAmount(token string) (decimal.Decimal, bool) {
	token = strings.TrimSpace(spaceReplacer.Replace(token))
	m := reAmountToken.FindString(token)
	if m == "" {
		return decimal.Decimal{}, false
	}
	m = strings.TrimSpace(m)

	var digits string
	switch {
	case strings.Contains(m, ","):
		// comma is the decimal mark, spaces and dots group thousands
		digits = strings.NewReplacer(" ", "", ".", "").Replace(m)
		digits = strings.Replace(digits, ",", ".", 1)
	case isDotGrouped(m):
		digits = strings.NewReplacer(" ", "", ".", "").Replace(m)
	default:
		digits = strings.ReplaceAll(m, " ", "")
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// isDotGrouped reports whether dots in s separate thousand groups rather than
// mark decimals, e.g. "12.990" or "1.299.000".
func isDotGrouped(s string) bool {
	s = strings.ReplaceAll(s, " ", "")
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return len(parts[0]) >= 1 && len(parts[0]) <= 3
}

// ParseDate reads a date in canonical ISO form or any of the recognised
// Norwegian forms.
func ParseDate(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if sub := reISODate.FindStringSubmatch(token); sub != nil {
		y, _ := strconv.Atoi(sub[1])
		m, _ := strconv.Atoi(sub[2])
		d, _ := strconv.Atoi(sub[3])
		return makeDate(y, time.Month(m), d)
	}
	canon := canonicalDates(strings.TrimSpace(spaceReplacer.Replace(token)))
	if sub := reISODate.FindStringSubmatch(canon); sub != nil {
		return ParseDate(canon)
	}
	return time.Time{}, false
}

// FoldKey folds a category keyword into a lookup key: Norwegian letters are
// transliterated and everything but ASCII letters and digits is dropped.
func FoldKey(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	s = strings.NewReplacer("æ", "ae", "ø", "o", "å", "a").Replace(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
