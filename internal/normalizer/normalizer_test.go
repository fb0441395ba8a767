package normalizer

import (
	"testing"
	"time"
)

func TestNormalize_Amounts(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1 299,00", "1299.00"},
		{"1 299,00 kr", "1299.00 kr"},
		{"12.990,-", "12990"},
		{"499,-", "499"},
		{"Pris 1 299 kr", "Pris 1299 kr"},
		{"1.299.000", "1299000"},
		{"12,5 %", "12.5 %"},
		{"4990", "4990"},
		{"1299.00", "1299.00"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestNormalize_Dates(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1. aug 2025", "2025-08-01"},
		{"1 aug. 2025", "2025-08-01"},
		{"15 august 2025", "2025-08-15"},
		{"3. Mai 2024", "2024-05-03"},
		{"24. des 2023", "2023-12-24"},
		{"01.08.2025", "2025-08-01"},
		{"1/8/25", "2025-08-01"},
		{"31.02.2025", "31.02.2025"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestNormalize_Whitespace(t *testing.T) {
	in := "  Laveste   pris\t3 mnd \r\n\r\n\n  4 990 kr  \r\nNå 5 490,-"
	want := "Laveste pris 3 mnd\n4990 kr\nNå 5490"
	if got := Normalize(in); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_AmountNextToDate(t *testing.T) {
	got := Normalize("Laveste pris 3 mnd: 1 299 1. aug 2025")
	want := "Laveste pris 3 mnd: 1299 2025-08-01"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_DateThenSmallAmount(t *testing.T) {
	tests := map[string]string{
		"Laveste pris 3 mnd: 01.08.2025 499 kr":  "Laveste pris 3 mnd: 2025-08-01 499 kr",
		"Laveste pris 3 mnd 1. aug 2025 799,-":   "Laveste pris 3 mnd 2025-08-01 799",
		"Laveste pris 3 mnd 2025-08-01 1 299 kr": "Laveste pris 3 mnd 2025-08-01 1299 kr",
		"Laveste pris 3 mnd 15.07.2025 12.990,-": "Laveste pris 3 mnd 2025-07-15 12990",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := "Laveste pris 3 mnd 4 990,- (1. aug 2025)\nDagens laveste pris 5 490 kr"
	once := Normalize(in)
	if twice := Normalize(once); twice != once {
		t.Errorf("expected stable output, got %q then %q", once, twice)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1 299,00", "1299", true},
		{"12.990", "12990", true},
		{"1299.50", "1299.5", true},
		{"kr 499,-", "499", true},
		{"ingen pris", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseAmount(%q): expected ok=%v, got %v", tt.in, tt.ok, ok)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("ParseAmount(%q): expected %s, got %s", tt.in, tt.want, got.String())
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-08-01", "1. aug 2025", "01.08.2025", "1-8-25"} {
		got, ok := ParseDate(in)
		if !ok {
			t.Errorf("ParseDate(%q): expected ok", in)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q): expected %v, got %v", in, want, got)
		}
	}
	if _, ok := ParseDate("2025-13-01"); ok {
		t.Error("expected invalid month to fail")
	}
	if _, ok := ParseDate("i går"); ok {
		t.Error("expected free text to fail")
	}
}

func TestFoldKey(t *testing.T) {
	tests := map[string]string{
		"Bærbare PC-er":   "baerbarepcer",
		"Robotstøvsugere": "robotstovsugere",
		"TV":              "tv",
		"Smart klokker":   "smartklokker",
	}
	for in, want := range tests {
		if got := FoldKey(in); got != want {
			t.Errorf("FoldKey(%q): expected %q, got %q", in, want, got)
		}
	}
}
