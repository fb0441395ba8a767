package model

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// CategoryManual marks candidates supplied through an explicit URL list.
const CategoryManual = "manual"

// ProductCandidate is a product page found by discovery or given explicitly.
type ProductCandidate struct {
	URL            string `json:"url"`
	SourceCategory string `json:"source_category"`
}

// Page is the rendered form of a URL.
type Page struct {
	URL      string
	FinalURL string
	Title    string
	Text     string
	HTML     string
}

// PriceFields holds the price-history facts read from a product page.
// Every field is optional; an invalid value means the page did not show it.
type PriceFields struct {
	Min3mPrice  decimal.NullDecimal `json:"min_3m_price"`
	Min3mDate   sql.NullTime        `json:"min_3m_date"`
	NowPrice    decimal.NullDecimal `json:"now_price"`
	Min30dPrice decimal.NullDecimal `json:"min_30d_price"`
}

// Empty reports whether no field was extracted.
func (f PriceFields) Empty() bool {
	return !f.Min3mPrice.Valid && !f.Min3mDate.Valid && !f.NowPrice.Valid && !f.Min30dPrice.Valid
}

// FieldMatch records which pattern variant produced a field and the text it matched.
type FieldMatch struct {
	Category string `json:"category"`
	Variant  string `json:"variant"`
	Raw      string `json:"raw"`
}

// Metrics are derived from PriceFields. Undefined inputs give undefined outputs.
type Metrics struct {
	Delta3m  decimal.NullDecimal `json:"delta_3m"`
	Pct3m    decimal.NullDecimal `json:"pct_3m"`
	Delta30d decimal.NullDecimal `json:"delta_30d"`
	Pct30d   decimal.NullDecimal `json:"pct_30d"`
}

// FlagResult is the outcome of the anomaly rules.
type FlagResult struct {
	Suspicious bool     `json:"suspicious"`
	Reasons    []string `json:"reasons"`
}

// ExtractionStatus describes how much of a product page could be read.
type ExtractionStatus string

const (
	StatusFull         ExtractionStatus = "full"
	StatusPartial      ExtractionStatus = "partial"
	StatusMiss         ExtractionStatus = "miss"
	StatusRenderFailed ExtractionStatus = "render_failed"
)

// ProductRecord is the per-product result handed to reporting.
type ProductRecord struct {
	Candidate ProductCandidate `json:"candidate"`
	Title     string           `json:"title"`
	Fields    PriceFields      `json:"fields"`
	Matches   []FieldMatch     `json:"matches"`
	Metrics   Metrics          `json:"metrics"`
	Flag      FlagResult       `json:"flag"`
	Status    ExtractionStatus `json:"status"`
	Filtered  bool             `json:"filtered"`
	Error     string           `json:"error,omitempty"`
	Notes     []string         `json:"notes"`
}

// Label returns the title, falling back to the URL.
func (r *ProductRecord) Label() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Candidate.URL
}

// StatusFor classifies extracted fields.
func StatusFor(f PriceFields) ExtractionStatus {
	switch {
	case f.NowPrice.Valid && f.Min3mPrice.Valid:
		return StatusFull
	case f.Empty():
		return StatusMiss
	default:
		return StatusPartial
	}
}
