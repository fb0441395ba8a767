package collector

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"PriceSentinel/internal/calculator"
	"PriceSentinel/internal/extractor"
	"PriceSentinel/internal/flagger"
	"PriceSentinel/internal/model"
	"PriceSentinel/internal/normalizer"

	"github.com/shopspring/decimal"
)

var reTitleSuffix = regexp.MustCompile(`\s*[–|-]\s*Prisjakt.*$`)

// Collector runs the per-product pipeline: render, normalize, extract,
// compute and flag.
type Collector struct {
	Renderer   Renderer
	Extractor  *extractor.Extractor
	Thresholds flagger.Thresholds
	Delay      time.Duration
}

// NewCollector creates a new Collector with the default extractor.
func NewCollector(renderer Renderer, th flagger.Thresholds, delay time.Duration) *Collector {
	return &Collector{
		Renderer:   renderer,
		Extractor:  extractor.New(),
		Thresholds: th,
		Delay:      delay,
	}
}

// CollectProduct builds the record for one candidate. Failures are recorded
// on the returned record, never returned.
func (c *Collector) CollectProduct(ctx context.Context, cand model.ProductCandidate) model.ProductRecord {
	rec := model.ProductRecord{
		Candidate: cand,
		Matches:   []model.FieldMatch{},
		Flag:      model.FlagResult{Reasons: []string{}},
		Notes:     []string{},
	}

	page, err := c.Renderer.Render(ctx, cand.URL)
	if err != nil {
		rec.Status = model.StatusRenderFailed
		rec.Error = err.Error()
		rec.Notes = append(rec.Notes, "render failed")
		return rec
	}

	rec.Title = CleanTitle(page.Title)
	return c.Evaluate(rec, page.Text)
}

// Evaluate fills rec from rendered page text. It is deterministic: the same
// text always yields the same record.
func (c *Collector) Evaluate(rec model.ProductRecord, text string) model.ProductRecord {
	fields, matches := c.Extractor.Extract(normalizer.Normalize(text))
	rec.Fields = fields
	if matches != nil {
		rec.Matches = matches
	}
	rec.Status = model.StatusFor(fields)
	rec.Metrics = calculator.Compute(fields)
	rec.Flag = flagger.Evaluate(fields, rec.Metrics, c.Thresholds)
	rec.Notes = append(rec.Notes, FieldNotes(fields)...)
	return rec
}

// CollectAll processes candidates in order, pausing between products.
// It stops early only when ctx is cancelled.
func (c *Collector) CollectAll(ctx context.Context, cands []model.ProductCandidate) []model.ProductRecord {
	records := make([]model.ProductRecord, 0, len(cands))
	for i, cand := range cands {
		if ctx.Err() != nil {
			log.Printf("[WARN] Collection cancelled after %d/%d products", i, len(cands))
			break
		}
		if i > 0 && c.Delay > 0 {
			select {
			case <-ctx.Done():
				log.Printf("[WARN] Collection cancelled after %d/%d products", i, len(cands))
				return records
			case <-time.After(c.Delay):
			}
		}

		rec := c.CollectProduct(ctx, cand)
		switch rec.Status {
		case model.StatusRenderFailed:
			log.Printf("[WARN] [%d/%d] %s: %s", i+1, len(cands), cand.URL, rec.Error)
		default:
			log.Printf("[INFO] [%d/%d] %s: %s, suspicious=%v", i+1, len(cands), cand.URL, rec.Status, rec.Flag.Suspicious)
		}
		records = append(records, rec)
	}
	return records
}

// CleanTitle strips the site suffix from a page title.
func CleanTitle(title string) string {
	return strings.TrimSpace(reTitleSuffix.ReplaceAllString(strings.TrimSpace(title), ""))
}

// FieldNotes describes the extracted fields in the report's notes column.
func FieldNotes(f model.PriceFields) []string {
	if f.Empty() {
		return []string{"no price fields found"}
	}
	var notes []string
	if f.Min3mPrice.Valid {
		n := "Laveste 3 mnd: " + money(f.Min3mPrice.Decimal)
		if f.Min3mDate.Valid {
			n += fmt.Sprintf(" (%s)", f.Min3mDate.Time.Format("02.01.2006"))
		}
		notes = append(notes, n)
	} else {
		notes = append(notes, "Laveste 3 mnd: ikke funnet")
	}
	if f.NowPrice.Valid {
		notes = append(notes, "Nå: "+money(f.NowPrice.Decimal))
	}
	if f.Min30dPrice.Valid {
		notes = append(notes, "Min30: "+money(f.Min30dPrice.Decimal))
	}
	return notes
}

func money(d decimal.Decimal) string {
	return d.Round(2).String()
}
