// Package report ranks product records and writes CSV, Markdown and XLSX
// reports.
package report

import (
	"sort"

	"PriceSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// FilteredNote is appended to records whose current price is below the minimum.
const FilteredNote = "filtered (< min price)"

// DefaultTopN is the top-list length when none is configured.
const DefaultTopN = 10

// Report is the aggregated view of one run.
type Report struct {
	// Records holds every record in main table order.
	Records    []model.ProductRecord
	Ranked     []model.ProductRecord
	Unranked   []model.ProductRecord
	TopByDelta []model.ProductRecord
	TopByPct   []model.ProductRecord
	Summary    model.RunSummary
}

// Aggregator partitions records and builds the top-lists.
type Aggregator struct {
	TopN        int
	MinNowPrice decimal.Decimal
}

// NewAggregator creates an Aggregator. A non-positive topN uses DefaultTopN.
func NewAggregator(topN int, minNowPrice decimal.Decimal) *Aggregator {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Aggregator{TopN: topN, MinNowPrice: minNowPrice}
}

// Aggregate applies the price filter, orders the records and computes the
// summary. The input slice is not modified.
func (a *Aggregator) Aggregate(records []model.ProductRecord) *Report {
	rep := &Report{
		Records:    make([]model.ProductRecord, 0, len(records)),
		Ranked:     []model.ProductRecord{},
		Unranked:   []model.ProductRecord{},
		TopByDelta: []model.ProductRecord{},
		TopByPct:   []model.ProductRecord{},
	}

	for _, r := range records {
		notes := make([]string, len(r.Notes), len(r.Notes)+1)
		copy(notes, r.Notes)
		r.Notes = notes
		r.Filtered = r.Fields.NowPrice.Valid && r.Fields.NowPrice.Decimal.LessThan(a.MinNowPrice)
		if r.Filtered {
			r.Notes = append(r.Notes, FilteredNote)
		}
		rep.Records = append(rep.Records, r)
	}

	sort.SliceStable(rep.Records, func(i, j int) bool {
		return mainLess(rep.Records[i], rep.Records[j])
	})

	for _, r := range rep.Records {
		count(&rep.Summary, r)
		if Rankable(r) {
			rep.Ranked = append(rep.Ranked, r)
		} else {
			rep.Unranked = append(rep.Unranked, r)
		}
	}

	rep.TopByDelta = a.top(rep.Ranked, func(r model.ProductRecord) decimal.NullDecimal { return r.Metrics.Delta3m })
	rep.TopByPct = a.top(rep.Ranked, func(r model.ProductRecord) decimal.NullDecimal { return r.Metrics.Pct3m })
	return rep
}

// Rankable reports whether r can appear in the ranked table and top-lists.
func Rankable(r model.ProductRecord) bool {
	return r.Fields.NowPrice.Valid && r.Metrics.Delta3m.Valid && !r.Filtered
}

func count(s *model.RunSummary, r model.ProductRecord) {
	s.Total++
	switch r.Status {
	case model.StatusFull:
		s.Full++
	case model.StatusPartial:
		s.Partial++
	case model.StatusMiss:
		s.Miss++
	case model.StatusRenderFailed:
		s.RenderFailed++
	}
	if r.Flag.Suspicious {
		s.Suspicious++
	}
	if r.Filtered {
		s.Filtered++
	}
	if Rankable(r) {
		s.Ranked++
	}
}

func (a *Aggregator) top(ranked []model.ProductRecord, key func(model.ProductRecord) decimal.NullDecimal) []model.ProductRecord {
	out := make([]model.ProductRecord, 0, len(ranked))
	for _, r := range ranked {
		if key(r).Valid {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := cmpDesc(key(out[i]), key(out[j])); c != 0 {
			return c < 0
		}
		return out[i].Candidate.URL < out[j].Candidate.URL
	})
	if len(out) > a.TopN {
		out = out[:a.TopN]
	}
	return out
}

// mainLess orders suspicious records first, then by Delta3m descending with
// undefined values last, then by URL.
func mainLess(a, b model.ProductRecord) bool {
	if a.Flag.Suspicious != b.Flag.Suspicious {
		return a.Flag.Suspicious
	}
	if c := cmpDesc(a.Metrics.Delta3m, b.Metrics.Delta3m); c != 0 {
		return c < 0
	}
	return a.Candidate.URL < b.Candidate.URL
}

// cmpDesc compares for descending order; undefined sorts after any value.
func cmpDesc(a, b decimal.NullDecimal) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	}
	return -a.Decimal.Cmp(b.Decimal)
}
