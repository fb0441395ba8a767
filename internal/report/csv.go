package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"PriceSentinel/internal/model"
)

// CSVHeader is the column order of the CSV report.
var CSVHeader = []string{
	"Produkt", "URL", "Kategori", "Status",
	"Laveste 3 mnd (kr)", "Dato (3 mnd)", "Nå (kr)", "Δ3m (kr)", "%Δ3m",
	"Min30 (kr)", "Δ30d (kr)", "%Δ30d",
	"Mistenkelig", "Grunner", "Notater",
}

func csvRow(r model.ProductRecord) []string {
	return []string{
		r.Label(),
		r.Candidate.URL,
		r.Candidate.SourceCategory,
		string(r.Status),
		amountCell(r.Fields.Min3mPrice),
		dateCell(r.Fields.Min3mDate),
		amountCell(r.Fields.NowPrice),
		amountCell(r.Metrics.Delta3m),
		amountCell(r.Metrics.Pct3m),
		amountCell(r.Fields.Min30dPrice),
		amountCell(r.Metrics.Delta30d),
		amountCell(r.Metrics.Pct30d),
		suspiciousMark(r.Flag.Suspicious),
		strings.Join(r.Flag.Reasons, "; "),
		joinNotes(r.Notes),
	}
}

// WriteCSV writes every record in main table order.
func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rep.Records {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
