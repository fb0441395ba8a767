package report

import (
	"fmt"

	"PriceSentinel/internal/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	sheetProducts = "Produkter"
	sheetTopDelta = "Topp Δ3m"
	sheetTopPct   = "Topp %Δ3m"
	sheetSummary  = "Sammendrag"
	defaultSheet  = "Sheet1"
	wideColWidth  = 30
)

var topHeader = []string{"#", "Produkt", "URL", "Nå (kr)", "Δ3m (kr)", "%Δ3m", "Mistenkelig"}

// number returns a float cell value, or nil so the cell stays empty.
func number(v decimal.NullDecimal) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Decimal.Round(2).InexactFloat64()
}

func headerRow(cols []string) []interface{} {
	row := make([]interface{}, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

// WriteXLSX writes the workbook to path.
func WriteXLSX(path string, rep *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, sheetProducts); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetTopDelta, sheetTopPct, sheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	rows := [][]interface{}{headerRow(CSVHeader)}
	for _, r := range rep.Records {
		rows = append(rows, []interface{}{
			r.Label(),
			r.Candidate.URL,
			r.Candidate.SourceCategory,
			string(r.Status),
			number(r.Fields.Min3mPrice),
			dateCell(r.Fields.Min3mDate),
			number(r.Fields.NowPrice),
			number(r.Metrics.Delta3m),
			number(r.Metrics.Pct3m),
			number(r.Fields.Min30dPrice),
			number(r.Metrics.Delta30d),
			number(r.Metrics.Pct30d),
			suspiciousMark(r.Flag.Suspicious),
			joinNotes(r.Flag.Reasons),
			joinNotes(r.Notes),
		})
	}
	if err := writeRows(f, sheetProducts, rows, bold); err != nil {
		return err
	}

	if err := writeRows(f, sheetTopDelta, topRows(rep.TopByDelta), bold); err != nil {
		return err
	}
	if err := writeRows(f, sheetTopPct, topRows(rep.TopByPct), bold); err != nil {
		return err
	}

	s := rep.Summary
	summary := [][]interface{}{
		{"Nøkkel", "Antall"},
		{"Produkter", s.Total},
		{"Fullstendige", s.Full},
		{"Delvise", s.Partial},
		{"Ingen treff", s.Miss},
		{"Lastefeil", s.RenderFailed},
		{"Feilet", s.Failed()},
		{"Mistenkelige", s.Suspicious},
		{"Filtrert bort", s.Filtered},
		{"Rangert", s.Ranked},
	}
	if err := writeRows(f, sheetSummary, summary, bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}

func topRows(list []model.ProductRecord) [][]interface{} {
	rows := [][]interface{}{headerRow(topHeader)}
	for i, r := range list {
		rows = append(rows, []interface{}{
			i + 1,
			r.Label(),
			r.Candidate.URL,
			number(r.Fields.NowPrice),
			number(r.Metrics.Delta3m),
			number(r.Metrics.Pct3m),
			suspiciousMark(r.Flag.Suspicious),
		})
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if sheet != sheetSummary {
		if err := f.SetColWidth(sheet, "A", "B", wideColWidth); err != nil {
			return fmt.Errorf("set %s column width: %w", sheet, err)
		}
	}
	return nil
}
