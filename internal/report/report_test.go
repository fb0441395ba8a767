package report

import (
	"bytes"
	"context"
	"os"
	"reflect"
	"strings"
	"testing"

	"PriceSentinel/internal/calculator"
	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/flagger"
	"PriceSentinel/internal/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func nd(v string) decimal.NullDecimal {
	if v == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func productURL(id string) string {
	return "https://www.prisjakt.no/product.php?p=" + id
}

func record(id, min3m, now string) model.ProductRecord {
	f := model.PriceFields{Min3mPrice: nd(min3m), NowPrice: nd(now)}
	m := calculator.Compute(f)
	return model.ProductRecord{
		Candidate: model.ProductCandidate{URL: productURL(id), SourceCategory: "TV"},
		Title:     "Produkt " + id,
		Fields:    f,
		Metrics:   m,
		Flag:      flagger.Evaluate(f, m, flagger.DefaultThresholds()),
		Status:    model.StatusFor(f),
		Matches:   []model.FieldMatch{},
		Notes:     []string{},
	}
}

func urls(records []model.ProductRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = strings.TrimPrefix(r.Candidate.URL, productURL(""))
	}
	return out
}

func sampleRecords() []model.ProductRecord {
	failed := record("5", "", "")
	failed.Status = model.StatusRenderFailed
	failed.Error = "render https://www.prisjakt.no/product.php?p=5: render timed out"
	return []model.ProductRecord{
		record("6", "", "800"),
		record("2", "5000", "5500"),
		failed,
		record("1", "1000", "1200"),
		record("4", "", ""),
		record("3", "200", "250"),
	}
}

func TestAggregate_PartitionAndOrder(t *testing.T) {
	in := sampleRecords()
	rep := NewAggregator(10, decimal.NewFromInt(500)).Aggregate(in)

	if got, want := urls(rep.Records), []string{"1", "3", "2", "4", "5", "6"}; !reflect.DeepEqual(got, want) {
		t.Errorf("main order: expected %v, got %v", want, got)
	}
	if got, want := urls(rep.Ranked), []string{"1", "2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ranked: expected %v, got %v", want, got)
	}
	if got, want := urls(rep.Unranked), []string{"3", "4", "5", "6"}; !reflect.DeepEqual(got, want) {
		t.Errorf("unranked: expected %v, got %v", want, got)
	}
	if got, want := urls(rep.TopByDelta), []string{"2", "1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("top by delta: expected %v, got %v", want, got)
	}
	if got, want := urls(rep.TopByPct), []string{"1", "2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("top by pct: expected %v, got %v", want, got)
	}

	want := model.RunSummary{Total: 6, Full: 3, Partial: 1, Miss: 1, RenderFailed: 1, Suspicious: 2, Filtered: 1, Ranked: 2}
	if rep.Summary != want {
		t.Errorf("summary: expected %+v, got %+v", want, rep.Summary)
	}
	if rep.Summary.Failed() != 2 {
		t.Errorf("expected 2 failed, got %d", rep.Summary.Failed())
	}

	filtered := rep.Records[1]
	if !filtered.Filtered || filtered.Notes[len(filtered.Notes)-1] != FilteredNote {
		t.Errorf("expected filtered note on p=3, got %+v", filtered.Notes)
	}
	if len(in[5].Notes) != 0 || in[5].Filtered {
		t.Error("expected input records to stay unmodified")
	}
}

func TestAggregate_TopListTiesAndTruncation(t *testing.T) {
	records := []model.ProductRecord{
		record("9", "1000", "1100"),
		record("7", "1000", "1100"),
		record("8", "1000", "1100"),
	}
	rep := NewAggregator(2, decimal.Zero).Aggregate(records)
	if got, want := urls(rep.TopByDelta), []string{"7", "8"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got, want := urls(rep.TopByPct), []string{"7", "8"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAggregate_ZeroBaseline(t *testing.T) {
	rep := NewAggregator(0, decimal.Zero).Aggregate([]model.ProductRecord{record("1", "0", "1200")})
	if len(rep.TopByDelta) != 1 || len(rep.TopByPct) != 0 {
		t.Errorf("expected delta-only ranking, got %d/%d", len(rep.TopByDelta), len(rep.TopByPct))
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rep); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Inf") || strings.Contains(out, "NaN") {
		t.Errorf("expected no Inf/NaN in csv, got %q", out)
	}
}

func TestCSVRow_EmptyCells(t *testing.T) {
	row := csvRow(record("6", "", "800"))
	if len(row) != len(CSVHeader) {
		t.Fatalf("expected %d cells, got %d", len(CSVHeader), len(row))
	}
	want := []string{"Produkt 6", productURL("6"), "TV", "partial", "", "", "800", "", "", "", "", "", "❌", "", ""}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("expected %q, got %q", want, row)
	}

	row = csvRow(record("1", "1000", "1200"))
	if row[4] != "1000" || row[6] != "1200" || row[7] != "200" || row[8] != "20" {
		t.Errorf("unexpected amounts %q", row[4:9])
	}
	if row[13] != "3-month price increase ≥15%" {
		t.Errorf("expected reason, got %q", row[13])
	}
}

func TestWriteMarkdown(t *testing.T) {
	rep := NewAggregator(10, decimal.NewFromInt(500)).Aggregate(sampleRecords())
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, rep); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"- Produkter: 6",
		"feilet: 2",
		"1. **[Produkt 2](" + productURL("2") + ")**: +500 kr (**+10.0%**), nå: 5 500 kr",
		"| [Produkt 1](" + productURL("1") + ")",
		"render timed out",
		FilteredNote,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, out)
		}
	}
}

func TestAlignTable(t *testing.T) {
	lines := alignTable([][]string{{"Nå", "Δ3m"}, {"1 200", "+200"}})
	want := []string{
		"| Nå    | Δ3m  |",
		"| ----- | ---- |",
		"| 1 200 | +200 |",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("expected %q, got %q", want, lines)
	}
}

func TestReports_ByteIdenticalAcrossRuns(t *testing.T) {
	r := collector.NewMockRenderer()
	r.AddText(productURL("1"), "Produkt 1", "Laveste pris 3 mnd 1 000 kr (1. aug 2025)\nLaveste pris nå 1 200 kr\nLaveste pris 30 dager 1 150 kr")
	r.AddText(productURL("2"), "Produkt 2", "Laveste pris nå 900 kr")
	cands := []model.ProductCandidate{{URL: productURL("1"), SourceCategory: "TV"}, {URL: productURL("2"), SourceCategory: "TV"}}

	render := func() (string, string) {
		c := collector.NewCollector(r, flagger.DefaultThresholds(), 0)
		rep := NewAggregator(10, decimal.NewFromInt(500)).Aggregate(c.CollectAll(context.Background(), cands))
		var csvBuf, mdBuf bytes.Buffer
		if err := WriteCSV(&csvBuf, rep); err != nil {
			t.Fatalf("WriteCSV: %v", err)
		}
		if err := WriteMarkdown(&mdBuf, rep); err != nil {
			t.Fatalf("WriteMarkdown: %v", err)
		}
		return csvBuf.String(), mdBuf.String()
	}

	csv1, md1 := render()
	csv2, md2 := render()
	if csv1 != csv2 {
		t.Errorf("expected identical csv\n%s\n%s", csv1, csv2)
	}
	if md1 != md2 {
		t.Errorf("expected identical markdown\n%s\n%s", md1, md2)
	}
	if !strings.Contains(csv1, "01.08.2025") {
		t.Errorf("expected 3-month date in csv, got %s", csv1)
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	rep := NewAggregator(10, decimal.NewFromInt(500)).Aggregate(sampleRecords())

	paths, err := WriteFiles(dir, "prisjakt_rapport", rep)
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %v", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}

	f, err := excelize.OpenFile(paths[2])
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{"Produkter", "Topp Δ3m", "Topp %Δ3m", "Sammendrag"}) {
		t.Errorf("unexpected sheets %v", got)
	}
	header, _ := f.GetCellValue("Produkter", "A1")
	if header != "Produkt" {
		t.Errorf("expected header Produkt, got %q", header)
	}
	// p=1 is the first record; E is the 3-month price
	if v, _ := f.GetCellValue("Produkter", "E2"); v != "1000" {
		t.Errorf("expected 1000 in E2, got %q", v)
	}
	// p=4 is a miss; its price cells stay empty
	if v, _ := f.GetCellValue("Produkter", "G5"); v != "" {
		t.Errorf("expected empty cell for undefined price, got %q", v)
	}

	if _, err := WriteFiles(dir, " ", rep); err == nil {
		t.Error("expected error for empty prefix")
	}
}
