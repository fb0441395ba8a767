package report

import (
	"fmt"
	"io"
	"strings"

	"PriceSentinel/internal/model"

	"github.com/mattn/go-runewidth"
)

var mdHeader = []string{
	"Produkt", "Laveste 3 mnd (kr)", "Dato (3 mnd)", "Nå (kr)", "Δ3m (kr)", "%Δ3m",
	"Min30 (kr)", "Δ30d (kr)", "%Δ30d", "Mistenkelig", "Grunner",
}

// WriteMarkdown writes the summary, the ranked table, both top-lists and the
// unranked diagnostics.
func WriteMarkdown(w io.Writer, rep *Report) error {
	var b strings.Builder

	b.WriteString("# Prisrapport\n\n")
	b.WriteString("## Sammendrag\n\n")
	for _, line := range SummaryLines(rep.Summary) {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\n## Produkter\n\n")
	if len(rep.Ranked) == 0 {
		b.WriteString("Ingen rangerte produkter.\n")
	} else {
		rows := [][]string{mdHeader}
		for _, r := range rep.Ranked {
			rows = append(rows, mdRow(r))
		}
		for _, line := range alignTable(rows) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	writeTopList(&b, "Toppliste: Størst absolutt økning (3 mnd)", rep.TopByDelta)
	writeTopList(&b, "Toppliste: Størst prosentvis økning (3 mnd)", rep.TopByPct)

	b.WriteString("\n## Ikke rangert\n\n")
	if len(rep.Unranked) == 0 {
		b.WriteString("Ingen.\n")
	}
	for _, r := range rep.Unranked {
		detail := joinNotes(r.Notes)
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Fprintf(&b, "- [%s](%s): %s", mdEscape(r.Label()), r.Candidate.URL, r.Status)
		if detail != "" {
			fmt.Fprintf(&b, ", %s", mdEscape(detail))
		}
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// SummaryLines renders the run counts, one per line.
func SummaryLines(s model.RunSummary) []string {
	return []string{
		fmt.Sprintf("Produkter: %d", s.Total),
		fmt.Sprintf("Fullstendige: %d, delvise: %d, feilet: %d (ingen treff %d, lastefeil %d)",
			s.Full, s.Partial, s.Failed(), s.Miss, s.RenderFailed),
		fmt.Sprintf("Mistenkelige: %d", s.Suspicious),
		fmt.Sprintf("Rangert: %d, filtrert bort: %d", s.Ranked, s.Filtered),
	}
}

func mdRow(r model.ProductRecord) []string {
	return []string{
		fmt.Sprintf("[%s](%s)", mdEscape(r.Label()), r.Candidate.URL),
		FormatMoney(r.Fields.Min3mPrice),
		dateCell(r.Fields.Min3mDate),
		FormatMoney(r.Fields.NowPrice),
		FormatSignedMoney(r.Metrics.Delta3m),
		FormatPercent(r.Metrics.Pct3m),
		FormatMoney(r.Fields.Min30dPrice),
		FormatSignedMoney(r.Metrics.Delta30d),
		FormatPercent(r.Metrics.Pct30d),
		suspiciousMark(r.Flag.Suspicious),
		mdEscape(strings.Join(r.Flag.Reasons, "; ")),
	}
}

func writeTopList(b *strings.Builder, title string, list []model.ProductRecord) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	if len(list) == 0 {
		b.WriteString("Ingen.\n")
		return
	}
	for i, r := range list {
		fmt.Fprintf(b, "%d. **[%s](%s)**: %s kr", i+1, mdEscape(r.Label()), r.Candidate.URL, FormatSignedMoney(r.Metrics.Delta3m))
		if r.Metrics.Pct3m.Valid {
			fmt.Fprintf(b, " (**%s**)", FormatPercent(r.Metrics.Pct3m))
		}
		fmt.Fprintf(b, ", nå: %s kr\n", FormatMoney(r.Fields.NowPrice))
	}
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// alignTable pads every cell to its column's display width. The first row is
// the header; a separator row is inserted after it.
func alignTable(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	line := func(cells []string) string {
		var sb strings.Builder
		sb.WriteString("|")
		for i, w := range widths {
			content := ""
			if i < len(cells) {
				content = cells[i]
			}
			sb.WriteString(" ")
			sb.WriteString(content)
			if pad := w - runewidth.StringWidth(content); pad > 0 {
				sb.WriteString(strings.Repeat(" ", pad))
			}
			sb.WriteString(" |")
		}
		return sb.String()
	}

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}

	out := []string{line(rows[0]), line(sep)}
	for _, row := range rows[1:] {
		out = append(out, line(row))
	}
	return out
}
