package notifier

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"PriceSentinel/internal/model"
	"PriceSentinel/internal/report"
)

// digestEntries caps the suspicious products listed in a digest.
const digestEntries = 5

// FormatRunDigest formats a finished scan into a Telegram message.
func FormatRunDigest(run *model.RunInfo, rep *report.Report, files []string) string {
	var b strings.Builder
	s := rep.Summary

	b.WriteString(fmt.Sprintf("🔎 <b>PriceSentinel prisrapport</b> | %s\n\n", run.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Produkter: %d (fullstendige %d, delvise %d, feilet %d)\n", s.Total, s.Full, s.Partial, s.Failed()))
	b.WriteString(fmt.Sprintf("Mistenkelige: %d | Rangert: %d | Filtrert bort: %d\n", s.Suspicious, s.Ranked, s.Filtered))

	var suspicious []model.ProductRecord
	for _, r := range rep.Records {
		if r.Flag.Suspicious && !r.Filtered {
			suspicious = append(suspicious, r)
		}
	}
	if len(suspicious) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ <b>Mistenkelige prisøkninger</b> (%d)\n", len(suspicious)))
		for i, r := range suspicious {
			if i == digestEntries {
				b.WriteString(fmt.Sprintf("… og %d til\n", len(suspicious)-digestEntries))
				break
			}
			b.WriteString(fmt.Sprintf("%d. <a href=\"%s\">%s</a>\n", i+1, html.EscapeString(r.Candidate.URL), html.EscapeString(r.Label())))
			line := fmt.Sprintf("   nå %s kr", report.FormatMoney(r.Fields.NowPrice))
			if r.Metrics.Delta3m.Valid {
				line += fmt.Sprintf(", %s kr", report.FormatSignedMoney(r.Metrics.Delta3m))
			}
			if r.Metrics.Pct3m.Valid {
				line += fmt.Sprintf(" (%s)", report.FormatPercent(r.Metrics.Pct3m))
			}
			b.WriteString(line + "\n")
			b.WriteString(fmt.Sprintf("   %s\n", html.EscapeString(strings.Join(r.Flag.Reasons, "; "))))
		}
	} else {
		b.WriteString("\n✅ Ingen mistenkelige prisøkninger\n")
	}

	if len(files) > 0 {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = filepath.Base(f)
		}
		b.WriteString(fmt.Sprintf("\n📁 %s\n", html.EscapeString(strings.Join(names, ", "))))
	}
	return b.String()
}

// FormatRunStatus formats a stored run for the /last command.
func FormatRunStatus(run *model.RunInfo) string {
	if run == nil {
		return "Ingen skanninger er registrert ennå."
	}
	s := run.Summary
	var b strings.Builder
	b.WriteString("📦 <b>Siste skanning</b>\n\n")
	b.WriteString(fmt.Sprintf("ID: <code>%s</code>\n", html.EscapeString(run.ID)))
	b.WriteString(fmt.Sprintf("Startet: %s\n", run.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Varighet: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second)))
	if len(run.Categories) > 0 {
		b.WriteString(fmt.Sprintf("Kategorier: %s\n", html.EscapeString(strings.Join(run.Categories, ", "))))
	}
	b.WriteString(fmt.Sprintf("Produkter: %d (fullstendige %d, delvise %d, feilet %d)\n", s.Total, s.Full, s.Partial, s.Failed()))
	b.WriteString(fmt.Sprintf("Mistenkelige: %d | Rangert: %d\n", s.Suspicious, s.Ranked))
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "Kommandoer:\n/scan – start en skanning med standardinnstillinger\n/last – vis siste skanning\n/help – denne hjelpen"
}
