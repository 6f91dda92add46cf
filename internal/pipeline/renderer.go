package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/redact"
)

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	includeFooter bool
	redactPII     bool
	out           io.Writer
}

// NewRenderer creates a renderer that prints summaries to stdout
func NewRenderer(includeFooter, redactPII bool) *Renderer {
	return &Renderer{
		includeFooter: includeFooter,
		redactPII:     redactPII,
		out:           os.Stdout,
	}
}

// RenderJSON writes the full report, unredacted, to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderMarkdown writes the human report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create markdown: %w", err)
	}
	if err := r.WriteMarkdown(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// RenderDigestMarkdown writes the LLM digest to its own file
func (r *Renderer) RenderDigestMarkdown(d *model.Digest, path string) error {
	var b strings.Builder
	b.WriteString("# Claim Digest\n\n")
	fmt.Fprintf(&b, "_Generated by %s/%s. Advisory only; alerts in the main report are authoritative._\n\n", d.Provider, d.Model)
	b.WriteString(strings.TrimSpace(d.SummaryMD))
	b.WriteString("\n")
	for _, w := range d.Warnings {
		fmt.Fprintf(&b, "\n> ⚠ %s\n", w)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// WriteMarkdown renders the report; patient names are masked when redaction is on
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	b.WriteString("# Claim Discrepancy Report\n\n")
	if report.Snapshot.Source != "" {
		fmt.Fprintf(&b, "**Source:** %s  \n", report.Snapshot.Source)
	}
	fmt.Fprintf(&b, "**As of:** %s  \n", report.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Thresholds:** stale drafts > %d days, hanging > %d days\n\n",
		report.Thresholds.StaleDraftDays, report.Thresholds.HangingDays)

	s := report.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Claims | Skipped | Alerts | Critical | Warning | Info | Hanging |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d |\n\n",
		s.Claims, s.Skipped, s.Alerts, s.Critical, s.Warning, s.Info, s.Hanging)

	b.WriteString("## Alerts\n\n")
	if len(report.Alerts) == 0 {
		b.WriteString("No discrepancies found.\n\n")
	} else {
		b.WriteString("| Severity | Code | Claim | Message | Resolve |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, a := range report.Alerts {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				a.Severity, a.Code, a.ClaimID, escapeCell(r.message(a.Message)), a.ResolveTarget)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Hanging Claims\n\n")
	if report.Hanging.Count == 0 {
		b.WriteString("No claims outstanding past the threshold.\n\n")
	} else {
		fmt.Fprintf(&b, "%d claims worth $%s, oldest %d days.\n\n",
			report.Hanging.Count, report.Hanging.Total.StringFixed(2), report.Hanging.MaxDaysOutstanding)
		for _, g := range report.Hanging.Groups {
			fmt.Fprintf(&b, "### %s ($%s)\n\n", g.Label, g.Total.StringFixed(2))
			b.WriteString("| Claim | Patient | Status | Service date | Days | Urgency | Claimed |\n")
			b.WriteString("|---|---|---|---|---|---|---|\n")
			for _, c := range g.Claims {
				fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s | $%s |\n",
					c.ClaimID, escapeCell(r.name(c.PatientName)), c.Status, c.ServiceDate,
					c.DaysOutstanding, c.Urgency, c.TotalClaimed.StringFixed(2))
			}
			b.WriteString("\n")
		}
	}

	if len(report.Skipped) > 0 {
		b.WriteString("## Skipped Rows\n\n")
		for _, sk := range report.Skipped {
			id := sk.ClaimID
			if id == "" {
				id = "(no id)"
			}
			fmt.Fprintf(&b, "- row %d %s: %s\n", sk.Index, id, sk.Reason)
		}
		b.WriteString("\n")
	}

	if len(report.Issues) > 0 {
		b.WriteString("## Data Issues\n\n")
		for _, is := range report.Issues {
			fmt.Fprintf(&b, "- row %d %s `%s`: %s\n", is.Index, is.ClaimID, is.Field, is.Reason)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_claimwatch flags claims for review. It does not submit, correct or cancel anything._\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummary prints a human-readable summary
func (r *Renderer) RenderSummary(report *model.Report) {
	w := r.out
	s := report.Summary

	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  Claim Scan: %s\n", report.Snapshot.Source)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  Claims:    %d evaluated, %d skipped\n", s.Claims, s.Skipped)
	fmt.Fprintf(w, "  Alerts:    %d (critical %d, warning %d, info %d)\n", s.Alerts, s.Critical, s.Warning, s.Info)
	fmt.Fprintf(w, "  Hanging:   %d worth $%s\n", s.Hanging, report.Hanging.Total.StringFixed(2))
	fmt.Fprintln(w)

	shown := report.Alerts
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, a := range shown {
		fmt.Fprintf(w, "  %s [%s] %s\n", severityMarker(a.Severity), a.Code, r.message(a.Message))
	}
	if more := len(report.Alerts) - len(shown); more > 0 {
		fmt.Fprintf(w, "  ... and %d more\n", more)
	}
	if len(shown) > 0 {
		fmt.Fprintln(w)
	}
}

func (r *Renderer) message(msg string) string {
	if r.redactPII {
		return redact.Quoted(msg)
	}
	return msg
}

func (r *Renderer) name(n string) string {
	if r.redactPII {
		return redact.Mask(n)
	}
	return n
}

func severityMarker(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "✗"
	case model.SeverityWarning:
		return "!"
	default:
		return "·"
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
