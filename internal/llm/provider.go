package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/redact"
)

// maxPromptAlerts caps how many alerts are listed in the prompt
const maxPromptAlerts = 25

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize writes a digest of the report, citing alerts only by reference
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	Report *model.Report

	// AlertRefs is the allowlist of references the model may cite, e.g. "A1"
	AlertRefs []string

	// Prompt overrides the built prompt when set
	Prompt string

	Model     string
	MaxTokens int
}

// SummarizeResponse contains the LLM's digest
type SummarizeResponse struct {
	Summary    string
	CitedRefs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "" (disabled)
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictRefs rejects replies citing references outside the allowlist
	StrictRefs bool

	MaxTokens int
}

// DefaultConfig returns the disabled configuration
func DefaultConfig() Config {
	return Config{
		Timeout:    30,
		StrictRefs: true,
		MaxTokens:  800,
	}
}

// BuildPrompt constructs the digest prompt and the reference allowlist.
// Patient names in alert messages are always masked before leaving the process.
func BuildPrompt(report *model.Report) (string, []string) {
	var b strings.Builder
	s := report.Summary

	b.WriteString(`You are summarizing a medical billing discrepancy report for clinic staff.
The report flags claims for review; it never decides that a claim is wrong.

RULES:
1. Refer to alerts ONLY by their bracketed reference, e.g. [A1]. Never invent references.
2. Do not guess patient identities or amounts that are not listed.
3. Recommend which alerts to handle first and why, in plain language.

`)
	fmt.Fprintf(&b, "Report as of %s:\n", report.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Claims evaluated: %d (skipped %d)\n", s.Claims, s.Skipped)
	fmt.Fprintf(&b, "- Alerts: %d (critical %d, warning %d, info %d)\n", s.Alerts, s.Critical, s.Warning, s.Info)
	fmt.Fprintf(&b, "- Hanging claims: %d worth $%s, oldest %d days\n\n",
		report.Hanging.Count, report.Hanging.Total.StringFixed(2), report.Hanging.MaxDaysOutstanding)

	refs := make([]string, 0, len(report.Alerts))
	b.WriteString("Alerts:\n")
	if len(report.Alerts) == 0 {
		b.WriteString("(none)\n")
	}
	for i, a := range report.Alerts {
		if i >= maxPromptAlerts {
			fmt.Fprintf(&b, "... and %d more alerts\n", len(report.Alerts)-maxPromptAlerts)
			break
		}
		ref := fmt.Sprintf("A%d", i+1)
		refs = append(refs, ref)
		fmt.Fprintf(&b, "[%s] %s %s (%s): %s\n",
			ref, strings.ToUpper(string(a.Severity)), a.Code, a.ClaimType.Label(), redact.Quoted(a.Message))
	}

	b.WriteString("\nWrite a 3-5 sentence digest.")

	return b.String(), refs
}
