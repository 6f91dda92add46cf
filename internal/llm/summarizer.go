package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/claimwatch/internal/model"
)

// Summarizer produces report digests; a nil provider means disabled
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer for the configured provider
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the provider name, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// Digest asks the provider for a narrative of the report's alerts
func (s *Summarizer) Digest(ctx context.Context, report *model.Report) (*model.Digest, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	prompt, refs := BuildPrompt(report)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:    report,
		AlertRefs: refs,
		Prompt:    prompt,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate digest: %w", err)
	}

	digest := &model.Digest{
		Provider:   s.provider.Name(),
		Model:      resp.Model,
		SummaryMD:  resp.Summary,
		TokensUsed: resp.TokensUsed,
	}
	if len(report.Alerts) > len(refs) {
		digest.Warnings = append(digest.Warnings,
			fmt.Sprintf("only the first %d of %d alerts were sent to the model", len(refs), len(report.Alerts)))
	}
	if len(report.Alerts) > 0 && len(resp.CitedRefs) == 0 {
		digest.Warnings = append(digest.Warnings, "digest does not reference any alert")
	}
	return digest, nil
}
