package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/claimwatch/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name     string
	response *SummarizeResponse
	err      error
	lastReq  SummarizeRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func TestNewSummarizer_DisabledProvider(t *testing.T) {
	summarizer, err := NewSummarizer(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summarizer.IsEnabled() {
		t.Error("Expected summarizer to be disabled")
	}
	if summarizer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}

	digest, err := summarizer.Digest(context.Background(), sampleReport())
	if err != nil || digest != nil {
		t.Errorf("Expected nil digest and error when disabled, got %v, %v", digest, err)
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "bard"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestSummarizer_Digest_Success(t *testing.T) {
	mock := &MockProvider{
		name:     "mock",
		response: &SummarizeResponse{Summary: "Fix [A1].", CitedRefs: []string{"A1"}, Model: "m1", TokensUsed: 42},
	}
	summarizer := &Summarizer{provider: mock, config: Config{Model: "m1"}}

	digest, err := summarizer.Digest(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}

	if digest.Provider != "mock" || digest.Model != "m1" || digest.TokensUsed != 42 {
		t.Errorf("Unexpected digest metadata: %+v", digest)
	}
	if digest.SummaryMD != "Fix [A1]." {
		t.Errorf("Unexpected summary: %s", digest.SummaryMD)
	}
	if len(digest.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", digest.Warnings)
	}
	if len(mock.lastReq.AlertRefs) != 2 {
		t.Errorf("Expected 2 alert refs in request, got %v", mock.lastReq.AlertRefs)
	}
}

func TestSummarizer_Digest_Warnings(t *testing.T) {
	report := sampleReport()
	for i := 0; i < maxPromptAlerts; i++ {
		report.Alerts = append(report.Alerts, model.Alert{
			ClaimID:  fmt.Sprintf("x%d", i),
			Severity: model.SeverityInfo,
			Code:     model.CodeStaleDraft,
		})
	}

	mock := &MockProvider{name: "mock", response: &SummarizeResponse{Summary: "Lots to do."}}
	summarizer := &Summarizer{provider: mock}

	digest, err := summarizer.Digest(context.Background(), report)
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	if len(digest.Warnings) != 2 {
		t.Errorf("Expected truncation and no-reference warnings, got %v", digest.Warnings)
	}
}

func TestSummarizer_Digest_ProviderError(t *testing.T) {
	summarizer := &Summarizer{provider: &MockProvider{name: "mock", err: errors.New("quota exceeded")}}

	_, err := summarizer.Digest(context.Background(), sampleReport())
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("Expected wrapped provider error, got %v", err)
	}
}

func TestBuildPrompt_BasicStructure(t *testing.T) {
	prompt, refs := BuildPrompt(sampleReport())

	if len(refs) != 2 || refs[0] != "A1" || refs[1] != "A2" {
		t.Errorf("Unexpected refs: %v", refs)
	}

	expected := []string{
		"Claims evaluated: 3",
		"Alerts: 2 (critical 1, warning 1, info 0)",
		"[A1] CRITICAL DUPLICATE (RAMQ)",
		"[A2] WARNING AMOUNT_MISMATCH (Federal)",
		`"Je***ay"`,
	}
	for _, want := range expected {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
	if strings.Contains(prompt, "Jean Tremblay") {
		t.Error("Expected patient name to be masked")
	}
}

func TestBuildPrompt_NoAlerts(t *testing.T) {
	prompt, refs := BuildPrompt(&model.Report{})
	if len(refs) != 0 {
		t.Errorf("Expected no refs, got %v", refs)
	}
	if !strings.Contains(prompt, "(none)") {
		t.Error("Expected prompt to state there are no alerts")
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k", Timeout: 10, MaxTokens: 500})
	if !cfg.StrictRefs {
		t.Error("Expected strict references to be enforced")
	}
	if cfg.Provider != "openai" || cfg.APIKey != "k" || cfg.MaxTokens != 500 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestConfigFromModel_ZeroLimitsKeepDefaults(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{Provider: "ollama", Model: "llama3.1"})
	def := DefaultConfig()

	if cfg.Timeout != def.Timeout {
		t.Errorf("Expected default timeout %d, got %d", def.Timeout, cfg.Timeout)
	}
	if cfg.MaxTokens != def.MaxTokens {
		t.Errorf("Expected default max tokens %d, got %d", def.MaxTokens, cfg.MaxTokens)
	}
}
