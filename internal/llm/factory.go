package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/claimwatch/internal/model"
)

// NewProvider creates the configured provider; an empty name disables the digest
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config. Zero timeout and
// token limits keep the defaults; strict references are always on.
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	config := DefaultConfig()
	config.Provider = modelConfig.Provider
	config.Model = modelConfig.Model
	config.APIKey = modelConfig.APIKey
	config.BaseURL = modelConfig.BaseURL
	if modelConfig.Timeout > 0 {
		config.Timeout = modelConfig.Timeout
	}
	if modelConfig.MaxTokens > 0 {
		config.MaxTokens = modelConfig.MaxTokens
	}
	return config
}
