package providers

import (
	"fmt"
	"strings"

	"github.com/aika-bot/aika/pkg/config"
)

const (
	defaultOpenAIAPIBase = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

func init() {
	RegisterFactory(ProviderOpenAI, newOpenAIProviderFromConfig, validateOpenAIConfig)
}

func validateOpenAIConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if strings.TrimSpace(cfg.Providers.OpenAI.APIKey) == "" {
		return fmt.Errorf("OpenAI API key is required (set providers.openai.api_key or AIKA_PROVIDERS_OPENAI_API_KEY)")
	}
	return nil
}

func newOpenAIProviderFromConfig(cfg *config.Config) (LLMProvider, error) {
	if err := validateOpenAIConfig(cfg); err != nil {
		return nil, err
	}

	apiBase := strings.TrimSpace(cfg.Providers.OpenAI.APIBase)
	if apiBase == "" {
		apiBase = defaultOpenAIAPIBase
	}
	model := strings.TrimSpace(cfg.Agent.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	return newChatCompletionsProvider(
		ProviderOpenAI,
		apiBase,
		cfg.Providers.OpenAI.APIKey,
		model,
		strings.TrimSpace(cfg.Providers.OpenAI.Proxy),
	)
}
