package providers

import (
	"strings"
	"testing"

	"github.com/aika-bot/aika/pkg/config"
)

func TestNormalizeProviderName(t *testing.T) {
	cases := map[string]string{
		"":            ProviderOpenRouter,
		"  OpenAI  ":  ProviderOpenAI,
		"OPENROUTER":  ProviderOpenRouter,
		"customthing": "customthing",
	}
	for in, want := range cases {
		if got := NormalizeProviderName(in); got != want {
			t.Fatalf("NormalizeProviderName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSupportedProvidersRegistered(t *testing.T) {
	supported := SupportedProviders()
	for _, want := range []string{ProviderOpenAI, ProviderOpenRouter} {
		found := false
		for _, name := range supported {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s missing from supported providers %v", want, supported)
		}
	}
}

func TestValidateProviderConfigRequiresAPIKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.Agent.Provider = ProviderOpenRouter

	if err := ValidateProviderConfig(cfg); err == nil {
		t.Fatal("expected error without API key")
	}

	cfg.Providers.OpenRouter.APIKey = "sk-test"
	if err := ValidateProviderConfig(cfg); err != nil {
		t.Fatalf("validate with key: %v", err)
	}
}

func TestCreateProviderUnsupportedName(t *testing.T) {
	cfg := &config.Config{}
	cfg.Agent.Provider = "carrier-pigeon"

	_, err := CreateProvider(cfg)
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	if !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Fatalf("error does not name the provider: %v", err)
	}
}

func TestCreateProviderOpenRouterDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Agent.Provider = ProviderOpenRouter
	cfg.Providers.OpenRouter.APIKey = "sk-test"

	p, err := CreateProvider(cfg)
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	if p.Name() != ProviderOpenRouter {
		t.Fatalf("provider name = %q", p.Name())
	}
	if p.DefaultModel() != defaultOpenRouterModel {
		t.Fatalf("default model = %q, want %q", p.DefaultModel(), defaultOpenRouterModel)
	}
}
