package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Agent     AgentConfig     `json:"agent"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Memory    MemoryConfig    `json:"memory"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Log       LogConfig       `json:"log"`
}

type AgentConfig struct {
	DataDir     string  `json:"data_dir" env:"AIKA_AGENT_DATA_DIR"`
	PersonaPath string  `json:"persona_path" env:"AIKA_AGENT_PERSONA_PATH"`
	Provider    string  `json:"provider" env:"AIKA_AGENT_PROVIDER"`
	Model       string  `json:"model" env:"AIKA_AGENT_MODEL"`
	MaxTokens   int     `json:"max_tokens" env:"AIKA_AGENT_MAX_TOKENS"`
	Temperature float64 `json:"temperature" env:"AIKA_AGENT_TEMPERATURE"`
}

type ProvidersConfig struct {
	OpenRouter ProviderConfig `json:"openrouter"`
	OpenAI     ProviderConfig `json:"openai"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key"`
	APIBase string `json:"api_base"`
	Proxy   string `json:"proxy,omitempty"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Token     string   `json:"token" env:"AIKA_CHANNELS_DISCORD_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"AIKA_CHANNELS_DISCORD_ALLOW_FROM"`
}

type MemoryConfig struct {
	ShortTermLimit int `json:"short_term_limit" env:"AIKA_MEMORY_SHORT_TERM_LIMIT"`
	RetrievalK     int `json:"retrieval_k" env:"AIKA_MEMORY_RETRIEVAL_K"`
}

type KnowledgeConfig struct {
	BaseDir string `json:"base_dir" env:"AIKA_KNOWLEDGE_BASE_DIR"`
}

type ScheduleConfig struct {
	DecayCron       string `json:"decay_cron" env:"AIKA_SCHEDULE_DECAY_CRON"`
	ConsolidateCron string `json:"consolidate_cron" env:"AIKA_SCHEDULE_CONSOLIDATE_CRON"`
}

type LogConfig struct {
	Dir   string `json:"dir" env:"AIKA_LOG_DIR"`
	Level string `json:"level" env:"AIKA_LOG_LEVEL"`
}

// Provider credentials get their env overrides through a separate
// overlay struct so both providers can share the ProviderConfig shape
// without colliding env tags.
type providerEnvOverlay struct {
	OpenRouterAPIKey  string `env:"AIKA_PROVIDERS_OPENROUTER_API_KEY"`
	OpenRouterAPIBase string `env:"AIKA_PROVIDERS_OPENROUTER_API_BASE"`
	OpenRouterProxy   string `env:"AIKA_PROVIDERS_OPENROUTER_PROXY"`
	OpenAIAPIKey      string `env:"AIKA_PROVIDERS_OPENAI_API_KEY"`
	OpenAIAPIBase     string `env:"AIKA_PROVIDERS_OPENAI_API_BASE"`
	OpenAIProxy       string `env:"AIKA_PROVIDERS_OPENAI_PROXY"`
}

// DefaultConfigPath returns ~/.aika/config.json.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".aika", "config.json")
}

// Load reads the JSON config file if present, then overlays environment
// variables, then applies defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Config file is optional; env and defaults still apply.
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	overlay := providerEnvOverlay{}
	if err := env.Parse(&overlay); err != nil {
		return nil, fmt.Errorf("parse provider env config: %w", err)
	}
	applyIfSet(&cfg.Providers.OpenRouter.APIKey, overlay.OpenRouterAPIKey)
	applyIfSet(&cfg.Providers.OpenRouter.APIBase, overlay.OpenRouterAPIBase)
	applyIfSet(&cfg.Providers.OpenRouter.Proxy, overlay.OpenRouterProxy)
	applyIfSet(&cfg.Providers.OpenAI.APIKey, overlay.OpenAIAPIKey)
	applyIfSet(&cfg.Providers.OpenAI.APIBase, overlay.OpenAIAPIBase)
	applyIfSet(&cfg.Providers.OpenAI.Proxy, overlay.OpenAIProxy)

	cfg.applyDefaults()
	return cfg, nil
}

func applyIfSet(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Agent.DataDir == "" {
		c.Agent.DataDir = "./data"
	}
	if c.Agent.PersonaPath == "" {
		c.Agent.PersonaPath = filepath.Join("config", "persona_default.yaml")
	}
	if c.Agent.Provider == "" {
		c.Agent.Provider = "openrouter"
	}
	if c.Agent.MaxTokens <= 0 {
		c.Agent.MaxTokens = 1000
	}
	if c.Agent.Temperature <= 0 {
		c.Agent.Temperature = 0.7
	}
	if c.Memory.ShortTermLimit <= 0 {
		c.Memory.ShortTermLimit = 10
	}
	if c.Memory.RetrievalK <= 0 {
		c.Memory.RetrievalK = 5
	}
	if c.Knowledge.BaseDir == "" {
		c.Knowledge.BaseDir = filepath.Join(c.Agent.DataDir, "knowledge")
	}
	if c.Schedule.DecayCron == "" {
		c.Schedule.DecayCron = "0 4 * * *"
	}
	if c.Schedule.ConsolidateCron == "" {
		c.Schedule.ConsolidateCron = "30 4 * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Save writes the config as indented JSON, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
