package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.Agent.DataDir)
	assert.Equal(t, "openrouter", cfg.Agent.Provider)
	assert.Equal(t, 1000, cfg.Agent.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Agent.Temperature, 0.0001)
	assert.Equal(t, 10, cfg.Memory.ShortTermLimit)
	assert.Equal(t, 5, cfg.Memory.RetrievalK)
	assert.Equal(t, filepath.Join("./data", "knowledge"), cfg.Knowledge.BaseDir)
	assert.Equal(t, "0 4 * * *", cfg.Schedule.DecayCron)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.Agent.Provider)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := &Config{}
	cfg.Agent.Model = "from-file"
	cfg.Agent.DataDir = t.TempDir()
	require.NoError(t, cfg.Save(path))

	t.Setenv("AIKA_AGENT_MODEL", "from-env")
	t.Setenv("AIKA_PROVIDERS_OPENROUTER_API_KEY", "sk-test")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", loaded.Agent.Model)
	assert.Equal(t, "sk-test", loaded.Providers.OpenRouter.APIKey)
	assert.Equal(t, cfg.Agent.DataDir, loaded.Agent.DataDir)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Channels.Discord.Token = "bot-token"
	cfg.Channels.Discord.AllowFrom = []string{"123|alice"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bot-token", loaded.Channels.Discord.Token)
	assert.Equal(t, []string{"123|alice"}, loaded.Channels.Discord.AllowFrom)
}

func TestKnowledgeDirFollowsDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := &Config{}
	cfg.Agent.DataDir = "/var/lib/aika"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/lib/aika", "knowledge"), loaded.Knowledge.BaseDir)
}
