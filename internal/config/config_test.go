package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "tavily", cfg.Search.Provider)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 70, cfg.Pipeline.OfficialThreshold)
	assert.Equal(t, 50, cfg.Pipeline.FallbackThreshold)
	assert.Equal(t, 50, cfg.Pipeline.RedditThreshold)
	assert.Equal(t, 4, cfg.Pipeline.MaxCompetitors)
	assert.Equal(t, 6000, cfg.Pipeline.MaxContentChars)
	assert.Equal(t, 1000, cfg.Pipeline.SummarizeThresholdChars)
	assert.Equal(t, 4, cfg.Pipeline.EarlyExitResults)
	assert.Equal(t, 30, cfg.Resilience.CallTimeoutSecs)
	assert.Equal(t, "https://api.tavily.com", cfg.Tavily.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.InDelta(t, 0.008, cfg.Pricing.SearchPerQuery["tavily"], 0.0001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
llm:
  provider: gemini
pipeline:
  max_competitors: 2
  reddit_threshold: 60
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 2, cfg.Pipeline.MaxCompetitors)
	assert.Equal(t, 60, cfg.Pipeline.RedditThreshold)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 70, cfg.Pipeline.OfficialThreshold)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store:\n  driver: sqlite\n"), 0o644))
	t.Setenv("BRAND_STORE_DRIVER", "postgres")
	t.Setenv("BRAND_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvKeys(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BRAND_TAVILY_KEY", "tvly-123")
	t.Setenv("BRAND_ANTHROPIC_KEY", "sk-ant")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tvly-123", cfg.Tavily.Key)
	assert.Equal(t, "sk-ant", cfg.Anthropic.Key)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.LLM.Provider = "anthropic"
	cfg.Anthropic.Key = "sk-ant"
	cfg.Search.Provider = "tavily"
	cfg.Tavily.Key = "tvly"
	cfg.Pipeline.OfficialThreshold = 70
	cfg.Pipeline.FallbackThreshold = 50
	cfg.Pipeline.RedditThreshold = 50
	cfg.Pipeline.MaxCompetitors = 4
	cfg.Pipeline.SizingResultCap = 5
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidate_MissingKeys(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Search.Provider = "jina"

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "jina.key is required")
}

func TestValidate_UnsupportedProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = "llama"
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `llm.provider "llama" is not supported`)
}

func TestValidate_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.RedditThreshold = 120
	cfg.Pipeline.SizingResultCap = 1
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.reddit_threshold must be between 0 and 100")
	assert.Contains(t, err.Error(), "pipeline.sizing_result_cap must be between 2 and 10")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	assert.NoError(t, cfg.Validate("run"))
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
