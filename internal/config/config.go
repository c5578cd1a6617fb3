package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Tavily     TavilyConfig     `yaml:"tavily" mapstructure:"tavily"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects the completion provider used by every stage.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // anthropic, openai, gemini
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds settings for any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SearchConfig selects and throttles the web search provider.
type SearchConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"` // tavily, jina
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
	CacheTTLHours  int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	DefaultResults int     `yaml:"default_results" mapstructure:"default_results"`
}

// TavilyConfig holds Tavily search API settings.
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PerplexityConfig holds Perplexity API settings. Sizing research is only
// added when Key is set.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// PipelineConfig holds the thresholds and caps of the research pipeline.
type PipelineConfig struct {
	OfficialThreshold       int `yaml:"official_threshold" mapstructure:"official_threshold"`
	FallbackThreshold       int `yaml:"fallback_threshold" mapstructure:"fallback_threshold"`
	RedditThreshold         int `yaml:"reddit_threshold" mapstructure:"reddit_threshold"`
	MaxCompetitors          int `yaml:"max_competitors" mapstructure:"max_competitors"`
	MaxSources              int `yaml:"max_sources" mapstructure:"max_sources"`
	MaxContentChars         int `yaml:"max_content_chars" mapstructure:"max_content_chars"`
	SummarizeThresholdChars int `yaml:"summarize_threshold_chars" mapstructure:"summarize_threshold_chars"`
	MaxRedditThreads        int `yaml:"max_reddit_threads" mapstructure:"max_reddit_threads"`
	EarlyExitResults        int `yaml:"early_exit_results" mapstructure:"early_exit_results"`
	SizingResultCap         int `yaml:"sizing_result_cap" mapstructure:"sizing_result_cap"`
	EvalConcurrency         int `yaml:"eval_concurrency" mapstructure:"eval_concurrency"`
	EnrichMinChars          int `yaml:"enrich_min_chars" mapstructure:"enrich_min_chars"`
}

// ResilienceConfig controls per-call timeouts, retries and breakers.
type ResilienceConfig struct {
	CallTimeoutSecs  int     `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// CallTimeout returns the per-call timeout as a duration.
func (r ResilienceConfig) CallTimeout() time.Duration {
	return time.Duration(r.CallTimeoutSecs) * time.Second
}

// StoreConfig configures the scorecard database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Models           map[string]ModelPricing `yaml:"models" mapstructure:"models"`
	SearchPerQuery   map[string]float64      `yaml:"search_per_query" mapstructure:"search_per_query"`
	PerplexityPerReq float64                 `yaml:"perplexity_per_request" mapstructure:"perplexity_per_request"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and BRAND_* env vars.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BRAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-1.5-flash")

	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.rate_per_second", 5.0)
	v.SetDefault("search.burst", 5)
	v.SetDefault("search.cache_ttl_hours", 24)
	v.SetDefault("search.default_results", 5)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")

	v.SetDefault("pipeline.official_threshold", 70)
	v.SetDefault("pipeline.fallback_threshold", 50)
	v.SetDefault("pipeline.reddit_threshold", 50)
	v.SetDefault("pipeline.max_competitors", 4)
	v.SetDefault("pipeline.max_sources", 3)
	v.SetDefault("pipeline.max_content_chars", 6000)
	v.SetDefault("pipeline.summarize_threshold_chars", 1000)
	v.SetDefault("pipeline.max_reddit_threads", 10)
	v.SetDefault("pipeline.early_exit_results", 4)
	v.SetDefault("pipeline.sizing_result_cap", 5)
	v.SetDefault("pipeline.eval_concurrency", 4)
	v.SetDefault("pipeline.enrich_min_chars", 500)

	v.SetDefault("resilience.call_timeout_secs", 30)
	v.SetDefault("resilience.max_attempts", 2)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 8000)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "brand-scorecard.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("pricing.search_per_query", map[string]float64{"tavily": 0.008, "jina": 0.002})
	v.SetDefault("pricing.perplexity_per_request", 0.005)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
