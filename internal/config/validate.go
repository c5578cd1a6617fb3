package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the fields required by the given mode ("run" or "serve").
// All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.LLM.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "openai":
		if c.OpenAI.Key == "" {
			errs = append(errs, "openai.key is required")
		}
	case "gemini":
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("llm.provider %q is not supported", c.LLM.Provider))
	}

	switch c.Search.Provider {
	case "tavily":
		if c.Tavily.Key == "" {
			errs = append(errs, "tavily.key is required")
		}
	case "jina":
		if c.Jina.Key == "" {
			errs = append(errs, "jina.key is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("search.provider %q is not supported", c.Search.Provider))
	}

	p := c.Pipeline
	for name, v := range map[string]int{
		"official_threshold": p.OfficialThreshold,
		"fallback_threshold": p.FallbackThreshold,
		"reddit_threshold":   p.RedditThreshold,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Sprintf("pipeline.%s must be between 0 and 100", name))
		}
	}
	if p.MaxCompetitors < 0 || p.MaxCompetitors > 10 {
		errs = append(errs, "pipeline.max_competitors must be between 0 and 10")
	}
	if p.SizingResultCap < 2 || p.SizingResultCap > 10 {
		errs = append(errs, "pipeline.sizing_result_cap must be between 2 and 10")
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}
