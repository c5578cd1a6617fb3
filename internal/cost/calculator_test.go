package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/model"
)

func testRates() Rates {
	return Rates{
		Models: map[string]config.ModelPricing{
			"haiku":        {Input: 1.00, Output: 5.00},
			"haiku-large":  {Input: 2.00, Output: 10.00},
			"sonnet-4-5-x": {Input: 3.00, Output: 15.00},
		},
		SearchPerQuery: map[string]float64{"tavily": 0.01},
		PerplexityReq:  0.005,
	}
}

func TestLLM(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name  string
		model string
		usage model.TokenUsage
		want  float64
	}{
		{"exact", "haiku", model.TokenUsage{InputTokens: 1_000_000, OutputTokens: 100_000}, 1.50},
		{"longest prefix wins", "haiku-large-2025", model.TokenUsage{InputTokens: 1_000_000}, 2.00},
		{"prefix", "haiku-20251001", model.TokenUsage{OutputTokens: 1_000_000}, 5.00},
		{"unknown", "mystery", model.TokenUsage{InputTokens: 1_000_000}, 0},
		{"zero", "haiku", model.TokenUsage{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.LLM(tt.model, tt.usage), 1e-9)
		})
	}
}

func TestSearchAndPerplexity(t *testing.T) {
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.12, calc.Search("tavily", 12), 1e-9)
	assert.Zero(t, calc.Search("unknown", 12))
	assert.InDelta(t, 0.015, calc.Perplexity(3), 1e-9)
}

func TestEstimate(t *testing.T) {
	calc := NewCalculator(testRates())
	u := model.Usage{
		SearchQueries: 10,
		Tokens:        model.TokenUsage{InputTokens: 500_000, OutputTokens: 100_000},
	}
	// 0.5 + 0.5 tokens, 0.10 search, 0.005 perplexity
	assert.InDelta(t, 1.105, calc.Estimate("haiku", "tavily", u, 1), 1e-9)
}

func TestRatesFromConfig(t *testing.T) {
	r := RatesFromConfig(config.PricingConfig{
		Models:           map[string]config.ModelPricing{"custom": {Input: 9, Output: 9}},
		SearchPerQuery:   map[string]float64{"jina": 0.5},
		PerplexityPerReq: 0.2,
	})
	assert.Contains(t, r.Models, "custom")
	assert.Contains(t, r.Models, "gpt-4o-mini")
	assert.Equal(t, 0.5, r.SearchPerQuery["jina"])
	assert.Equal(t, 0.008, r.SearchPerQuery["tavily"])
	assert.Equal(t, 0.2, r.PerplexityReq)
}
