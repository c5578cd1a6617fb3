// Package cost estimates the dollar cost of a scorecard run from its
// token and query counts.
package cost

import (
	"strings"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/model"
)

// Rates holds per-provider pricing.
type Rates struct {
	// Models maps a model name (or name prefix) to USD per million tokens.
	Models         map[string]config.ModelPricing
	SearchPerQuery map[string]float64
	PerplexityReq  float64
}

// DefaultRates returns list prices for the models the CLI defaults to.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]config.ModelPricing{
			"claude-haiku-4-5":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5": {Input: 3.00, Output: 15.00},
			"gpt-4o-mini":       {Input: 0.15, Output: 0.60},
			"gpt-4o":            {Input: 2.50, Output: 10.00},
			"gemini-1.5-flash":  {Input: 0.075, Output: 0.30},
			"gemini-1.5-pro":    {Input: 1.25, Output: 5.00},
		},
		SearchPerQuery: map[string]float64{"tavily": 0.008, "jina": 0.002},
		PerplexityReq:  0.005,
	}
}

// RatesFromConfig overlays configured prices on DefaultRates.
func RatesFromConfig(p config.PricingConfig) Rates {
	r := DefaultRates()
	for name, mp := range p.Models {
		r.Models[name] = mp
	}
	for name, v := range p.SearchPerQuery {
		r.SearchPerQuery[name] = v
	}
	if p.PerplexityPerReq > 0 {
		r.PerplexityReq = p.PerplexityPerReq
	}
	return r
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// modelRate finds the exact rate for name, else the longest configured
// prefix of it, so dated model ids match their family.
func (c *Calculator) modelRate(name string) (config.ModelPricing, bool) {
	if r, ok := c.rates.Models[name]; ok {
		return r, true
	}
	var best string
	for k := range c.rates.Models {
		if strings.HasPrefix(name, k) && len(k) > len(best) {
			best = k
		}
	}
	if best == "" {
		return config.ModelPricing{}, false
	}
	return c.rates.Models[best], true
}

// LLM prices token usage for one model. Unknown models cost 0.
func (c *Calculator) LLM(modelName string, usage model.TokenUsage) float64 {
	rate, ok := c.modelRate(modelName)
	if !ok {
		return 0
	}
	return float64(usage.InputTokens)/1e6*rate.Input + float64(usage.OutputTokens)/1e6*rate.Output
}

// Search prices n queries against a search provider.
func (c *Calculator) Search(provider string, n int) float64 {
	return float64(n) * c.rates.SearchPerQuery[provider]
}

// Perplexity prices n research requests.
func (c *Calculator) Perplexity(n int) float64 {
	return float64(n) * c.rates.PerplexityReq
}

// Estimate totals a run's usage.
func (c *Calculator) Estimate(llmModel, searchProvider string, u model.Usage, perplexityRequests int) float64 {
	return c.LLM(llmModel, u.Tokens) + c.Search(searchProvider, u.SearchQueries) + c.Perplexity(perplexityRequests)
}
