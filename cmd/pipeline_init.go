package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/cost"
	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/pipeline"
	"github.com/sells-group/brand-scorecard/internal/registry"
	"github.com/sells-group/brand-scorecard/internal/resilience"
	"github.com/sells-group/brand-scorecard/internal/scrape"
	"github.com/sells-group/brand-scorecard/internal/search"
	"github.com/sells-group/brand-scorecard/internal/store"
	"github.com/sells-group/brand-scorecard/pkg/jina"
	"github.com/sells-group/brand-scorecard/pkg/perplexity"
)

// pipelineEnv holds the initialized clients, store, pipeline and registry
// used by the run and serve commands.
type pipelineEnv struct {
	Store    store.Store // nil when persistence is disabled
	Pipeline *pipeline.Pipeline
	Registry *registry.Registry
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newGuard builds the shared timeout, retry and breaker policy.
func newGuard(r config.ResilienceConfig) *resilience.Guard {
	retry := resilience.DefaultRetryConfig()
	if r.MaxAttempts > 0 {
		retry.MaxAttempts = r.MaxAttempts
	}
	if r.InitialBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(r.InitialBackoffMs) * time.Millisecond
	}
	if r.MaxBackoffMs > 0 {
		retry.MaxBackoff = time.Duration(r.MaxBackoffMs) * time.Millisecond
	}
	if r.JitterFraction > 0 {
		retry.JitterFraction = r.JitterFraction
	}

	breaker := resilience.DefaultCircuitBreakerConfig()
	if r.FailureThreshold > 0 {
		breaker.FailureThreshold = r.FailureThreshold
	}
	if r.ResetTimeoutSecs > 0 {
		breaker.ResetTimeout = time.Duration(r.ResetTimeoutSecs) * time.Second
	}

	return resilience.NewGuard(r.CallTimeout(), retry, breaker)
}

// initPipeline validates config for mode, then wires the store, model,
// search, scraping and research clients into a Pipeline and Registry.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string, persist bool) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &pipelineEnv{}
	if persist {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	guard := newGuard(cfg.Resilience)

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "init llm provider")
	}

	sp, err := search.NewProvider(cfg)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "init search provider")
	}
	sp = search.WithRateLimit(sp, cfg.Search.RatePerSecond, cfg.Search.Burst)
	if env.Store != nil {
		sp = search.WithCache(sp, env.Store, time.Duration(cfg.Search.CacheTTLHours)*time.Hour)
	}
	searcher := search.NewAdapter(sp, guard, nil, search.OptionsFromConfig(cfg))

	// Jina Reader works without a key at a lower rate limit.
	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	)
	reader := scrape.NewChain(
		scrape.NewJinaScraper(jinaClient, guard.Breakers.Get("jina")),
		scrape.NewReadabilityScraper(nil),
	)

	deps := pipeline.Deps{
		LLM:    llm.WithGuard(provider, guard),
		Search: searcher,
		Reader: reader,
		Guard:  guard,
		Cost:   cost.NewCalculator(cost.RatesFromConfig(cfg.Pricing)),
	}
	if env.Store != nil {
		deps.Store = env.Store
	}
	if cfg.Perplexity.Key != "" {
		deps.Research = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		zap.L().Info("perplexity sizing research enabled")
	} else {
		zap.L().Debug("BRAND_PERPLEXITY_KEY not set, sizing uses search results only")
	}

	env.Pipeline = pipeline.New(cfg.Pipeline, deps)
	env.Registry, err = registry.Build(env.Pipeline)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "build registry")
	}

	zap.L().Info("pipeline initialized",
		zap.String("llm", provider.Name()),
		zap.String("model", provider.Model()),
		zap.String("search", sp.Name()),
		zap.Bool("persist", env.Store != nil),
	)
	return env, nil
}
