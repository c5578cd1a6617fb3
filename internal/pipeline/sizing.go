package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/resilience"
	"github.com/sells-group/brand-scorecard/pkg/perplexity"
)

const summaryMaxTokens = 300

// SizingSearcher runs the company-sizing searches.
type SizingSearcher interface {
	SizingSearch(ctx context.Context, brand, brandContext string) model.SearchOutcome
}

// CompanySizer classifies a brand into a size tier from sizing searches
// and optional Perplexity research.
type CompanySizer struct {
	llm      llm.Provider
	search   SizingSearcher
	research perplexity.Client
	guard    *resilience.Guard
	cfg      config.PipelineConfig
}

// NewCompanySizer creates a sizer. research may be nil.
func NewCompanySizer(p llm.Provider, s SizingSearcher, research perplexity.Client, g *resilience.Guard, cfg config.PipelineConfig) *CompanySizer {
	return &CompanySizer{llm: p, search: s, research: research, guard: g, cfg: withDefaults(cfg)}
}

// evidence is one condensed source handed to the classifier.
type evidence struct {
	URL  string
	Text string
}

// Size classifies brand. With no evidence at all it returns the fixed
// Growth/low fallback as a success.
func (s *CompanySizer) Size(ctx context.Context, run *RunContext, brand, brandContext string) model.SizingOutcome {
	log := zap.L().With(zap.String("brand", brand))

	var (
		outcome  model.SearchOutcome
		research *perplexity.ChatCompletionResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		outcome = s.search.SizingSearch(gctx, brand, brandContext)
		return nil
	})
	if s.research != nil {
		g.Go(func() error {
			resp, err := resilience.Call(gctx, s.guard, "perplexity", "research", func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
				return s.research.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
					Messages:            []perplexity.Message{{Role: "user", Content: fmt.Sprintf(researchPrompt, brand, orNone(brandContext))}},
					SearchRecencyFilter: perplexity.RecencyYear,
				})
			})
			run.RecordPerplexity()
			if err != nil {
				log.Warn("sizing: research failed", zap.Error(err))
				return nil
			}
			research = resp
			return nil
		})
	}
	_ = g.Wait()
	run.RecordSearch(len(outcome.Queries))

	items := s.condense(ctx, run, brand, outcome.Results)
	if text := strings.TrimSpace(research.Text()); text != "" {
		src := "perplexity"
		if sources := research.Sources(); len(sources) > 0 {
			src = sources[0]
		}
		items = append(items, evidence{URL: src, Text: text})
	}

	if len(items) == 0 {
		log.Info("sizing: no evidence found, using fallback tier")
		fb := model.FallbackSizing()
		return model.SizingOutcome{Success: true, Result: &fb, Fallback: true}
	}

	var b strings.Builder
	urls := make([]string, 0, len(items))
	for _, it := range items {
		urls = append(urls, it.URL)
		fmt.Fprintf(&b, "Source: %s\n%s\n\n", it.URL, it.Text)
	}
	prompt := fmt.Sprintf(sizingUserPrompt, brand, orNone(brandContext), b.String())
	res, err := llm.Structured[model.SizingResult](ctx, s.llm, llm.UserPrompt(sizingSystemPrompt, prompt), sizingSchema)
	run.RecordLLM(res.Calls, res.Usage)
	if err != nil {
		log.Warn("sizing: classification failed", zap.Error(err))
		return model.SizingOutcome{Error: "Company sizing failed: " + err.Error()}
	}

	result := res.Value
	if len(result.Sources) == 0 {
		result.Sources = urls
	}
	return model.SizingOutcome{Success: true, Result: &result}
}

// condense summarizes long sources and truncates short ones. A failed
// summary falls back to truncation.
func (s *CompanySizer) condense(ctx context.Context, run *RunContext, brand string, results []model.SearchResult) []evidence {
	out := make([]evidence, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EvalConcurrency)
	for i, r := range results {
		out[i] = evidence{URL: r.URL, Text: truncate(r.Content, s.cfg.SummarizeThresholdChars)}
		if len(r.Content) <= s.cfg.SummarizeThresholdChars {
			continue
		}
		g.Go(func() error {
			req := llm.UserPrompt(summarizeSystemPrompt, fmt.Sprintf(summarizeUserPrompt, brand, r.URL, truncate(r.Content, s.cfg.MaxContentChars)))
			req.MaxTokens = summaryMaxTokens
			resp, err := s.llm.Complete(gctx, req)
			if err != nil {
				zap.L().Debug("sizing: summary failed, truncating", zap.String("url", r.URL), zap.Error(err))
				return nil
			}
			run.RecordLLM(1, resp.Usage)
			if text := strings.TrimSpace(resp.Text); text != "" {
				out[i].Text = text
			}
			return nil
		})
	}
	_ = g.Wait()

	kept := out[:0]
	for _, e := range out {
		if strings.TrimSpace(e.Text) != "" {
			kept = append(kept, e)
		}
	}
	return kept
}
