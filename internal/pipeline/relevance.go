package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
)

// evaluationContentChars bounds the page text sent for one judgement.
const evaluationContentChars = 2000

// relevanceReply is the model's raw verdict before clamping.
type relevanceReply struct {
	IsOfficialSite  bool            `json:"isOfficialSite"`
	IsRelevant      bool            `json:"isRelevant"`
	ConfidenceScore float64         `json:"confidenceScore"`
	Signals         map[string]bool `json:"signals"`
	Reasoning       string          `json:"reasoning"`
	BrandMatch      bool            `json:"brandMatch"`
}

// RelevanceClassifier asks the model whether search results and Reddit
// threads are about the brand. Every URL is judged at most once per run.
type RelevanceClassifier struct {
	llm llm.Provider
	cfg config.PipelineConfig
}

// NewRelevanceClassifier creates a classifier.
func NewRelevanceClassifier(p llm.Provider, cfg config.PipelineConfig) *RelevanceClassifier {
	return &RelevanceClassifier{llm: p, cfg: withDefaults(cfg)}
}

// Evaluate judges one search result. A URL already processed in run is
// skipped without a model call. Any failure yields the uniform failure
// evaluation.
func (c *RelevanceClassifier) Evaluate(ctx context.Context, run *RunContext, r model.SearchResult, brand, brandContext string) model.RelevanceEvaluation {
	if !run.MarkIfNew(r.URL) {
		return model.SkippedEvaluation(r.URL)
	}
	prompt := fmt.Sprintf(relevanceUserPrompt, brand, orNone(brandContext), r.Title, r.URL, truncate(r.Content, evaluationContentChars))
	res, err := llm.Structured[relevanceReply](ctx, c.llm, llm.UserPrompt(relevanceSystemPrompt, prompt), relevanceSchema)
	run.RecordLLM(res.Calls, res.Usage)
	if err != nil {
		zap.L().Warn("relevance: evaluation failed", zap.String("url", r.URL), zap.Error(err))
		return model.FailedEvaluation(r.URL)
	}
	return toEvaluation(r.URL, res.Value)
}

// FilterBrandResults evaluates results concurrently and keeps those judged
// official or relevant with confidence at or above the fallback threshold,
// ordered by confidence then preliminary score.
func (c *RelevanceClassifier) FilterBrandResults(ctx context.Context, run *RunContext, results []model.SearchResult, brand, brandContext string) []model.ScoredResult {
	evals := make([]model.RelevanceEvaluation, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.EvalConcurrency)
	for i, r := range results {
		g.Go(func() error {
			evals[i] = c.Evaluate(gctx, run, r, brand, brandContext)
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]model.ScoredResult, 0, len(results))
	for i, r := range results {
		e := evals[i]
		if e.Skipped || !(e.IsOfficialSite || e.IsRelevant) || e.ConfidenceScore < c.cfg.FallbackThreshold {
			continue
		}
		kept = append(kept, model.ScoredResult{SearchResult: r, Evaluation: e})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Evaluation.ConfidenceScore != kept[j].Evaluation.ConfidenceScore {
			return kept[i].Evaluation.ConfidenceScore > kept[j].Evaluation.ConfidenceScore
		}
		return kept[i].PreliminaryScore > kept[j].PreliminaryScore
	})
	zap.L().Info("relevance: brand results filtered",
		zap.String("brand", brand),
		zap.Int("evaluated", len(results)),
		zap.Int("kept", len(kept)),
	)
	return kept
}

// EvaluateThread judges one Reddit thread. MeetsThreshold is computed
// locally from the clamped confidence.
func (c *RelevanceClassifier) EvaluateThread(ctx context.Context, run *RunContext, t model.RedditThread, brand, brandContext string) model.RelevanceEvaluation {
	if !run.MarkIfNew(t.URL) {
		return model.SkippedEvaluation(t.URL)
	}
	prompt := fmt.Sprintf(threadUserPrompt, brand, orNone(brandContext), t.Title, t.Subreddit, t.URL, truncate(t.Content, evaluationContentChars))
	res, err := llm.Structured[relevanceReply](ctx, c.llm, llm.UserPrompt(threadSystemPrompt, prompt), threadSchema)
	run.RecordLLM(res.Calls, res.Usage)
	if err != nil {
		zap.L().Warn("relevance: thread evaluation failed", zap.String("url", t.URL), zap.Error(err))
		return model.FailedEvaluation(t.URL)
	}
	e := toEvaluation(t.URL, res.Value)
	e.IsOfficialSite = false
	e.MeetsThreshold = e.IsRelevant && e.ConfidenceScore >= c.cfg.RedditThreshold
	return e
}

// FilterThreads evaluates threads concurrently and returns those meeting
// the Reddit threshold, each carrying its evaluation, in input order.
func (c *RelevanceClassifier) FilterThreads(ctx context.Context, run *RunContext, threads []model.RedditThread, brand, brandContext string) []model.RedditThread {
	evals := make([]model.RelevanceEvaluation, len(threads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.EvalConcurrency)
	for i, t := range threads {
		g.Go(func() error {
			evals[i] = c.EvaluateThread(gctx, run, t, brand, brandContext)
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]model.RedditThread, 0, len(threads))
	for i, t := range threads {
		if !evals[i].MeetsThreshold {
			continue
		}
		e := evals[i]
		t.Evaluation = &e
		kept = append(kept, t)
	}
	zap.L().Info("relevance: threads filtered",
		zap.String("brand", brand),
		zap.Int("evaluated", len(threads)),
		zap.Int("kept", len(kept)),
	)
	return kept
}

func toEvaluation(url string, r relevanceReply) model.RelevanceEvaluation {
	signals := r.Signals
	if signals == nil {
		signals = map[string]bool{}
	}
	return model.RelevanceEvaluation{
		URL:             url,
		IsOfficialSite:  r.IsOfficialSite,
		IsRelevant:      r.IsRelevant,
		ConfidenceScore: confidence(r.ConfidenceScore),
		Signals:         signals,
		Reasoning:       r.Reasoning,
		BrandMatch:      r.BrandMatch,
	}
}

// confidence rounds and clamps a model-reported score to [0,100].
func confidence(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return model.ClampConfidence(int(math.Round(v)))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
