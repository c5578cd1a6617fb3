// Package pipeline runs the brand research stages: search, relevance
// filtering, profile extraction, sizing, Reddit discovery, competitor
// discovery, sentiment and scorecard assembly.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/cost"
	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/resilience"
	"github.com/sells-group/brand-scorecard/pkg/perplexity"
)

// Searcher runs the web and Reddit searches the stages need.
type Searcher interface {
	SizingSearcher
	BrandSearch(ctx context.Context, brand, brandContext string) model.SearchOutcome
	RedditSearch(ctx context.Context, brand, brandContext string) model.RedditOutcome
	Provider() string
}

// ScorecardStore persists scorecards as a run progresses.
type ScorecardStore interface {
	CreateScorecard(ctx context.Context, sc *model.Scorecard) error
	UpdateScorecardStatus(ctx context.Context, id string, status model.ScorecardStatus, errMsg string) error
	SaveScorecard(ctx context.Context, sc *model.Scorecard) error
}

// Deps are the collaborators of a Pipeline. Reader, Research, Store and
// Cost are optional.
type Deps struct {
	LLM      llm.Provider
	Search   Searcher
	Reader   PageReader
	Research perplexity.Client
	Guard    *resilience.Guard
	Store    ScorecardStore
	Cost     *cost.Calculator
}

// Request starts one run.
type Request struct {
	Brand   string `json:"brandName" validate:"required,max=200"`
	Context string `json:"context,omitempty" validate:"max=1000"`
	// MaxCompetitors overrides the configured cap when set.
	MaxCompetitors *int `json:"maxCompetitors,omitempty" validate:"omitempty,min=0,max=10"`
}

// Pipeline orchestrates every stage for a brand and its competitors.
type Pipeline struct {
	cfg  config.PipelineConfig
	deps Deps

	relevance  *RelevanceClassifier
	extractor  *ContentExtractor
	sizer      *CompanySizer
	discoverer *CompetitorDiscoverer
	sentiment  *SentimentAnalyzer
}

// New wires the stages from deps.
func New(cfg config.PipelineConfig, deps Deps) *Pipeline {
	cfg = withDefaults(cfg)
	return &Pipeline{
		cfg:        cfg,
		deps:       deps,
		relevance:  NewRelevanceClassifier(deps.LLM, cfg),
		extractor:  NewContentExtractor(deps.LLM, deps.Reader, cfg),
		sizer:      NewCompanySizer(deps.LLM, deps.Search, deps.Research, deps.Guard, cfg),
		discoverer: NewCompetitorDiscoverer(deps.LLM, cfg),
		sentiment:  NewSentimentAnalyzer(deps.LLM),
	}
}

// Config returns the effective stage configuration.
func (p *Pipeline) Config() config.PipelineConfig { return p.cfg }

// SearchBrand runs brand search.
func (p *Pipeline) SearchBrand(ctx context.Context, run *RunContext, brand, brandContext string) model.SearchOutcome {
	out := p.deps.Search.BrandSearch(ctx, brand, brandContext)
	run.RecordSearch(len(out.Queries))
	return out
}

// FilterResults runs the relevance filter over brand search results.
func (p *Pipeline) FilterResults(ctx context.Context, run *RunContext, results []model.SearchResult, brand, brandContext string) []model.ScoredResult {
	return p.relevance.FilterBrandResults(ctx, run, results, brand, brandContext)
}

// ExtractContent builds the brand profile.
func (p *Pipeline) ExtractContent(ctx context.Context, run *RunContext, brand, brandContext string, results []model.ScoredResult) model.ExtractionOutcome {
	return p.extractor.Extract(ctx, run, brand, brandContext, results)
}

// SizeCompany classifies the brand's company size.
func (p *Pipeline) SizeCompany(ctx context.Context, run *RunContext, brand, brandContext string) model.SizingOutcome {
	return p.sizer.Size(ctx, run, brand, brandContext)
}

// SearchReddit finds Reddit threads about brand.
func (p *Pipeline) SearchReddit(ctx context.Context, run *RunContext, brand, brandContext string) model.RedditOutcome {
	out := p.deps.Search.RedditSearch(ctx, brand, brandContext)
	run.RecordSearch(len(out.Queries))
	return out
}

// FilterThreads keeps threads that meet the Reddit threshold.
func (p *Pipeline) FilterThreads(ctx context.Context, run *RunContext, threads []model.RedditThread, brand, brandContext string) []model.RedditThread {
	return p.relevance.FilterThreads(ctx, run, threads, brand, brandContext)
}

// DiscoverCompetitors finds up to limit competitors in threads.
func (p *Pipeline) DiscoverCompetitors(ctx context.Context, run *RunContext, brand string, threads []model.RedditThread, limit int) model.CompetitorSet {
	return p.discoverer.Discover(ctx, run, brand, threads, limit)
}

// AnalyzeSentiment scores brand sentiment in threads.
func (p *Pipeline) AnalyzeSentiment(ctx context.Context, run *RunContext, brand string, threads []model.RedditThread) model.SentimentResult {
	return p.sentiment.Analyze(ctx, run, brand, threads)
}

// Run executes every stage for req.Brand and returns the scorecard. The
// scorecard is returned even when stages fail; err is set only for an
// invalid request or when ctx ends before the run completes, in which case
// the scorecard is marked failed.
func (p *Pipeline) Run(ctx context.Context, req Request, sink ProgressSink) (*model.Scorecard, error) {
	brand := strings.TrimSpace(req.Brand)
	if brand == "" {
		return nil, eris.New("pipeline: brand name is required")
	}
	brandContext := strings.TrimSpace(req.Context)
	limit := p.cfg.MaxCompetitors
	if req.MaxCompetitors != nil {
		limit = max(*req.MaxCompetitors, 0)
	}

	run := NewRunContext(brand)
	createdAt := time.Now().UTC()
	log := zap.L().With(zap.String("brand", brand), zap.String("scorecard_id", run.ID))
	log.Info("pipeline: starting scorecard run", zap.Int("max_competitors", limit))

	if p.deps.Store != nil {
		pending := &model.Scorecard{ID: run.ID, BrandName: brand, CreatedAt: createdAt, Status: model.ScorecardGenerating}
		if err := p.deps.Store.CreateScorecard(ctx, pending); err != nil {
			log.Warn("pipeline: failed to create scorecard record", zap.Error(err))
		}
	}

	search := track(ctx, sink, StepBrandSearch, func() model.SearchOutcome {
		return p.SearchBrand(ctx, run, brand, brandContext)
	})
	scored := track(ctx, sink, StepRelevance, func() []model.ScoredResult {
		return p.FilterResults(ctx, run, search.Results, brand, brandContext)
	})
	extraction := track(ctx, sink, StepContentExtraction, func() model.ExtractionOutcome {
		return p.ExtractContent(ctx, run, brand, brandContext, scored)
	})
	sizing := track(ctx, sink, StepCompanySizing, func() model.SizingOutcome {
		return p.SizeCompany(ctx, run, brand, brandContext)
	})
	reddit := track(ctx, sink, StepRedditSearch, func() model.RedditOutcome {
		return p.SearchReddit(ctx, run, brand, brandContext)
	})
	threads := track(ctx, sink, StepRedditRelevance, func() []model.RedditThread {
		return p.FilterThreads(ctx, run, reddit.Threads, brand, brandContext)
	})
	competitors := track(ctx, sink, StepCompetitorDiscovery, func() model.CompetitorSet {
		return p.DiscoverCompetitors(ctx, run, brand, threads, limit)
	})
	sentiment := track(ctx, sink, StepSentiment, func() model.SentimentResult {
		return p.AnalyzeSentiment(ctx, run, brand, threads)
	})
	reports := track(ctx, sink, StepCompetitorAnalysis, func() []model.CompetitorReport {
		return p.analyzeCompetitors(ctx, run, competitors.Competitors, brandContext, limit, sink)
	})

	sc := track(ctx, sink, StepScorecard, func() model.Scorecard {
		sc := Assemble(AssembleInput{
			ID:                run.ID,
			Brand:             brand,
			CreatedAt:         createdAt,
			Results:           scored,
			Extraction:        extraction,
			Sizing:            sizing,
			Threads:           threads,
			Competitors:       competitors,
			Sentiment:         sentiment,
			CompetitorReports: reports,
			OfficialThreshold: p.cfg.OfficialThreshold,
		})
		sc.Usage = run.Usage()
		if p.deps.Cost != nil {
			sc.Usage.EstimatedCostUSD = p.deps.Cost.Estimate(p.deps.LLM.Model(), p.deps.Search.Provider(), sc.Usage, run.PerplexityRequests())
		}
		completed := time.Now().UTC()
		sc.CompletedAt = &completed
		return sc
	})

	var runErr error
	if err := ctx.Err(); err != nil {
		sc.Status = model.ScorecardFailed
		sc.Error = "run interrupted: " + err.Error()
		runErr = eris.Wrap(err, "pipeline: run interrupted")
	}

	if p.deps.Store != nil {
		// The caller's context may be done; the final record is still written.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		var err error
		if runErr != nil {
			err = p.deps.Store.UpdateScorecardStatus(saveCtx, sc.ID, model.ScorecardFailed, sc.Error)
		} else {
			err = p.deps.Store.SaveScorecard(saveCtx, &sc)
		}
		if err != nil {
			log.Warn("pipeline: failed to persist scorecard", zap.Error(err))
		}
		cancel()
	}

	log.Info("pipeline: scorecard run finished",
		zap.String("status", string(sc.Status)),
		zap.Int("competitors", len(sc.Competitors)),
		zap.Int("llm_calls", sc.Usage.LLMCalls),
		zap.Int("search_queries", sc.Usage.SearchQueries),
		zap.Float64("estimated_cost_usd", sc.Usage.EstimatedCostUSD),
	)
	return &sc, runErr
}

// analyzeCompetitors runs the per-competitor sub-pipeline for up to limit
// names concurrently. A failing branch never cancels its siblings.
func (p *Pipeline) analyzeCompetitors(ctx context.Context, run *RunContext, names []string, brandContext string, limit int, sink ProgressSink) []model.CompetitorReport {
	if len(names) > limit {
		names = names[:limit]
	}
	reports := make([]model.CompetitorReport, len(names))
	if len(names) == 0 {
		return reports
	}

	var g errgroup.Group
	g.SetLimit(len(names))
	for i, name := range names {
		g.Go(func() error {
			sink.emit(StepCompetitorAnalysis, model.StepRunning, "Analyzing competitor "+name, nil)
			reports[i] = p.analyzeCompetitor(ctx, run, name, brandContext, limit)
			sink.emit(StepCompetitorAnalysis, model.StepComplete, "Finished competitor "+name, reports[i])
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func (p *Pipeline) analyzeCompetitor(ctx context.Context, run *RunContext, name, brandContext string, limit int) model.CompetitorReport {
	report := model.CompetitorReport{Name: name, RelatedBrands: []string{}}

	reddit := p.SearchReddit(ctx, run, name, brandContext)
	report.Threads = p.FilterThreads(ctx, run, reddit.Threads, name, brandContext)
	report.Subreddits = RankSubreddits(report.Threads)

	related := p.DiscoverCompetitors(ctx, run, name, report.Threads, limit)
	for _, r := range related.Competitors {
		if !strings.EqualFold(r, run.Brand) {
			report.RelatedBrands = append(report.RelatedBrands, r)
		}
	}

	report.Sentiment = p.AnalyzeSentiment(ctx, run, name, report.Threads)
	switch {
	case reddit.Error != "":
		report.Error = reddit.Error
	case related.Error != "":
		report.Error = related.Error
	case report.Sentiment.Error != "":
		report.Error = report.Sentiment.Error
	}
	return report
}

// track runs one step, reporting its start, end and output to sink.
func track[T any](ctx context.Context, sink ProgressSink, step string, fn func() T) T {
	sink.emit(step, model.StepRunning, "", nil)
	start := time.Now()
	out := fn()
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		zap.L().Warn("pipeline: step interrupted", zap.String("step", step), zap.Error(err))
		sink.emit(step, model.StepFailed, err.Error(), out)
		return out
	}
	zap.L().Info("pipeline: step complete",
		zap.String("step", step),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
	sink.emit(step, model.StepComplete, stepMessage(out), out)
	return out
}

// stepMessage summarizes a stage output for progress events.
func stepMessage(out any) string {
	switch v := out.(type) {
	case model.SearchOutcome:
		if v.Error != "" {
			return v.Error
		}
	case model.RedditOutcome:
		if v.Error != "" {
			return v.Error
		}
	case model.ExtractionOutcome:
		return v.Error
	case model.SizingOutcome:
		if v.Fallback {
			return "No sizing data found; using fallback tier"
		}
		return v.Error
	case model.CompetitorSet:
		return v.Error
	case model.SentimentResult:
		return v.Error
	}
	return ""
}
