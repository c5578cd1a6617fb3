package search

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/resilience"
)

// NoResultsError is reported by BrandSearch when nothing came back.
const NoResultsError = "No results found"

// Options are the per-kind caps used by Adapter.
type Options struct {
	DefaultResults   int
	EarlyExitResults int
	MaxRedditThreads int
	SizingResultCap  int
}

// OptionsFromConfig reads adapter options from the loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DefaultResults:   cfg.Search.DefaultResults,
		EarlyExitResults: cfg.Pipeline.EarlyExitResults,
		MaxRedditThreads: cfg.Pipeline.MaxRedditThreads,
		SizingResultCap:  cfg.Pipeline.SizingResultCap,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultResults <= 0 {
		o.DefaultResults = 10
	}
	if o.EarlyExitResults <= 0 {
		o.EarlyExitResults = 4
	}
	if o.MaxRedditThreads <= 0 {
		o.MaxRedditThreads = 10
	}
	if o.SizingResultCap <= 0 {
		o.SizingResultCap = 5
	}
	return o
}

// Adapter turns a brand into the search queries each pipeline stage
// needs and normalizes the hits it gets back.
type Adapter struct {
	provider  Provider
	guard     *resilience.Guard
	templates *Templates
	opts      Options
}

// NewAdapter builds an Adapter. A nil templates value uses the embedded
// defaults.
func NewAdapter(p Provider, g *resilience.Guard, t *Templates, opts Options) *Adapter {
	if t == nil {
		t = DefaultTemplates()
	}
	return &Adapter{provider: p, guard: g, templates: t, opts: opts.withDefaults()}
}

// Provider returns the underlying search provider name.
func (a *Adapter) Provider() string { return a.provider.Name() }

// query runs one guarded search. Failures are logged and yield no hits.
func (a *Adapter) query(ctx context.Context, kind string, q Query) []Hit {
	hits, err := resilience.Call(ctx, a.guard, a.provider.Name(), "search", func(ctx context.Context) ([]Hit, error) {
		return a.provider.Search(ctx, q)
	})
	if err != nil {
		zap.L().Warn("search: query failed, skipping",
			zap.String("kind", kind),
			zap.String("query", q.Text),
			zap.Error(err),
		)
		return nil
	}
	return hits
}

// BrandSearch issues the brand variants in order and stops as soon as one
// query returns at least EarlyExitResults hits.
func (a *Adapter) BrandSearch(ctx context.Context, brand, brandContext string) model.SearchOutcome {
	out := model.SearchOutcome{Results: []model.SearchResult{}}
	seen := map[string]bool{}

	for _, tmpl := range a.templates.Brand {
		if ctx.Err() != nil {
			break
		}
		q := Query{Text: tmpl.Render(brand, brandContext), NumResults: a.opts.DefaultResults, IncludeDomains: tmpl.Domains}
		out.Queries = append(out.Queries, q.Text)
		hits := a.query(ctx, "brand", q)
		for _, h := range hits {
			if h.URL == "" || seen[h.URL] {
				continue
			}
			seen[h.URL] = true
			out.Results = append(out.Results, model.SearchResult{
				Title:            h.Title,
				URL:              h.URL,
				Content:          h.Content,
				PreliminaryScore: ScoreBrandResult(h.Title, h.URL, h.Content, brand, brandContext),
			})
		}
		if len(hits) >= a.opts.EarlyExitResults {
			break
		}
	}

	sort.SliceStable(out.Results, func(i, j int) bool {
		return out.Results[i].PreliminaryScore > out.Results[j].PreliminaryScore
	})
	if len(out.Results) == 0 {
		out.Error = NoResultsError
	}
	zap.L().Info("search: brand search complete",
		zap.String("brand", brand),
		zap.Int("queries", len(out.Queries)),
		zap.Int("results", len(out.Results)),
	)
	return out
}

// RedditSearch issues every Reddit variant restricted to reddit.com and
// keeps comment threads only.
func (a *Adapter) RedditSearch(ctx context.Context, brand, brandContext string) model.RedditOutcome {
	out := model.RedditOutcome{Threads: []model.RedditThread{}}
	seen := map[string]bool{}

	for _, tmpl := range a.templates.Reddit {
		if ctx.Err() != nil {
			break
		}
		q := Query{Text: tmpl.Render(brand, brandContext), NumResults: a.opts.DefaultResults, IncludeDomains: []string{"reddit.com"}}
		out.Queries = append(out.Queries, q.Text)
		for _, h := range a.query(ctx, "reddit", q) {
			if seen[h.URL] {
				continue
			}
			t, ok := ParseThread(h, brand)
			if !ok {
				continue
			}
			seen[h.URL] = true
			out.Threads = append(out.Threads, t)
		}
	}

	sort.SliceStable(out.Threads, func(i, j int) bool {
		return out.Threads[i].RelevanceScore > out.Threads[j].RelevanceScore
	})
	if len(out.Threads) > a.opts.MaxRedditThreads {
		out.Threads = out.Threads[:a.opts.MaxRedditThreads]
	}
	if len(out.Threads) == 0 {
		out.Error = "No Reddit threads found"
	}
	zap.L().Info("search: reddit search complete",
		zap.String("brand", brand),
		zap.Int("threads", len(out.Threads)),
	)
	return out
}

// SizingQuery is one of the fixed company-sizing lookups.
type SizingQuery struct {
	Name  string
	Query Query
}

// ConstructSizingQueries renders the sizing variants. It always yields one
// query per configured variant.
func (a *Adapter) ConstructSizingQueries(brand, brandContext string) []SizingQuery {
	qs := make([]SizingQuery, 0, len(a.templates.Sizing))
	for _, tmpl := range a.templates.Sizing {
		qs = append(qs, SizingQuery{
			Name: tmpl.Name,
			Query: Query{
				Text:           tmpl.Render(brand, brandContext),
				NumResults:     a.opts.SizingResultCap,
				IncludeDomains: tmpl.Domains,
			},
		})
	}
	return qs
}

// SizingSearch runs the sizing queries concurrently. A failed query
// contributes nothing; results keep query order and are capped per query.
func (a *Adapter) SizingSearch(ctx context.Context, brand, brandContext string) model.SearchOutcome {
	qs := a.ConstructSizingQueries(brand, brandContext)
	perQuery := make([][]Hit, len(qs))

	g, gctx := errgroup.WithContext(ctx)
	for i, sq := range qs {
		g.Go(func() error {
			hits := a.query(gctx, "sizing", sq.Query)
			if len(hits) > a.opts.SizingResultCap {
				hits = hits[:a.opts.SizingResultCap]
			}
			perQuery[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	out := model.SearchOutcome{Results: []model.SearchResult{}}
	seen := map[string]bool{}
	for i, hits := range perQuery {
		out.Queries = append(out.Queries, qs[i].Query.Text)
		for _, h := range hits {
			if h.URL == "" || seen[h.URL] {
				continue
			}
			seen[h.URL] = true
			out.Results = append(out.Results, model.SearchResult{Title: h.Title, URL: h.URL, Content: h.Content})
		}
	}
	if len(out.Results) == 0 {
		out.Error = NoResultsError
	}
	return out
}
