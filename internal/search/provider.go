// Package search adapts hosted web search APIs to the brand pipeline:
// query templates, per-call guarding, heuristic scoring and URL dedupe.
package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/pkg/jina"
	"github.com/sells-group/brand-scorecard/pkg/tavily"
)

// Query is a provider-neutral search request.
type Query struct {
	Text           string   `json:"text"`
	NumResults     int      `json:"numResults"`
	IncludeDomains []string `json:"includeDomains,omitempty"`
	// Fresh asks the provider to skip its cache or favor recent pages.
	Fresh bool `json:"fresh,omitempty"`
}

// Hit is a raw search result before scoring.
type Hit struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Provider runs a single search query.
type Provider interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
	Name() string
}

// TavilyProvider searches through the Tavily API.
type TavilyProvider struct {
	client tavily.Client
}

// NewTavilyProvider wraps a Tavily client.
func NewTavilyProvider(client tavily.Client) *TavilyProvider {
	return &TavilyProvider{client: client}
}

// Name implements Provider.
func (p *TavilyProvider) Name() string { return "tavily" }

// Search implements Provider.
func (p *TavilyProvider) Search(ctx context.Context, q Query) ([]Hit, error) {
	req := tavily.SearchRequest{
		Query:          q.Text,
		MaxResults:     q.NumResults,
		IncludeDomains: q.IncludeDomains,
	}
	if q.Fresh {
		req.SearchDepth = "advanced"
		req.TimeRange = "year"
	}
	resp, err := p.client.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Results))
	for _, r := range resp.Results {
		content := r.Content
		if r.RawContent != "" && len(r.RawContent) > len(content) {
			content = r.RawContent
		}
		hits = append(hits, Hit{Title: r.Title, URL: r.URL, Content: content, Score: r.Score})
	}
	return hits, nil
}

// JinaProvider searches through Jina Search. Jina supports a single site
// filter, so only the first include domain is applied.
type JinaProvider struct {
	client jina.Client
}

// NewJinaProvider wraps a Jina client.
func NewJinaProvider(client jina.Client) *JinaProvider {
	return &JinaProvider{client: client}
}

// Name implements Provider.
func (p *JinaProvider) Name() string { return "jina" }

// Search implements Provider.
func (p *JinaProvider) Search(ctx context.Context, q Query) ([]Hit, error) {
	var opts []jina.SearchOption
	if len(q.IncludeDomains) > 0 {
		opts = append(opts, jina.WithSiteFilter(q.IncludeDomains[0]))
	}
	if q.NumResults > 0 {
		opts = append(opts, jina.WithMaxResults(q.NumResults))
	}
	if q.Fresh {
		opts = append(opts, jina.WithNoCache())
	}
	resp, err := p.client.Search(ctx, q.Text, opts...)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Data))
	for _, r := range resp.Data {
		content := r.Content
		if content == "" {
			content = r.Description
		}
		hits = append(hits, Hit{Title: r.Title, URL: r.URL, Content: content})
	}
	return hits, nil
}

// NewProvider builds the provider named by cfg.Search.Provider.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.Search.Provider {
	case "", "tavily":
		if cfg.Tavily.Key == "" {
			return nil, eris.New("search: tavily.key is required")
		}
		return NewTavilyProvider(tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))), nil
	case "jina":
		if cfg.Jina.Key == "" {
			return nil, eris.New("search: jina.key is required")
		}
		return NewJinaProvider(jina.NewClient(cfg.Jina.Key,
			jina.WithBaseURL(cfg.Jina.BaseURL),
			jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
		)), nil
	default:
		return nil, eris.Errorf("search: unknown provider %q", cfg.Search.Provider)
	}
}
