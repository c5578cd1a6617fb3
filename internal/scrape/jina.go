package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/resilience"
	"github.com/sells-group/brand-scorecard/pkg/jina"
)

// minReaderChars is the shortest Reader body accepted as real content.
const minReaderChars = 100

// JinaScraper reads pages through Jina Reader. A shared breaker skips the
// Reader entirely while it is failing.
type JinaScraper struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaScraper wraps a Jina client. A nil breaker gets the package
// defaults.
func NewJinaScraper(client jina.Client, breaker *resilience.CircuitBreaker) *JinaScraper {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("jina-reader", resilience.DefaultCircuitBreakerConfig())
	}
	return &JinaScraper{client: client, breaker: breaker}
}

// Name implements Scraper.
func (j *JinaScraper) Name() string { return "jina" }

// Supports is false while the breaker is open.
func (j *JinaScraper) Supports(_ string) bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Scrape implements Scraper.
func (j *JinaScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*Page, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, eris.Errorf("jina: unusable reader response for %s", targetURL)
		}
		pageURL := resp.Data.URL
		if pageURL == "" {
			pageURL = targetURL
		}
		return &Page{
			URL:    pageURL,
			Title:  resp.Data.Title,
			Text:   strings.TrimSpace(resp.Data.Content),
			Source: "jina",
		}, nil
	})
}

// needsFallback is true when a Reader response is empty, non-200 or a
// challenge page.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}
	content := strings.TrimSpace(resp.Data.Content)
	return len(content) < minReaderChars || LooksBlocked(content)
}
