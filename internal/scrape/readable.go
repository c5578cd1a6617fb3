package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
)

const maxBodyBytes = 2 << 20

// ReadabilityScraper fetches raw HTML and extracts the main article text
// locally. It needs no API key and is the last link of the chain.
type ReadabilityScraper struct {
	client *http.Client
}

// NewReadabilityScraper creates a scraper with its own HTTP client. A nil
// client gets a 15s timeout.
func NewReadabilityScraper(client *http.Client) *ReadabilityScraper {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return &ReadabilityScraper{client: client}
}

// Name implements Scraper.
func (r *ReadabilityScraper) Name() string { return "readability" }

// Supports accepts http and https URLs.
func (r *ReadabilityScraper) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Scrape implements Scraper.
func (r *ReadabilityScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	pageURL, err := url.Parse(targetURL)
	if err != nil {
		return nil, eris.Wrap(err, "readability: parse url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "readability: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; BrandScorecardBot/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "readability: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "readability: read body")
	}
	if blocked, bt := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("readability: blocked (%s)", bt)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("readability: status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "readability: parse article")
	}
	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return nil, eris.New("readability: empty article")
	}
	return &Page{URL: targetURL, Title: strings.TrimSpace(article.Title), Text: text, Source: "readability"}, nil
}
