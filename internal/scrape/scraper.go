// Package scrape fetches readable page text for thin search results,
// trying Jina Reader first and a local readability parse second.
package scrape

import "context"

// Page is the readable text of one URL.
type Page struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Source string `json:"source"` // jina, readability
}

// Scraper fetches a single URL and returns its readable text.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
	Name() string
	Supports(url string) bool
}
