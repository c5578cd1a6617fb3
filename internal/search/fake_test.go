package search

import (
	"context"
	"strings"
	"sync"
)

// fakeProvider answers queries by substring match on the query text.
type fakeProvider struct {
	mu      sync.Mutex
	answers map[string][]Hit
	fail    map[string]error
	calls   []Query
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{answers: map[string][]Hit{}, fail: map[string]error{}}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, q Query) ([]Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	for sub, err := range f.fail {
		if strings.Contains(q.Text, sub) {
			return nil, err
		}
	}
	for sub, hits := range f.answers {
		if strings.Contains(q.Text, sub) {
			return hits, nil
		}
	}
	return nil, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func hits(urls ...string) []Hit {
	out := make([]Hit, 0, len(urls))
	for _, u := range urls {
		out = append(out, Hit{Title: u, URL: u, Content: "content for " + u})
	}
	return out
}
