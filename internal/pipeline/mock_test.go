package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/scrape"
)

// fakeLLM answers each request through a handler keyed on the system
// prompt, so concurrent stages can share one provider.
type fakeLLM struct {
	mu      sync.Mutex
	handler func(req llm.Request) (string, error)
	calls   []llm.Request
}

func newFakeLLM(handler func(req llm.Request) (string, error)) *fakeLLM {
	return &fakeLLM{handler: handler}
}

func (f *fakeLLM) Name() string  { return "fake" }
func (f *fakeLLM) Model() string { return "fake-model" }

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	text, err := f.handler(req)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Text: text, Model: "fake-model", Usage: model.TokenUsage{InputTokens: 10, OutputTokens: 5}}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// callsWithSystem counts requests whose system prompt starts with prefix.
func (f *fakeLLM) callsWithSystem(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c.System, prefix) {
			n++
		}
	}
	return n
}

func userText(req llm.Request) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[0].Content
}

// fakeSearcher returns canned outcomes per brand.
type fakeSearcher struct {
	mu     sync.Mutex
	brand  map[string]model.SearchOutcome
	reddit map[string]model.RedditOutcome
	sizing map[string]model.SearchOutcome
	calls  []string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		brand:  map[string]model.SearchOutcome{},
		reddit: map[string]model.RedditOutcome{},
		sizing: map[string]model.SearchOutcome{},
	}
}

func (f *fakeSearcher) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSearcher) Provider() string { return "fake" }

func (f *fakeSearcher) BrandSearch(_ context.Context, brand, _ string) model.SearchOutcome {
	f.record("brand:" + brand)
	if out, ok := f.brand[brand]; ok {
		return out
	}
	return model.SearchOutcome{Results: []model.SearchResult{}, Queries: []string{brand}, Error: "No results found"}
}

func (f *fakeSearcher) RedditSearch(_ context.Context, brand, _ string) model.RedditOutcome {
	f.record("reddit:" + brand)
	if out, ok := f.reddit[brand]; ok {
		return out
	}
	return model.RedditOutcome{Threads: []model.RedditThread{}, Queries: []string{brand}, Error: "No Reddit threads found"}
}

func (f *fakeSearcher) SizingSearch(_ context.Context, brand, _ string) model.SearchOutcome {
	f.record("sizing:" + brand)
	if out, ok := f.sizing[brand]; ok {
		return out
	}
	return model.SearchOutcome{Results: []model.SearchResult{}, Queries: []string{"q1", "q2", "q3", "q4"}, Error: "No results found"}
}

// fakeReader serves page text by URL.
type fakeReader struct {
	pages map[string]string
}

func (f *fakeReader) Scrape(_ context.Context, url string) (*scrape.Page, error) {
	text, ok := f.pages[url]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return &scrape.Page{URL: url, Text: text, Source: "fake"}, nil
}

// mockStore is a testify mock of ScorecardStore.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateScorecard(ctx context.Context, sc *model.Scorecard) error {
	return m.Called(ctx, sc).Error(0)
}

func (m *mockStore) UpdateScorecardStatus(ctx context.Context, id string, status model.ScorecardStatus, errMsg string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *mockStore) SaveScorecard(ctx context.Context, sc *model.Scorecard) error {
	return m.Called(ctx, sc).Error(0)
}

func thread(id, sub, title, content string) model.RedditThread {
	return model.RedditThread{
		Title:     title,
		URL:       "https://www.reddit.com/r/" + sub + "/comments/" + id + "/",
		Subreddit: "r/" + sub,
		Content:   content,
	}
}
