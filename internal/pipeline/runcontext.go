package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sells-group/brand-scorecard/internal/model"
)

// RunContext is the state shared by every stage of one pipeline run. It
// is safe for concurrent use by competitor branches.
type RunContext struct {
	ID    string
	Brand string

	mu   sync.Mutex
	seen map[string]struct{}

	llmCalls      atomic.Int64
	searchQueries atomic.Int64
	perplexity    atomic.Int64
	inputTokens   atomic.Int64
	outputTokens  atomic.Int64
}

// NewRunContext starts a run for brand with a fresh id.
func NewRunContext(brand string) *RunContext {
	return &RunContext{
		ID:    uuid.NewString(),
		Brand: brand,
		seen:  make(map[string]struct{}),
	}
}

// MarkIfNew records url as processed. It returns false when url was
// already processed in this run.
func (r *RunContext) MarkIfNew(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[url]; ok {
		return false
	}
	r.seen[url] = struct{}{}
	return true
}

// Seen reports whether url was processed in this run.
func (r *RunContext) Seen(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[url]
	return ok
}

// SeenCount returns the number of distinct processed URLs.
func (r *RunContext) SeenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// RecordLLM adds calls and tokens spent on model completions.
func (r *RunContext) RecordLLM(calls int, usage model.TokenUsage) {
	r.llmCalls.Add(int64(calls))
	r.inputTokens.Add(int64(usage.InputTokens))
	r.outputTokens.Add(int64(usage.OutputTokens))
}

// RecordSearch adds n search queries.
func (r *RunContext) RecordSearch(n int) {
	r.searchQueries.Add(int64(n))
}

// RecordPerplexity adds one research request.
func (r *RunContext) RecordPerplexity() {
	r.perplexity.Add(1)
}

// PerplexityRequests returns the research requests made so far.
func (r *RunContext) PerplexityRequests() int {
	return int(r.perplexity.Load())
}

// Usage snapshots the counters. EstimatedCostUSD is left for the caller.
func (r *RunContext) Usage() model.Usage {
	return model.Usage{
		LLMCalls:      int(r.llmCalls.Load()),
		SearchQueries: int(r.searchQueries.Load()),
		Tokens: model.TokenUsage{
			InputTokens:  int(r.inputTokens.Load()),
			OutputTokens: int(r.outputTokens.Load()),
		},
	}
}
