package registry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/pipeline"
)

type stubLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (s *stubLLM) Name() string  { return "stub" }
func (s *stubLLM) Model() string { return "stub-model" }

func (s *stubLLM) Complete(context.Context, llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Text: s.reply}, nil
}

type stubSearch struct{}

func (stubSearch) Provider() string { return "stub" }

func (stubSearch) BrandSearch(_ context.Context, brand, _ string) model.SearchOutcome {
	if brand == "Acme" {
		return model.SearchOutcome{Queries: []string{"Acme official website"}, Results: []model.SearchResult{{Title: "Acme", URL: "https://acme.com"}}}
	}
	return model.SearchOutcome{Results: []model.SearchResult{}, Error: "No results found"}
}

func (stubSearch) RedditSearch(context.Context, string, string) model.RedditOutcome {
	return model.RedditOutcome{Threads: []model.RedditThread{}, Error: "No Reddit threads found"}
}

func (stubSearch) SizingSearch(context.Context, string, string) model.SearchOutcome {
	return model.SearchOutcome{Results: []model.SearchResult{}, Error: "No results found"}
}

func buildRegistry(t *testing.T, p llm.Provider) *Registry {
	t.Helper()
	r, err := Build(pipeline.New(config.PipelineConfig{}, pipeline.Deps{LLM: p, Search: stubSearch{}}))
	require.NoError(t, err)
	return r
}

const threadsBody = `{"brandName": "Acme", "threads": [{"title": "Acme vs Globex", "url": "https://www.reddit.com/r/tools/comments/1/", "subreddit": "r/tools", "content": "Globex is cheaper than Acme"}]}`

func TestBuild_RegistersEveryStage(t *testing.T) {
	r := buildRegistry(t, &stubLLM{})

	var ids []string
	for _, info := range r.Tools() {
		ids = append(ids, info.ID)
	}
	assert.ElementsMatch(t, []string{
		"brand-search", "relevance", "content-extraction", "company-sizing", "reddit-search",
		"reddit-relevance", "competitor-discovery", "sentiment", "scorecard",
	}, ids)

	wf, ok := r.Workflow(WorkflowBrandScorecard)
	require.True(t, ok)
	assert.Len(t, wf.Steps, 9)
	assert.Equal(t, "brand-search", wf.Steps[0])
	assert.Equal(t, "scorecard", wf.Steps[8])
}

func TestAgent_BrandSearchEmitsEvents(t *testing.T) {
	r := buildRegistry(t, &stubLLM{})
	var events []model.StepEvent

	out, err := r.ExecuteTool(context.Background(), "brand-search", json.RawMessage(`{"brandName": "Acme"}`), func(e model.StepEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)

	outcome, ok := out.(model.SearchOutcome)
	require.True(t, ok)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "https://acme.com", outcome.Results[0].URL)

	require.Len(t, events, 2)
	assert.Equal(t, model.StepRunning, events[0].Status)
	assert.Equal(t, model.StepComplete, events[1].Status)
	assert.Equal(t, "brand-search", events[1].Step)
}

func TestAgent_Sentiment(t *testing.T) {
	p := &stubLLM{reply: `{"mentions": [{"text": "cheap", "sentiment": "NEGATIVE"}]}`}
	r := buildRegistry(t, p)

	out, err := r.ExecuteTool(context.Background(), "sentiment", json.RawMessage(threadsBody), nil)
	require.NoError(t, err)

	res := out.(model.SentimentResult)
	assert.Equal(t, 0.0, res.SentimentScore)
	assert.Equal(t, 1, res.TotalMentions)
}

func TestAgent_CompetitorDiscovery(t *testing.T) {
	p := &stubLLM{reply: `{"competitors": ["Globex", "Acme"]}`}
	r := buildRegistry(t, p)
	ctx := context.Background()

	out, err := r.ExecuteTool(ctx, "competitor-discovery", json.RawMessage(threadsBody), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Globex"}, out.(model.CompetitorSet).Competitors)

	body := strings.Replace(threadsBody, `"brandName": "Acme"`, `"brandName": "Acme", "maxCompetitors": 0`, 1)
	out, err = r.ExecuteTool(ctx, "competitor-discovery", json.RawMessage(body), nil)
	require.NoError(t, err)
	assert.Empty(t, out.(model.CompetitorSet).Competitors)
	assert.Equal(t, 1, p.calls)

	_, err = r.ExecuteTool(ctx, "competitor-discovery", json.RawMessage(`{"brandName": "Acme", "maxCompetitors": 11}`), nil)
	assert.True(t, eris.Is(err, ErrInvalidInput))
}

func TestAgent_ScorecardAssembles(t *testing.T) {
	r := buildRegistry(t, &stubLLM{})

	out, err := r.ExecuteTool(context.Background(), "scorecard", json.RawMessage(`{
		"brandName": "Acme",
		"results": [{"url": "https://acme.com", "title": "Acme", "evaluation": {"isOfficialSite": true, "confidenceScore": 90}}],
		"competitors": {"competitors": ["Globex"], "competitorMentions": {"Globex": 2}},
		"sentiment": {"sentimentScore": 8, "totalMentions": 5}
	}`), nil)
	require.NoError(t, err)

	sc := out.(model.Scorecard)
	assert.NotEmpty(t, sc.ID)
	assert.Equal(t, model.ScorecardCompleted, sc.Status)
	assert.Equal(t, "https://acme.com", sc.BrandWebsite)
	assert.Equal(t, model.SizeUnknown, sc.CompanySize)
	assert.Equal(t, 8.0, sc.Sentiment.Brand)
	assert.Equal(t, map[string]float64{"Globex": model.NeutralSentiment}, sc.Sentiment.Competitors)
}

func TestWorkflow_BrandScorecard(t *testing.T) {
	r := buildRegistry(t, &stubLLM{err: errors.New("offline")})
	var (
		mu    sync.Mutex
		steps []string
	)

	out, err := r.ExecuteWorkflow(context.Background(), WorkflowBrandScorecard, json.RawMessage(`{"brandName": "Zzyzx123"}`), func(e model.StepEvent) {
		mu.Lock()
		defer mu.Unlock()
		if e.Status == model.StepComplete {
			steps = append(steps, e.Step)
		}
	})
	require.NoError(t, err)

	sc := out.(*model.Scorecard)
	assert.Equal(t, "Zzyzx123", sc.BrandName)
	assert.Equal(t, model.ScorecardCompleted, sc.Status)
	assert.Empty(t, sc.BrandWebsite)
	assert.Equal(t, pipeline.Steps(), steps)
}

func TestWorkflow_RejectsBlankBrand(t *testing.T) {
	r := buildRegistry(t, &stubLLM{})

	_, err := r.ExecuteWorkflow(context.Background(), WorkflowBrandScorecard, json.RawMessage(`{"brandName": "   "}`), nil)
	assert.True(t, eris.Is(err, ErrInvalidInput))
}

func TestAgents_RejectBlankBrand(t *testing.T) {
	p := &stubLLM{reply: `{"competitors": ["Globex"]}`}
	r := buildRegistry(t, p)

	for _, info := range r.Tools() {
		t.Run(info.ID, func(t *testing.T) {
			var events []model.StepEvent
			_, err := r.ExecuteTool(context.Background(), info.ID, json.RawMessage(`{"brandName": " \t "}`), func(e model.StepEvent) {
				events = append(events, e)
			})
			assert.True(t, eris.Is(err, ErrInvalidInput), "%v", err)
			assert.Empty(t, events)
		})
	}
	assert.Zero(t, p.calls)
}
