package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
)

func verdict(official, relevant bool, confidence float64) string {
	return fmt.Sprintf(`{"isOfficialSite": %t, "isRelevant": %t, "confidenceScore": %g, "signals": {"domainMatch": %t}, "reasoning": "test", "brandMatch": %t}`,
		official, relevant, confidence, official, relevant)
}

// byURL answers relevance prompts using the verdict registered for the
// URL found in the prompt.
func byURL(verdicts map[string]string) func(llm.Request) (string, error) {
	return func(req llm.Request) (string, error) {
		text := userText(req)
		for url, v := range verdicts {
			if strings.Contains(text, "URL: "+url+"\n") {
				return v, nil
			}
		}
		return "", errors.New("no verdict for prompt")
	}
}

func TestEvaluate_ClampsConfidence(t *testing.T) {
	p := newFakeLLM(byURL(map[string]string{
		"https://high.com": verdict(true, true, 150),
		"https://low.com":  verdict(false, false, -20),
	}))
	c := NewRelevanceClassifier(p, config.PipelineConfig{})
	run := NewRunContext("Acme")

	high := c.Evaluate(context.Background(), run, model.SearchResult{URL: "https://high.com"}, "Acme", "")
	low := c.Evaluate(context.Background(), run, model.SearchResult{URL: "https://low.com"}, "Acme", "")

	assert.Equal(t, 100, high.ConfidenceScore)
	assert.True(t, high.IsOfficialSite)
	assert.Equal(t, 0, low.ConfidenceScore)
	assert.Equal(t, 2, run.Usage().LLMCalls)
}

func TestEvaluate_SeenURLSkipsModel(t *testing.T) {
	p := newFakeLLM(byURL(map[string]string{"https://acme.com": verdict(true, true, 90)}))
	c := NewRelevanceClassifier(p, config.PipelineConfig{})
	run := NewRunContext("Acme")
	r := model.SearchResult{URL: "https://acme.com"}

	first := c.Evaluate(context.Background(), run, r, "Acme", "")
	second := c.Evaluate(context.Background(), run, r, "Acme", "")

	assert.Equal(t, 90, first.ConfidenceScore)
	assert.True(t, second.Skipped)
	assert.False(t, second.IsRelevant)
	assert.Zero(t, second.ConfidenceScore)
	assert.Equal(t, 1, p.callCount())
}

func TestEvaluate_FailureContract(t *testing.T) {
	p := newFakeLLM(func(llm.Request) (string, error) { return "", errors.New("rate limited") })
	c := NewRelevanceClassifier(p, config.PipelineConfig{})

	e := c.Evaluate(context.Background(), NewRunContext("Acme"), model.SearchResult{URL: "https://acme.com"}, "Acme", "")

	assert.Equal(t, model.EvaluationFailedReasoning, e.Reasoning)
	assert.False(t, e.IsOfficialSite)
	assert.False(t, e.IsRelevant)
	assert.Zero(t, e.ConfidenceScore)
	assert.NotNil(t, e.Signals)
}

func TestEvaluate_MalformedOutputRetriedThenFails(t *testing.T) {
	p := newFakeLLM(func(llm.Request) (string, error) { return "I think it is relevant.", nil })
	c := NewRelevanceClassifier(p, config.PipelineConfig{})

	e := c.Evaluate(context.Background(), NewRunContext("Acme"), model.SearchResult{URL: "https://acme.com"}, "Acme", "")

	assert.Equal(t, model.EvaluationFailedReasoning, e.Reasoning)
	assert.Equal(t, 2, p.callCount())
}

func TestFilterBrandResults_ThresholdAndOrder(t *testing.T) {
	p := newFakeLLM(byURL(map[string]string{
		"https://acme.com":       verdict(true, true, 95),
		"https://wiki.org/acme":  verdict(false, true, 80),
		"https://news.com/acme":  verdict(false, true, 80),
		"https://random.com":     verdict(false, false, 90),
		"https://weak.com/acme":  verdict(false, true, 45),
		"https://acme.com/about": verdict(true, true, 60),
	}))
	c := NewRelevanceClassifier(p, config.PipelineConfig{})
	results := []model.SearchResult{
		{URL: "https://wiki.org/acme", PreliminaryScore: 10},
		{URL: "https://random.com"},
		{URL: "https://news.com/acme", PreliminaryScore: 30},
		{URL: "https://acme.com", PreliminaryScore: 80},
		{URL: "https://weak.com/acme"},
		{URL: "https://acme.com/about"},
	}

	kept := c.FilterBrandResults(context.Background(), NewRunContext("Acme"), results, "Acme", "")

	urls := make([]string, 0, len(kept))
	for _, k := range kept {
		urls = append(urls, k.URL)
		assert.GreaterOrEqual(t, k.Evaluation.ConfidenceScore, 50)
	}
	assert.Equal(t, []string{"https://acme.com", "https://news.com/acme", "https://wiki.org/acme", "https://acme.com/about"}, urls)
}

func TestFilterBrandResults_DuplicateURLEvaluatedOnce(t *testing.T) {
	p := newFakeLLM(byURL(map[string]string{"https://acme.com": verdict(true, true, 90)}))
	c := NewRelevanceClassifier(p, config.PipelineConfig{EvalConcurrency: 1})
	results := []model.SearchResult{{URL: "https://acme.com"}, {URL: "https://acme.com"}}

	kept := c.FilterBrandResults(context.Background(), NewRunContext("Acme"), results, "Acme", "")

	assert.Len(t, kept, 1)
	assert.Equal(t, 1, p.callCount())
}

func TestFilterThreads_AllBelowThreshold(t *testing.T) {
	verdicts := map[string]string{}
	var threads []model.RedditThread
	for i := range 5 {
		th := thread(fmt.Sprintf("t%d", i), "gadgets", "Acme thoughts", "meh")
		threads = append(threads, th)
		verdicts[th.URL] = verdict(false, true, 40)
	}
	c := NewRelevanceClassifier(newFakeLLM(byURL(verdicts)), config.PipelineConfig{})
	run := NewRunContext("Acme")

	kept := c.FilterThreads(context.Background(), run, threads, "Acme", "")

	assert.Empty(t, kept)
	assert.NotNil(t, kept)
	for _, th := range threads {
		e := c.EvaluateThread(context.Background(), NewRunContext("Acme"), th, "Acme", "")
		assert.False(t, e.MeetsThreshold)
	}
}

func TestFilterThreads_KeepsQualifyingWithEvaluation(t *testing.T) {
	good := thread("a", "BuyItForLife", "Acme anvil review", "lasted 20 years")
	irrelevant := thread("b", "BuyItForLife", "Best boots", "not about acme")
	c := NewRelevanceClassifier(newFakeLLM(byURL(map[string]string{
		good.URL:       verdict(false, true, 75),
		irrelevant.URL: verdict(false, false, 95),
	})), config.PipelineConfig{})

	kept := c.FilterThreads(context.Background(), NewRunContext("Acme"), []model.RedditThread{good, irrelevant}, "Acme", "")

	require.Len(t, kept, 1)
	assert.Equal(t, good.URL, kept[0].URL)
	require.NotNil(t, kept[0].Evaluation)
	assert.True(t, kept[0].Evaluation.MeetsThreshold)
	assert.Equal(t, 75, kept[0].Evaluation.ConfidenceScore)
}
