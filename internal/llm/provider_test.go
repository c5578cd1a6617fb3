package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brand-scorecard/internal/resilience"
	"github.com/sells-group/brand-scorecard/pkg/anthropic"
)

func TestAnthropicProvider_JSONPrefill(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		last := req.Messages[len(req.Messages)-1]
		return req.Model == "claude-haiku" &&
			req.MaxTokens == 512 &&
			len(req.System) == 1 && req.System[0].Cached &&
			last.Role == "assistant" && last.Content == "{"
	})).Return(&anthropic.MessageResponse{
		Model:   "claude-haiku",
		Content: []anthropic.ContentBlock{{Type: "text", Text: `"ok": true}`}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, CacheReadInputTokens: 20, OutputTokens: 8},
	}, nil)

	p := NewAnthropicProvider(client, "claude-haiku", 1024, 0.2)
	req := UserPrompt("classify", "Acme")
	req.JSON = true
	req.MaxTokens = 512

	resp, err := p.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, resp.Text)
	assert.Equal(t, 120, resp.Usage.InputTokens)
	assert.Equal(t, 8, resp.Usage.OutputTokens)
	client.AssertExpectations(t)
}

func TestAnthropicProvider_Error(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := NewAnthropicProvider(client, "m", 0, 0).Complete(context.Background(), UserPrompt("", "hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic complete")
}

type fakeChat struct {
	got  []*schema.Message
	resp *schema.Message
	err  error
}

func (f *fakeChat) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.got = in
	return f.resp, f.err
}

func TestOpenAIProvider_Complete(t *testing.T) {
	chat := &fakeChat{resp: &schema.Message{
		Role:    schema.Assistant,
		Content: `{"competitors":[]}`,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 42, CompletionTokens: 7},
		},
	}}
	p := newOpenAIProvider(chat, "gpt-4o-mini", 0, 0.1)

	req := UserPrompt("find competitors", "threads...")
	req.JSON = true
	resp, err := p.Complete(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, chat.got, 2)
	assert.Equal(t, schema.System, chat.got[0].Role)
	assert.Contains(t, chat.got[0].Content, "single JSON object")
	assert.Equal(t, schema.User, chat.got[1].Role)
	assert.Equal(t, `{"competitors":[]}`, resp.Text)
	assert.Equal(t, 42, resp.Usage.InputTokens)
	assert.Equal(t, 7, resp.Usage.OutputTokens)
}

func TestOpenAIProvider_NilUsage(t *testing.T) {
	chat := &fakeChat{resp: &schema.Message{Content: "hi"}}
	resp, err := newOpenAIProvider(chat, "m", 0, 0).Complete(context.Background(), UserPrompt("", "hi"))
	require.NoError(t, err)
	assert.Zero(t, resp.Usage.InputTokens)
}

func TestGeminiProvider_Complete(t *testing.T) {
	var gotSettings geminiSettings
	var gotPrompt string
	call := func(_ context.Context, cfg geminiSettings, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		gotSettings = cfg
		gotPrompt = string(parts[0].(genai.Text))
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
			}},
			UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 30, CandidatesTokenCount: 4},
		}, nil
	}
	p := newGeminiProvider(call, "gemini-1.5-flash", 256, 0.3)

	req := UserPrompt("sys", "size Acme")
	req.JSON = true
	resp, err := p.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, resp.Text)
	assert.True(t, gotSettings.json)
	assert.Equal(t, "sys", gotSettings.system)
	assert.Equal(t, int32(256), gotSettings.maxTokens)
	assert.Equal(t, "size Acme", gotPrompt)
	assert.Equal(t, 30, resp.Usage.InputTokens)
}

func TestGeminiProvider_NoCandidates(t *testing.T) {
	call := func(context.Context, geminiSettings, ...genai.Part) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	}
	_, err := newGeminiProvider(call, "m", 0, 0).Complete(context.Background(), UserPrompt("", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestWithGuard_RetriesTransient(t *testing.T) {
	sp := &scriptedProvider{
		texts: []string{"", "hello"},
		errs:  []error{resilience.NewTransientError(errors.New("overloaded"), 529), nil},
	}
	g := resilience.NewGuard(0, resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: 1}, resilience.DefaultCircuitBreakerConfig())

	resp, err := WithGuard(sp, g).Complete(context.Background(), UserPrompt("", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Len(t, sp.reqs, 2)
}
