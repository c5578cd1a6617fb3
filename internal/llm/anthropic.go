package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/pkg/anthropic"
)

// jsonPrefill is sent as the start of the assistant turn so the model
// continues a JSON object instead of writing prose first.
const jsonPrefill = "{"

// AnthropicProvider completes requests with the Anthropic Messages API.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropicProvider wraps an Anthropic client.
func NewAnthropicProvider(client anthropic.Client, modelID string, maxTokens int, temperature float64) *AnthropicProvider {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &AnthropicProvider{client: client, model: modelID, maxTokens: maxTokens, temperature: temperature}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Model implements Provider.
func (p *AnthropicProvider) Model() string { return p.model }

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	msgs := make([]anthropic.Message, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		msgs = append(msgs, anthropic.Message{Role: string(m.Role), Content: m.Content})
	}
	if req.JSON {
		msgs = append(msgs, anthropic.Message{Role: string(RoleAssistant), Content: jsonPrefill})
	}

	mr := anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: int64(orDefault(req.MaxTokens, p.maxTokens)),
		Messages:  msgs,
	}
	if req.System != "" {
		mr.System = []anthropic.SystemBlock{{Text: req.System, Cached: true}}
	}
	temp := p.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	mr.Temperature = &temp

	resp, err := p.client.CreateMessage(ctx, mr)
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic complete")
	}

	text := resp.Text()
	if req.JSON {
		text = jsonPrefill + text
	}
	return &Response{
		Text:  text,
		Model: resp.Model,
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens + resp.Usage.CacheReadInputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
