package llm

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/model"
)

// chatGenerator is the part of an eino chat model we call.
type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// OpenAIProvider completes requests against any OpenAI-compatible endpoint
// through eino.
type OpenAIProvider struct {
	chat        chatGenerator
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIProvider builds an eino chat model for baseURL.
func NewOpenAIProvider(ctx context.Context, baseURL, apiKey, modelID string, maxTokens int, temperature float64) (*OpenAIProvider, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelID,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: create openai chat model")
	}
	return newOpenAIProvider(cm, modelID, maxTokens, temperature), nil
}

func newOpenAIProvider(chat chatGenerator, modelID string, maxTokens int, temperature float64) *OpenAIProvider {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &OpenAIProvider{chat: chat, model: modelID, maxTokens: maxTokens, temperature: temperature}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Model implements Provider.
func (p *OpenAIProvider) Model() string { return p.model }

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	msgs := make([]*schema.Message, 0, len(req.Messages)+1)
	system := req.System
	if req.JSON {
		system += "\n\nRespond with a single JSON object and nothing else."
	}
	if system != "" {
		msgs = append(msgs, &schema.Message{Role: schema.System, Content: system})
	}
	for _, m := range req.Messages {
		role := schema.User
		if m.Role == RoleAssistant {
			role = schema.Assistant
		}
		msgs = append(msgs, &schema.Message{Role: role, Content: m.Content})
	}

	temp := p.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}

	out, err := p.chat.Generate(ctx, msgs,
		einomodel.WithTemperature(float32(temp)),
		einomodel.WithMaxTokens(orDefault(req.MaxTokens, p.maxTokens)),
	)
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai complete")
	}
	if out == nil {
		return nil, eris.New("llm: openai returned no message")
	}

	resp := &Response{Text: out.Content, Model: p.model}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		resp.Usage = model.TokenUsage{
			InputTokens:  out.ResponseMeta.Usage.PromptTokens,
			OutputTokens: out.ResponseMeta.Usage.CompletionTokens,
		}
	}
	return resp, nil
}
