package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"

	"github.com/sells-group/brand-scorecard/internal/model"
)

// geminiCall sends one prompt to a configured Gemini model.
type geminiCall func(ctx context.Context, cfg geminiSettings, parts ...genai.Part) (*genai.GenerateContentResponse, error)

type geminiSettings struct {
	system      string
	json        bool
	temperature float32
	maxTokens   int32
}

// GeminiProvider completes requests with Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	call        geminiCall
	model       string
	maxTokens   int
	temperature float64
}

// NewGeminiProvider creates a Gemini client for modelID.
func NewGeminiProvider(ctx context.Context, apiKey, modelID string, maxTokens int, temperature float64) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, eris.New("llm: gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "llm: create gemini client")
	}

	call := func(ctx context.Context, cfg geminiSettings, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		gm := client.GenerativeModel(modelID)
		gm.SetTemperature(cfg.temperature)
		gm.SetMaxOutputTokens(cfg.maxTokens)
		if cfg.json {
			gm.ResponseMIMEType = "application/json"
		}
		if cfg.system != "" {
			gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(cfg.system)}}
		}
		return gm.GenerateContent(ctx, parts...)
	}

	p := newGeminiProvider(call, modelID, maxTokens, temperature)
	p.client = client
	return p, nil
}

func newGeminiProvider(call geminiCall, modelID string, maxTokens int, temperature float64) *GeminiProvider {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &GeminiProvider{call: call, model: modelID, maxTokens: maxTokens, temperature: temperature}
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Model implements Provider.
func (p *GeminiProvider) Model() string { return p.model }

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Complete implements Provider. Gemini has no multi-turn prefill here, so
// turns are flattened into one prompt with role labels.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	var b strings.Builder
	for i, m := range req.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if len(req.Messages) > 1 {
			b.WriteString(strings.ToUpper(string(m.Role)) + ": ")
		}
		b.WriteString(m.Content)
	}

	temp := p.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	resp, err := p.call(ctx, geminiSettings{
		system:      req.System,
		json:        req.JSON,
		temperature: float32(temp),
		maxTokens:   int32(orDefault(req.MaxTokens, p.maxTokens)),
	}, genai.Text(b.String()))
	if err != nil {
		return nil, eris.Wrap(err, "llm: gemini complete")
	}

	text, err := geminiText(resp)
	if err != nil {
		return nil, err
	}
	out := &Response{Text: text, Model: p.model}
	if resp.UsageMetadata != nil {
		out.Usage = model.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", eris.New("llm: gemini returned no candidates")
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return "", eris.New("llm: gemini candidate has no content")
	}
	var parts []string
	for _, part := range c.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	if len(parts) == 0 {
		return "", eris.New("llm: gemini returned no text parts")
	}
	return strings.Join(parts, ""), nil
}
