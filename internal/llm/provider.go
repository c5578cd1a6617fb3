// Package llm is the completion layer shared by every pipeline stage. It
// hides the vendor behind Provider and validates structured responses
// against JSON schemas before they reach the stages.
package llm

import (
	"context"

	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/resilience"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversational turn.
type Message struct {
	Role    Role
	Content string
}

// Request is a provider-neutral completion request.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	// JSON asks the provider for a bare JSON object.
	JSON bool
}

// Response is a provider-neutral completion.
type Response struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

// Provider completes a request against one LLM vendor.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Name() string
	Model() string
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, prompt string) Request {
	return Request{System: system, Messages: []Message{{Role: RoleUser, Content: prompt}}}
}

// Float returns a pointer to v for Request.Temperature.
func Float(v float64) *float64 { return &v }

type guarded struct {
	Provider
	guard *resilience.Guard
}

// WithGuard runs every completion through g (timeout, retry, breaker).
func WithGuard(p Provider, g *resilience.Guard) Provider {
	return &guarded{Provider: p, guard: g}
}

func (g *guarded) Complete(ctx context.Context, req Request) (*Response, error) {
	return resilience.Call(ctx, g.guard, g.Name(), "complete", func(ctx context.Context) (*Response, error) {
		return g.Provider.Complete(ctx, req)
	})
}
