package llm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/brand-scorecard/pkg/anthropic"
)

type mockAnthropic struct{ mock.Mock }

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

// scriptedProvider returns canned texts in order.
type scriptedProvider struct {
	texts []string
	errs  []error
	reqs  []Request
}

func (s *scriptedProvider) Name() string  { return "scripted" }
func (s *scriptedProvider) Model() string { return "scripted-1" }

func (s *scriptedProvider) Complete(_ context.Context, req Request) (*Response, error) {
	i := len(s.reqs)
	s.reqs = append(s.reqs, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	text := ""
	if i < len(s.texts) {
		text = s.texts[i]
	}
	resp := &Response{Text: text, Model: "scripted-1"}
	resp.Usage.InputTokens = 10
	resp.Usage.OutputTokens = 5
	return resp, nil
}
