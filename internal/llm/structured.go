package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/brand-scorecard/internal/model"
)

// structuredAttempts is one try plus one retry on bad output.
const structuredAttempts = 2

// StructuredResult carries the decoded value with the usage of every
// attempt spent producing it.
type StructuredResult[T any] struct {
	Value T
	Usage model.TokenUsage
	Calls int
}

// Structured asks p for JSON matching s and decodes it into T. Malformed or
// schema-violating output is retried once with the validation error fed
// back to the model. Transport errors are returned without a retry here;
// the provider's guard owns those.
func Structured[T any](ctx context.Context, p Provider, req Request, s *Schema) (StructuredResult[T], error) {
	var res StructuredResult[T]
	req.JSON = true
	req.System = withSchema(req.System, s)

	var lastErr error
	for attempt := 0; attempt < structuredAttempts; attempt++ {
		resp, err := p.Complete(ctx, req)
		if err != nil {
			return res, err
		}
		res.Calls++
		res.Usage.Add(resp.Usage)

		val, err := Decode[T](s, resp.Text)
		if err == nil {
			res.Value = val
			return res, nil
		}
		lastErr = err
		zap.L().Debug("structured response rejected",
			zap.String("schema", s.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		req.Messages = append(append([]Message{}, req.Messages...),
			Message{Role: RoleAssistant, Content: resp.Text},
			Message{Role: RoleUser, Content: "That response was rejected: " + err.Error() +
				". Reply again with only the corrected JSON object."},
		)
	}
	return res, lastErr
}

func withSchema(system string, s *Schema) string {
	out := system
	if out != "" {
		out += "\n\n"
	}
	return out + "Your reply must be a JSON object that validates against this JSON schema:\n" + s.Raw()
}
