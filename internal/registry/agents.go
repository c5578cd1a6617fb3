package registry

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/pipeline"
)

// WorkflowBrandScorecard runs every stage for a brand and its competitors.
const WorkflowBrandScorecard = "brand-scorecard"

// agent adapts one pipeline stage to Tool. In is decoded from the request
// body after schema validation.
type agent[In any] struct {
	id          string
	description string
	schema      string
	run         func(ctx context.Context, in In) (any, error)
}

func (a *agent[In]) ID() string          { return a.id }
func (a *agent[In]) Description() string { return a.description }
func (a *agent[In]) InputSchema() string { return a.schema }

func (a *agent[In]) Execute(ctx context.Context, input json.RawMessage, emit Emitter) (any, error) {
	var in In
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, eris.Wrap(ErrInvalidInput, err.Error())
	}
	emit.emit(model.StepEvent{Step: a.id, Status: model.StepRunning})
	out, err := a.run(ctx, in)
	if err != nil {
		emit.emit(model.StepEvent{Step: a.id, Status: model.StepFailed, Message: err.Error()})
		return nil, err
	}
	emit.emit(model.StepEvent{Step: a.id, Status: model.StepComplete, Output: out})
	return out, nil
}

type brandInput struct {
	Brand   string `json:"brandName"`
	Context string `json:"context"`
}

func (in brandInput) brand() string { return strings.TrimSpace(in.Brand) }

type searchResultsInput struct {
	brandInput
	Results []model.SearchResult `json:"results"`
}

type scoredResultsInput struct {
	brandInput
	Results []model.ScoredResult `json:"results"`
}

type threadsInput struct {
	brandInput
	Threads        []model.RedditThread `json:"threads"`
	MaxCompetitors *int                 `json:"maxCompetitors"`
}

type assembleInput struct {
	brandInput
	Results           []model.ScoredResult     `json:"results"`
	Extraction        model.ExtractionOutcome  `json:"extraction"`
	Sizing            model.SizingOutcome      `json:"sizing"`
	Threads           []model.RedditThread     `json:"threads"`
	Competitors       model.CompetitorSet      `json:"competitors"`
	Sentiment         model.SentimentResult    `json:"sentiment"`
	CompetitorReports []model.CompetitorReport `json:"competitorDetails"`
}

const (
	urlItems    = `{"type": "array", "items": {"type": "object", "required": ["url"], "properties": {"url": {"type": "string", "minLength": 1}}}}`
	objectValue = `{"type": "object"}`
)

// brandSchema is the input schema shared by every agent, plus extra
// properties.
func brandSchema(extra ...string) string {
	var b strings.Builder
	b.WriteString(`{"type": "object", "required": ["brandName"], "properties": {`)
	b.WriteString(`"brandName": {"type": "string", "minLength": 1, "maxLength": 200, "pattern": "\\S"}, `)
	b.WriteString(`"context": {"type": "string", "maxLength": 1000}`)
	for i := 0; i+1 < len(extra); i += 2 {
		b.WriteString(`, "` + extra[i] + `": ` + extra[i+1])
	}
	b.WriteString(`}}`)
	return b.String()
}

// Agents returns one tool per pipeline stage. Each call runs with a fresh
// run context, so the seen-URL set is scoped to the request.
func Agents(p *pipeline.Pipeline) []Tool {
	limit := func(override *int) int {
		if override != nil {
			return max(*override, 0)
		}
		return p.Config().MaxCompetitors
	}
	return []Tool{
		&agent[brandInput]{
			id:          pipeline.StepBrandSearch,
			description: "Searches the web for a brand's official site and about pages.",
			schema:      brandSchema(),
			run: func(ctx context.Context, in brandInput) (any, error) {
				return p.SearchBrand(ctx, pipeline.NewRunContext(in.brand()), in.brand(), in.Context), nil
			},
		},
		&agent[searchResultsInput]{
			id:          pipeline.StepRelevance,
			description: "Scores search results for relevance to the brand and keeps the confident ones.",
			schema:      brandSchema("results", urlItems),
			run: func(ctx context.Context, in searchResultsInput) (any, error) {
				scored := p.FilterResults(ctx, pipeline.NewRunContext(in.brand()), in.Results, in.brand(), in.Context)
				return map[string]any{"results": scored}, nil
			},
		},
		&agent[scoredResultsInput]{
			id:          pipeline.StepContentExtraction,
			description: "Builds a brand profile from the brand's most relevant sources.",
			schema:      brandSchema("results", urlItems),
			run: func(ctx context.Context, in scoredResultsInput) (any, error) {
				return p.ExtractContent(ctx, pipeline.NewRunContext(in.brand()), in.brand(), in.Context, in.Results), nil
			},
		},
		&agent[brandInput]{
			id:          pipeline.StepCompanySizing,
			description: "Classifies the company behind a brand into a size tier.",
			schema:      brandSchema(),
			run: func(ctx context.Context, in brandInput) (any, error) {
				return p.SizeCompany(ctx, pipeline.NewRunContext(in.brand()), in.brand(), in.Context), nil
			},
		},
		&agent[brandInput]{
			id:          pipeline.StepRedditSearch,
			description: "Finds Reddit threads that discuss the brand.",
			schema:      brandSchema(),
			run: func(ctx context.Context, in brandInput) (any, error) {
				return p.SearchReddit(ctx, pipeline.NewRunContext(in.brand()), in.brand(), in.Context), nil
			},
		},
		&agent[threadsInput]{
			id:          pipeline.StepRedditRelevance,
			description: "Keeps Reddit threads that genuinely discuss the brand.",
			schema:      brandSchema("threads", urlItems),
			run: func(ctx context.Context, in threadsInput) (any, error) {
				threads := p.FilterThreads(ctx, pipeline.NewRunContext(in.brand()), in.Threads, in.brand(), in.Context)
				return map[string]any{"threads": threads}, nil
			},
		},
		&agent[threadsInput]{
			id:          pipeline.StepCompetitorDiscovery,
			description: "Names the brands discussed alongside the brand in its Reddit threads.",
			schema:      brandSchema("threads", urlItems, "maxCompetitors", `{"type": "integer", "minimum": 0, "maximum": 10}`),
			run: func(ctx context.Context, in threadsInput) (any, error) {
				return p.DiscoverCompetitors(ctx, pipeline.NewRunContext(in.brand()), in.brand(), in.Threads, limit(in.MaxCompetitors)), nil
			},
		},
		&agent[threadsInput]{
			id:          pipeline.StepSentiment,
			description: "Scores sentiment toward the brand in its Reddit threads on a 0-10 scale.",
			schema:      brandSchema("threads", urlItems),
			run: func(ctx context.Context, in threadsInput) (any, error) {
				return p.AnalyzeSentiment(ctx, pipeline.NewRunContext(in.brand()), in.brand(), in.Threads), nil
			},
		},
		&agent[assembleInput]{
			id:          pipeline.StepScorecard,
			description: "Merges stage outputs into a scorecard.",
			schema: brandSchema(
				"results", urlItems,
				"threads", urlItems,
				"extraction", objectValue,
				"sizing", objectValue,
				"competitors", objectValue,
				"sentiment", objectValue,
			),
			run: func(_ context.Context, in assembleInput) (any, error) {
				sc := pipeline.Assemble(pipeline.AssembleInput{
					ID:                uuid.NewString(),
					Brand:             in.brand(),
					CreatedAt:         time.Now().UTC(),
					Results:           in.Results,
					Extraction:        in.Extraction,
					Sizing:            in.Sizing,
					Threads:           in.Threads,
					Competitors:       in.Competitors,
					Sentiment:         in.Sentiment,
					CompetitorReports: in.CompetitorReports,
					OfficialThreshold: p.Config().OfficialThreshold,
				})
				return sc, nil
			},
		},
	}
}

// scorecardWorkflow runs the whole pipeline.
type scorecardWorkflow struct {
	p        *pipeline.Pipeline
	validate *validator.Validate
}

func (w *scorecardWorkflow) ID() string { return WorkflowBrandScorecard }

func (w *scorecardWorkflow) Description() string {
	return "Researches a brand and up to maxCompetitors competitors and returns the full scorecard."
}

func (w *scorecardWorkflow) InputSchema() string {
	return brandSchema("maxCompetitors", `{"type": "integer", "minimum": 0, "maximum": 10}`)
}

func (w *scorecardWorkflow) Execute(ctx context.Context, input json.RawMessage, emit Emitter) (any, error) {
	var req pipeline.Request
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, eris.Wrap(ErrInvalidInput, err.Error())
	}
	req.Brand = strings.TrimSpace(req.Brand)
	if err := w.validate.Struct(req); err != nil {
		return nil, eris.Wrap(ErrInvalidInput, err.Error())
	}
	return w.p.Run(ctx, req, pipeline.ProgressSink(emit))
}

// Build registers every agent and the brand-scorecard workflow for p.
func Build(p *pipeline.Pipeline) (*Registry, error) {
	r := New()
	tools := Agents(p)
	if err := r.Register(tools...); err != nil {
		return nil, err
	}
	steps := make([]string, 0, len(tools))
	for _, t := range tools {
		steps = append(steps, t.ID())
	}
	wf := Workflow{Tool: &scorecardWorkflow{p: p, validate: validator.New()}, Steps: steps}
	if err := r.RegisterWorkflow(wf); err != nil {
		return nil, err
	}
	return r, nil
}
