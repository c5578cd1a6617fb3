// Package registry holds the typed table of pipeline tools and workflows
// exposed over HTTP and the CLI. Entries are resolved once at startup.
package registry

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
)

// ErrUnknown is returned when no tool or workflow has the requested id.
var ErrUnknown = eris.New("registry: unknown tool")

// ErrInvalidInput wraps input that failed schema validation or decoding.
var ErrInvalidInput = eris.New("registry: invalid input")

// Emitter receives progress events while a tool runs. A nil Emitter drops
// them.
type Emitter func(model.StepEvent)

func (e Emitter) emit(ev model.StepEvent) {
	if e != nil {
		e(ev)
	}
}

// Tool is one executable agent.
type Tool interface {
	ID() string
	Description() string
	// InputSchema is a JSON schema document for Execute's input.
	InputSchema() string
	Execute(ctx context.Context, input json.RawMessage, emit Emitter) (any, error)
}

// Workflow is a tool that runs several agents in a fixed order.
type Workflow struct {
	Tool
	Steps []string
}

// Info describes a tool for discovery endpoints.
type Info struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Steps       []string        `json:"steps,omitempty"`
}

type entry struct {
	tool   Tool
	schema *llm.Schema
	steps  []string
}

// Registry maps ids to tools and workflows.
type Registry struct {
	tools     map[string]entry
	workflows map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tools: map[string]entry{}, workflows: map[string]entry{}}
}

// Register adds tools. Ids must be unique and schemas must compile.
func (r *Registry) Register(tools ...Tool) error {
	for _, t := range tools {
		e, err := newEntry(t, nil)
		if err != nil {
			return err
		}
		if _, dup := r.tools[t.ID()]; dup {
			return eris.Errorf("registry: duplicate tool %q", t.ID())
		}
		r.tools[t.ID()] = e
	}
	return nil
}

// RegisterWorkflow adds a workflow. Every step must name a registered tool.
func (r *Registry) RegisterWorkflow(w Workflow) error {
	for _, s := range w.Steps {
		if _, ok := r.tools[s]; !ok {
			return eris.Errorf("registry: workflow %q references unknown step %q", w.ID(), s)
		}
	}
	e, err := newEntry(w.Tool, w.Steps)
	if err != nil {
		return err
	}
	if _, dup := r.workflows[w.ID()]; dup {
		return eris.Errorf("registry: duplicate workflow %q", w.ID())
	}
	r.workflows[w.ID()] = e
	return nil
}

func newEntry(t Tool, steps []string) (entry, error) {
	if strings.TrimSpace(t.ID()) == "" {
		return entry{}, eris.New("registry: tool id is required")
	}
	schema, err := llm.NewSchema(t.ID(), t.InputSchema())
	if err != nil {
		return entry{}, eris.Wrapf(err, "registry: tool %q", t.ID())
	}
	return entry{tool: t, schema: schema, steps: steps}, nil
}

// Tool looks up a tool by id.
func (r *Registry) Tool(id string) (Tool, bool) {
	e, ok := r.tools[id]
	return e.tool, ok
}

// Workflow looks up a workflow by id.
func (r *Registry) Workflow(id string) (Workflow, bool) {
	e, ok := r.workflows[id]
	if !ok {
		return Workflow{}, false
	}
	return Workflow{Tool: e.tool, Steps: e.steps}, true
}

// Tools lists registered tools sorted by id.
func (r *Registry) Tools() []Info { return infos(r.tools) }

// Workflows lists registered workflows sorted by id.
func (r *Registry) Workflows() []Info { return infos(r.workflows) }

func infos(m map[string]entry) []Info {
	out := make([]Info, 0, len(m))
	for id, e := range m {
		out = append(out, Info{
			ID:          id,
			Description: e.tool.Description(),
			InputSchema: json.RawMessage(e.tool.InputSchema()),
			Steps:       e.steps,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ExecuteTool validates input and runs the named tool.
func (r *Registry) ExecuteTool(ctx context.Context, id string, input json.RawMessage, emit Emitter) (any, error) {
	e, ok := r.tools[id]
	if !ok {
		return nil, eris.Wrapf(ErrUnknown, "tool %q", id)
	}
	return run(ctx, e, input, emit)
}

// ExecuteWorkflow validates input and runs the named workflow.
func (r *Registry) ExecuteWorkflow(ctx context.Context, id string, input json.RawMessage, emit Emitter) (any, error) {
	e, ok := r.workflows[id]
	if !ok {
		return nil, eris.Wrapf(ErrUnknown, "workflow %q", id)
	}
	return run(ctx, e, input, emit)
}

func run(ctx context.Context, e entry, input json.RawMessage, emit Emitter) (any, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		input = json.RawMessage(`{}`)
	}
	if err := e.schema.Validate(input); err != nil {
		return nil, eris.Wrap(ErrInvalidInput, err.Error())
	}
	return e.tool.Execute(ctx, input, emit)
}
