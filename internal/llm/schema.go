package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedOutput means the model did not return parseable JSON.
var ErrMalformedOutput = eris.New("llm: malformed model output")

// ErrSchemaViolation means the JSON parsed but did not match the schema.
var ErrSchemaViolation = eris.New("llm: response violates schema")

// Schema is a compiled JSON schema for one structured response type.
type Schema struct {
	Name     string
	raw      string
	compiled *gojsonschema.Schema
}

// NewSchema compiles raw.
func NewSchema(name, raw string) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, eris.Wrapf(err, "llm: compile schema %s", name)
	}
	return &Schema{Name: name, raw: raw, compiled: compiled}, nil
}

// MustSchema is NewSchema for package-level schema literals.
func MustSchema(name, raw string) *Schema {
	s, err := NewSchema(name, raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Raw returns the schema source, for embedding in prompts and API docs.
func (s *Schema) Raw() string { return s.raw }

// Validate checks doc against the schema. Violations wrap ErrSchemaViolation
// and list every failing field.
func (s *Schema) Validate(doc []byte) error {
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return eris.Wrapf(ErrMalformedOutput, "%s: %v", s.Name, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return eris.Wrapf(ErrSchemaViolation, "%s: %s", s.Name, strings.Join(msgs, "; "))
}

// Decode cleans text, validates it and unmarshals into T.
func Decode[T any](s *Schema, text string) (T, error) {
	var out T
	doc := CleanJSON(text)
	if !json.Valid([]byte(doc)) {
		return out, eris.Wrapf(ErrMalformedOutput, "%s: not valid JSON", s.Name)
	}
	if err := s.Validate([]byte(doc)); err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return out, eris.Wrapf(ErrMalformedOutput, "%s: %v", s.Name, err)
	}
	return out, nil
}
