package search

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// QueryTemplate is one named query variant.
type QueryTemplate struct {
	Name    string   `yaml:"name"`
	Query   string   `yaml:"query"`
	Domains []string `yaml:"domains"`

	tmpl *template.Template
}

// Templates holds the query variants for every search kind.
type Templates struct {
	Brand  []QueryTemplate `yaml:"brand"`
	Reddit []QueryTemplate `yaml:"reddit"`
	Sizing []QueryTemplate `yaml:"sizing"`
}

// ParseTemplates parses a templates document.
func ParseTemplates(data []byte) (*Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "search: parse templates")
	}
	for _, group := range [][]QueryTemplate{t.Brand, t.Reddit, t.Sizing} {
		for i := range group {
			tmpl, err := template.New(group[i].Name).Option("missingkey=error").Parse(group[i].Query)
			if err != nil {
				return nil, eris.Wrapf(err, "search: template %s", group[i].Name)
			}
			group[i].tmpl = tmpl
		}
	}
	if len(t.Brand) == 0 || len(t.Reddit) == 0 || len(t.Sizing) == 0 {
		return nil, eris.New("search: templates need brand, reddit and sizing variants")
	}
	return &t, nil
}

// DefaultTemplates returns the embedded query variants.
func DefaultTemplates() *Templates {
	t, err := ParseTemplates(defaultTemplatesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// Render fills the template for a brand and optional context.
func (q QueryTemplate) Render(brand, context string) string {
	var buf bytes.Buffer
	data := struct{ Brand, Context string }{strings.TrimSpace(brand), strings.TrimSpace(context)}
	if q.tmpl == nil || q.tmpl.Execute(&buf, data) != nil {
		return strings.TrimSpace(brand)
	}
	return strings.Join(strings.Fields(buf.String()), " ")
}
