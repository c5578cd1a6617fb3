package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
)

const (
	minCompetitorName = 3
	maxCompetitorName = 50
	threadPromptChars = 8000
	threadSnippet     = 1500
)

// candidate is a competitor name as parsed, before normalization.
type candidate struct {
	Name     string
	Mentions int
	Context  string
	// Mined is set for names pulled out of prose. Their casing is kept
	// as written.
	Mined bool
}

// ParseStrategy turns a model reply into candidates. ok is false when the
// strategy does not apply to the reply at all.
type ParseStrategy struct {
	Name  string
	Parse func(text string) (cands []candidate, ok bool)
}

// DefaultParseStrategies are tried in order; the first that applies and
// yields competitors wins.
func DefaultParseStrategies() []ParseStrategy {
	return []ParseStrategy{
		{Name: "directJSON", Parse: parseDirectJSON},
		{Name: "embeddedJSON", Parse: parseEmbeddedJSON},
		{Name: "manualExtraction", Parse: parseManual},
	}
}

// CompetitorDiscoverer finds the brands discussed alongside a brand in
// its Reddit threads.
type CompetitorDiscoverer struct {
	llm        llm.Provider
	strategies []ParseStrategy
	cfg        config.PipelineConfig
}

// NewCompetitorDiscoverer creates a discoverer with the default strategies.
func NewCompetitorDiscoverer(p llm.Provider, cfg config.PipelineConfig) *CompetitorDiscoverer {
	return &CompetitorDiscoverer{llm: p, strategies: DefaultParseStrategies(), cfg: withDefaults(cfg)}
}

// Discover returns at most limit competitors of brand. It never returns
// an error; failures are reported in CompetitorSet.Error.
func (d *CompetitorDiscoverer) Discover(ctx context.Context, run *RunContext, brand string, threads []model.RedditThread, limit int) model.CompetitorSet {
	if len(threads) == 0 || limit <= 0 {
		return model.EmptyCompetitorSet("")
	}

	req := llm.UserPrompt(competitorSystemPrompt, fmt.Sprintf(competitorUserPrompt, brand, threadDigest(threads)))
	req.JSON = true
	resp, err := d.llm.Complete(ctx, req)
	if err != nil {
		zap.L().Warn("competitors: discovery failed", zap.String("brand", brand), zap.Error(err))
		return model.EmptyCompetitorSet("Competitor discovery failed: " + err.Error())
	}
	run.RecordLLM(1, resp.Usage)

	corpus := threadCorpus(threads)
	for _, s := range d.strategies {
		cands, ok := s.Parse(resp.Text)
		if !ok {
			continue
		}
		set := NormalizeCompetitors(cands, brand, corpus, limit)
		if len(set.Competitors) == 0 && s.Name == "manualExtraction" {
			continue
		}
		set.Strategy = s.Name
		zap.L().Info("competitors: discovered",
			zap.String("brand", brand),
			zap.String("strategy", s.Name),
			zap.Strings("competitors", set.Competitors),
		)
		return set
	}
	return model.EmptyCompetitorSet("Could not parse competitors from model response")
}

// NormalizeCompetitors cleans candidate names, drops the brand itself and
// out-of-bounds names, merges duplicates, fills mention counts from the
// thread corpus when the model gave none, and keeps the top limit by
// mentions with discovery order breaking ties. Survivors are returned in
// discovery order.
func NormalizeCompetitors(cands []candidate, brand, corpus string, limit int) model.CompetitorSet {
	type entry struct {
		name     string
		order    int
		mentions int
		contexts []string
	}
	brandKey := nameKey(brand)
	lowerCorpus := strings.ToLower(corpus)
	index := map[string]int{}
	var entries []*entry

	for _, c := range cands {
		name := cleanCompetitorName(c.Name, !c.Mined)
		n := utf8.RuneCountInString(name)
		if n < minCompetitorName || n > maxCompetitorName {
			continue
		}
		key := nameKey(name)
		if key == "" || key == brandKey || stopNames[key] {
			continue
		}
		if i, ok := index[key]; ok {
			e := entries[i]
			if c.Mentions > e.mentions {
				e.mentions = c.Mentions
			}
			if c.Context != "" {
				e.contexts = append(e.contexts, c.Context)
			}
			continue
		}
		e := &entry{name: name, order: len(entries), mentions: c.Mentions}
		if e.mentions <= 0 {
			e.mentions = max(strings.Count(lowerCorpus, strings.ToLower(name)), 1)
		}
		if c.Context != "" {
			e.contexts = append(e.contexts, c.Context)
		}
		index[key] = len(entries)
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].mentions > entries[j].mentions })
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })

	set := model.CompetitorSet{
		Competitors:        make([]string, 0, len(entries)),
		CompetitorMentions: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		set.Competitors = append(set.Competitors, e.name)
		set.CompetitorMentions[e.name] = e.mentions
		if len(e.contexts) > 0 {
			if set.CompetitorContexts == nil {
				set.CompetitorContexts = map[string][]string{}
			}
			set.CompetitorContexts[e.name] = e.contexts
		}
	}
	return set
}

var (
	suffixPattern = regexp.MustCompile(`(?i)[\s,]+(inc|llc|ltd|corp|corporation|co|company|gmbh|plc)\.?$`)
	nonWord       = regexp.MustCompile(`[^\p{L}\p{N}]+`)

	// stopNames are filler words models and regexes return in place of a
	// name. Real brands never belong here.
	stopNames = map[string]bool{
		"reddit": true, "none": true, "other": true, "others": true, "brand": true,
		"brands": true, "edit": true, "update": true, "the": true, "this": true,
		"that": true, "them": true, "na": true, "unknown": true,
	}
)

// cleanCompetitorName trims punctuation and legal suffixes. With titleCase
// set, names given entirely in lower case are proper-cased.
func cleanCompetitorName(name string, titleCase bool) string {
	name = strings.TrimSpace(strings.Trim(name, " \t\n\"'`*.,;:!?()[]"))
	for {
		stripped := strings.TrimSpace(suffixPattern.ReplaceAllString(name, ""))
		if stripped == name {
			break
		}
		name = stripped
	}
	if titleCase && name != "" && name == strings.ToLower(name) {
		name = cases.Title(language.English).String(name)
	}
	return strings.Join(strings.Fields(name), " ")
}

func nameKey(name string) string {
	return nonWord.ReplaceAllString(strings.ToLower(name), "")
}

// parseDirectJSON accepts a reply that is exactly a JSON document.
func parseDirectJSON(text string) ([]candidate, bool) {
	return decodeCompetitors(strings.TrimSpace(text))
}

// parseEmbeddedJSON accepts the first balanced {...} block in the reply.
func parseEmbeddedJSON(text string) ([]candidate, bool) {
	doc := llm.FirstJSONObject(text)
	if doc == "" {
		return nil, false
	}
	return decodeCompetitors(doc)
}

// decodeCompetitors reads {"competitors": [...]} where items are names or
// {name, mentions, context} objects.
func decodeCompetitors(doc string) ([]candidate, bool) {
	var raw struct {
		Competitors []json.RawMessage `json:"competitors"`
	}
	if err := json.Unmarshal([]byte(doc), &raw); err != nil || raw.Competitors == nil {
		return nil, false
	}
	cands := make([]candidate, 0, len(raw.Competitors))
	for _, item := range raw.Competitors {
		var name string
		if json.Unmarshal(item, &name) == nil {
			cands = append(cands, candidate{Name: name})
			continue
		}
		var obj struct {
			Name     string `json:"name"`
			Mentions int    `json:"mentions"`
			Context  string `json:"context"`
		}
		if json.Unmarshal(item, &obj) == nil && obj.Name != "" {
			cands = append(cands, candidate{Name: obj.Name, Mentions: obj.Mentions, Context: obj.Context})
		}
	}
	return cands, true
}

const properName = `([A-Z][\p{L}\p{N}&'+-]*(?:\s+[A-Z][\p{L}\p{N}&'+-]*){0,3})`

var (
	listPattern   = regexp.MustCompile(`(?i)\bcompetitors?\s*(?:include|are|:)\s*([^.\n]+)`)
	phrasePattern = regexp.MustCompile(`(?:[Aa]lternatives? to|[Cc]ompared to|[Ii]nstead of|\bvs\.?|\bversus)\s+` + properName)
	quotedPattern = regexp.MustCompile(`["“]([A-Z][\p{L}\p{N}&' +-]{2,49})["”]`)
	listSplit     = regexp.MustCompile(`\s*(?:,|;|\band\b|\bor\b)\s*`)
	listItem      = regexp.MustCompile(`^` + properName + `$`)
)

// parseManual mines a prose reply for competitor names.
func parseManual(text string) ([]candidate, bool) {
	var cands []candidate
	for _, m := range listPattern.FindAllStringSubmatch(text, -1) {
		for _, part := range listSplit.Split(m[1], -1) {
			part = strings.Trim(strings.TrimSpace(part), "\"'`*()[]")
			// Prose after "competitors are" is only a name when every
			// word of it is capitalized.
			if listItem.MatchString(part) {
				cands = append(cands, candidate{Name: part, Mined: true})
			}
		}
	}
	for _, m := range phrasePattern.FindAllStringSubmatch(text, -1) {
		cands = append(cands, candidate{Name: m[1], Mined: true})
	}
	for _, m := range quotedPattern.FindAllStringSubmatch(text, -1) {
		cands = append(cands, candidate{Name: m[1], Mined: true})
	}
	return cands, true
}

// threadDigest renders threads for a prompt within threadPromptChars.
func threadDigest(threads []model.RedditThread) string {
	var b strings.Builder
	for i, t := range threads {
		block := fmt.Sprintf("[%d] %s | %s\n%s\n\n", i+1, t.Subreddit, t.Title, truncate(t.Content, threadSnippet))
		if b.Len()+len(block) > threadPromptChars {
			b.WriteString(truncate(block, threadPromptChars-b.Len()))
			break
		}
		b.WriteString(block)
	}
	return b.String()
}

func threadCorpus(threads []model.RedditThread) string {
	var b strings.Builder
	for _, t := range threads {
		b.WriteString(t.Title)
		b.WriteByte('\n')
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
