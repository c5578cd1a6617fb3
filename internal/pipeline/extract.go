package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/scrape"
)

// fallbackSourceCount is how many merely relevant sources are used when no
// official source qualifies.
const fallbackSourceCount = 2

// PageReader fetches readable text for a URL.
type PageReader interface {
	Scrape(ctx context.Context, url string) (*scrape.Page, error)
}

type profileReply struct {
	Description       string                  `json:"description"`
	Topics            []string                `json:"topics"`
	Categories        []string                `json:"categories"`
	AdditionalContext string                  `json:"additionalContext"`
	Confidence        model.ProfileConfidence `json:"confidence"`
	ExtractionNotes   string                  `json:"extractionNotes"`
}

// ContentExtractor builds a BrandProfile from the most relevant sources.
type ContentExtractor struct {
	llm    llm.Provider
	reader PageReader
	cfg    config.PipelineConfig
}

// NewContentExtractor creates an extractor. reader may be nil, in which
// case thin sources are used as returned by search.
func NewContentExtractor(p llm.Provider, reader PageReader, cfg config.PipelineConfig) *ContentExtractor {
	return &ContentExtractor{llm: p, reader: reader, cfg: withDefaults(cfg)}
}

// SelectSources picks official results at or above the official threshold
// (at most MaxSources). Without any, it falls back to the top two results
// at or above the fallback threshold. results must already be ordered by
// confidence.
func SelectSources(results []model.ScoredResult, cfg config.PipelineConfig) []model.ScoredResult {
	cfg = withDefaults(cfg)
	var official []model.ScoredResult
	for _, r := range results {
		if r.Evaluation.IsOfficialSite && r.Evaluation.ConfidenceScore >= cfg.OfficialThreshold {
			official = append(official, r)
			if len(official) == cfg.MaxSources {
				break
			}
		}
	}
	if len(official) > 0 {
		return official
	}
	var fallback []model.ScoredResult
	for _, r := range results {
		if r.Evaluation.ConfidenceScore >= cfg.FallbackThreshold {
			fallback = append(fallback, r)
			if len(fallback) == fallbackSourceCount {
				break
			}
		}
	}
	return fallback
}

// Extract produces the brand profile. It never returns an error; callers
// check Success.
func (e *ContentExtractor) Extract(ctx context.Context, run *RunContext, brand, brandContext string, results []model.ScoredResult) model.ExtractionOutcome {
	sources := SelectSources(results, e.cfg)
	if len(sources) == 0 {
		return model.ExtractionOutcome{Error: model.NoRelevantSourcesError}
	}
	texts := e.enrich(ctx, sources)

	var b strings.Builder
	urls := make([]string, 0, len(sources))
	for i, s := range sources {
		urls = append(urls, s.URL)
		remaining := e.cfg.MaxContentChars - b.Len()
		if remaining <= 0 {
			break
		}
		block := fmt.Sprintf("### %s (%s)\n%s\n\n", s.Title, s.URL, texts[i])
		b.WriteString(truncate(block, remaining))
	}

	prompt := fmt.Sprintf(extractionUserPrompt, brand, orNone(brandContext), b.String())
	res, err := llm.Structured[profileReply](ctx, e.llm, llm.UserPrompt(extractionSystemPrompt, prompt), extractionSchema)
	run.RecordLLM(res.Calls, res.Usage)
	if err != nil {
		zap.L().Warn("extract: profile extraction failed", zap.String("brand", brand), zap.Error(err))
		return model.ExtractionOutcome{Error: "Content extraction failed: " + err.Error()}
	}

	v := res.Value
	return model.ExtractionOutcome{
		Success: true,
		Profile: &model.BrandProfile{
			Description:       strings.TrimSpace(v.Description),
			Topics:            v.Topics,
			Categories:        v.Categories,
			AdditionalContext: v.AdditionalContext,
			Confidence:        v.Confidence,
			ExtractionNotes:   v.ExtractionNotes,
			Sources:           urls,
		},
	}
}

// enrich replaces thin source text with a full page read when the reader
// returns something longer. Reader failures keep the search snippet.
func (e *ContentExtractor) enrich(ctx context.Context, sources []model.ScoredResult) []string {
	texts := make([]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sources {
		texts[i] = s.Content
		if e.reader == nil || len(s.Content) >= e.cfg.EnrichMinChars {
			continue
		}
		g.Go(func() error {
			page, err := e.reader.Scrape(gctx, s.URL)
			if err != nil {
				zap.L().Debug("extract: enrich failed", zap.String("url", s.URL), zap.Error(err))
				return nil
			}
			if page != nil && len(page.Text) > len(s.Content) {
				texts[i] = page.Text
			}
			return nil
		})
	}
	_ = g.Wait()
	return texts
}
