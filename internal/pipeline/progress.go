package pipeline

import (
	"github.com/sells-group/brand-scorecard/internal/model"
)

// Step names reported in progress events, in pipeline order.
const (
	StepBrandSearch         = "brand-search"
	StepRelevance           = "relevance"
	StepContentExtraction   = "content-extraction"
	StepCompanySizing       = "company-sizing"
	StepRedditSearch        = "reddit-search"
	StepRedditRelevance     = "reddit-relevance"
	StepCompetitorDiscovery = "competitor-discovery"
	StepSentiment           = "sentiment"
	StepCompetitorAnalysis  = "competitor-analysis"
	StepScorecard           = "scorecard"
)

// Steps lists the primary pipeline steps in execution order.
func Steps() []string {
	return []string{
		StepBrandSearch, StepRelevance, StepContentExtraction, StepCompanySizing,
		StepRedditSearch, StepRedditRelevance, StepCompetitorDiscovery, StepSentiment,
		StepCompetitorAnalysis, StepScorecard,
	}
}

// ProgressSink receives step events. It may be called from several
// goroutines at once and must not block for long.
type ProgressSink func(model.StepEvent)

func (s ProgressSink) emit(step string, status model.StepStatus, msg string, output any) {
	if s == nil {
		return
	}
	s(model.StepEvent{Step: step, Message: msg, Status: status, Output: output})
}
