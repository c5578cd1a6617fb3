package model

// EvaluationFailedReasoning is the reasoning attached to every classifier
// result that could not be produced.
const EvaluationFailedReasoning = "Error in evaluation process"

// RelevanceEvaluation is a model-asserted judgement about one search result
// or Reddit thread. Brand-source evaluations use IsOfficialSite and
// BrandMatch; thread evaluations use MeetsThreshold.
type RelevanceEvaluation struct {
	URL             string          `json:"url"`
	IsOfficialSite  bool            `json:"isOfficialSite"`
	IsRelevant      bool            `json:"isRelevant"`
	ConfidenceScore int             `json:"confidenceScore"`
	Signals         map[string]bool `json:"signals"`
	Reasoning       string          `json:"reasoning"`
	BrandMatch      bool            `json:"brandMatch"`
	MeetsThreshold  bool            `json:"meetsThreshold"`
	Skipped         bool            `json:"skipped,omitempty"`
}

// FailedEvaluation returns the uniform failure object for classifiers.
func FailedEvaluation(url string) RelevanceEvaluation {
	return RelevanceEvaluation{
		URL:       url,
		Signals:   map[string]bool{},
		Reasoning: EvaluationFailedReasoning,
	}
}

// SkippedEvaluation is returned for URLs already evaluated in this run.
func SkippedEvaluation(url string) RelevanceEvaluation {
	return RelevanceEvaluation{
		URL:       url,
		Signals:   map[string]bool{},
		Reasoning: "already processed",
		Skipped:   true,
	}
}

// ClampConfidence bounds a confidence score to [0,100].
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ScoredResult pairs a search result with its evaluation.
type ScoredResult struct {
	SearchResult
	Evaluation RelevanceEvaluation `json:"evaluation"`
}
