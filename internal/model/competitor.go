package model

// CompetitorSet is the output of competitor discovery.
type CompetitorSet struct {
	Competitors        []string            `json:"competitors"`
	CompetitorMentions map[string]int      `json:"competitorMentions"`
	CompetitorContexts map[string][]string `json:"competitorContexts,omitempty"`
	Strategy           string              `json:"strategy,omitempty"`
	Error              string              `json:"error,omitempty"`
}

// EmptyCompetitorSet returns a well-formed set with no competitors.
func EmptyCompetitorSet(errMsg string) CompetitorSet {
	return CompetitorSet{
		Competitors:        []string{},
		CompetitorMentions: map[string]int{},
		Error:              errMsg,
	}
}

// Sentiment labels allowed per mention.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
)

// NeutralSentiment is the fixed score used whenever sentiment is unknown.
const NeutralSentiment = 5.0

// SentimentBreakdown counts per-mention labels.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// SentimentDetail is one classified mention.
type SentimentDetail struct {
	Text      string `json:"text"`
	Sentiment string `json:"sentiment"`
	Reason    string `json:"reason,omitempty"`
}

// SentimentResult is the aggregate sentiment for one brand.
type SentimentResult struct {
	SentimentScore     float64            `json:"sentimentScore"`
	SentimentBreakdown SentimentBreakdown `json:"sentimentBreakdown"`
	TotalMentions      int                `json:"totalMentions"`
	SentimentDetails   []SentimentDetail  `json:"sentimentDetails"`
	Error              string             `json:"error,omitempty"`
}

// NeutralSentimentResult returns the fallback sentiment.
func NeutralSentimentResult(errMsg string) SentimentResult {
	return SentimentResult{
		SentimentScore:   NeutralSentiment,
		SentimentDetails: []SentimentDetail{},
		Error:            errMsg,
	}
}

// SentimentScore computes positive/(positive+negative)*10 clamped to
// [0,10], or the neutral score when there are no labelled mentions.
func SentimentScore(positive, negative int) float64 {
	total := positive + negative
	if total <= 0 || positive < 0 || negative < 0 {
		return NeutralSentiment
	}
	return ClampSentiment(float64(positive) / float64(total) * 10)
}

// ClampSentiment bounds a sentiment score to [0,10].
func ClampSentiment(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
