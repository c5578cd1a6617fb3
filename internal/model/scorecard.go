package model

import "time"

// ScorecardStatus is the lifecycle state of a scorecard.
type ScorecardStatus string

const (
	ScorecardGenerating ScorecardStatus = "generating"
	ScorecardCompleted  ScorecardStatus = "completed"
	ScorecardFailed     ScorecardStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s ScorecardStatus) Terminal() bool {
	return s == ScorecardCompleted || s == ScorecardFailed
}

// CanTransition reports whether a scorecard may move from s to next.
// Status only moves forward out of generating.
func (s ScorecardStatus) CanTransition(next ScorecardStatus) bool {
	return s == ScorecardGenerating && next.Terminal()
}

// Mentions counts thread mentions of the brand and each competitor.
type Mentions struct {
	Brand       int            `json:"brand"`
	Competitors map[string]int `json:"competitors"`
}

// SentimentSummary holds the headline sentiment scores.
type SentimentSummary struct {
	Brand       float64            `json:"brand"`
	Competitors map[string]float64 `json:"competitors"`
}

// CompetitorReport is the per-competitor sub-pipeline output.
type CompetitorReport struct {
	Name          string          `json:"name"`
	Threads       []RedditThread  `json:"threads"`
	Subreddits    []string        `json:"subreddits"`
	RelatedBrands []string        `json:"relatedBrands"`
	Sentiment     SentimentResult `json:"sentiment"`
	Error         string          `json:"error,omitempty"`
}

// Scorecard is the terminal aggregate of one pipeline run.
type Scorecard struct {
	ID                string             `json:"id"`
	BrandName         string             `json:"brandName"`
	BrandWebsite      string             `json:"brandWebsite"`
	CompanySize       CompanySize        `json:"companySize"`
	Competitors       []string           `json:"competitors"`
	Subreddits        []string           `json:"subreddits"`
	Mentions          Mentions           `json:"mentions"`
	Threads           []RedditThread     `json:"threads"`
	Sentiment         SentimentSummary   `json:"sentiment"`
	CreatedAt         time.Time          `json:"createdAt"`
	Status            ScorecardStatus    `json:"status"`
	Profile           *BrandProfile      `json:"profile,omitempty"`
	Sizing            *SizingResult      `json:"sizing,omitempty"`
	CompetitorDetails []CompetitorReport `json:"competitorDetails,omitempty"`
	Usage             Usage              `json:"usage"`
	CompletedAt       *time.Time         `json:"completedAt,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// ScorecardSummary is the list view of a stored scorecard.
type ScorecardSummary struct {
	ID          string          `json:"id"`
	BrandName   string          `json:"brandName"`
	CompanySize CompanySize     `json:"companySize"`
	Sentiment   float64         `json:"sentiment"`
	Status      ScorecardStatus `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
}

// Usage summarizes external resource use for one run.
type Usage struct {
	LLMCalls         int        `json:"llmCalls"`
	SearchQueries    int        `json:"searchQueries"`
	Tokens           TokenUsage `json:"tokens"`
	EstimatedCostUSD float64    `json:"estimatedCostUsd"`
}

// StepStatus is the state reported in a progress event.
type StepStatus string

const (
	StepRunning  StepStatus = "running"
	StepComplete StepStatus = "complete"
	StepFailed   StepStatus = "failed"
)

// StepEvent is one progress line emitted while a pipeline runs.
type StepEvent struct {
	Step    string     `json:"step"`
	Message string     `json:"message,omitempty"`
	Status  StepStatus `json:"status"`
	Output  any        `json:"output,omitempty"`
}
