package pipeline

import (
	"sort"
	"time"

	"github.com/sells-group/brand-scorecard/internal/model"
)

// AssembleInput is everything one run produced.
type AssembleInput struct {
	ID                string
	Brand             string
	CreatedAt         time.Time
	Results           []model.ScoredResult
	Extraction        model.ExtractionOutcome
	Sizing            model.SizingOutcome
	Threads           []model.RedditThread
	Competitors       model.CompetitorSet
	Sentiment         model.SentimentResult
	CompetitorReports []model.CompetitorReport
	OfficialThreshold int
}

// Assemble merges stage outputs into a completed scorecard, substituting
// each stage's fallback where it produced nothing.
func Assemble(in AssembleInput) model.Scorecard {
	threshold := in.OfficialThreshold
	if threshold <= 0 {
		threshold = 70
	}

	sc := model.Scorecard{
		ID:          in.ID,
		BrandName:   in.Brand,
		CompanySize: model.SizeUnknown,
		Competitors: []string{},
		Subreddits:  []string{},
		Threads:     []model.RedditThread{},
		Mentions:    model.Mentions{Competitors: map[string]int{}},
		Sentiment: model.SentimentSummary{
			Brand:       model.NeutralSentiment,
			Competitors: map[string]float64{},
		},
		CreatedAt:         in.CreatedAt,
		Status:            model.ScorecardCompleted,
		CompetitorDetails: []model.CompetitorReport{},
	}

	for _, r := range in.Results {
		if r.Evaluation.IsOfficialSite && r.Evaluation.ConfidenceScore >= threshold {
			sc.BrandWebsite = r.URL
			break
		}
	}

	if in.Extraction.Success && in.Extraction.Profile != nil {
		sc.Profile = in.Extraction.Profile
	}
	if in.Sizing.Success && in.Sizing.Result != nil && in.Sizing.Result.CompanySize != "" {
		sc.CompanySize = in.Sizing.Result.CompanySize
		sc.Sizing = in.Sizing.Result
	}

	if in.Threads != nil {
		sc.Threads = in.Threads
	}
	sc.Subreddits = RankSubreddits(sc.Threads)
	sc.Mentions.Brand = len(sc.Threads)

	if in.Competitors.Competitors != nil {
		sc.Competitors = in.Competitors.Competitors
	}
	for _, name := range sc.Competitors {
		sc.Mentions.Competitors[name] = in.Competitors.CompetitorMentions[name]
		sc.Sentiment.Competitors[name] = model.NeutralSentiment
	}

	sc.Sentiment.Brand = model.ClampSentiment(in.Sentiment.SentimentScore)
	if in.Sentiment.TotalMentions == 0 {
		sc.Sentiment.Brand = model.NeutralSentiment
	}
	for _, rep := range in.CompetitorReports {
		score := model.ClampSentiment(rep.Sentiment.SentimentScore)
		if rep.Sentiment.TotalMentions == 0 {
			score = model.NeutralSentiment
		}
		sc.Sentiment.Competitors[rep.Name] = score
		sc.CompetitorDetails = append(sc.CompetitorDetails, rep)
	}
	return sc
}

// RankSubreddits lists distinct subreddits by thread count, ties in first
// appearance order.
func RankSubreddits(threads []model.RedditThread) []string {
	counts := map[string]int{}
	order := []string{}
	for _, t := range threads {
		if t.Subreddit == "" {
			continue
		}
		if _, ok := counts[t.Subreddit]; !ok {
			order = append(order, t.Subreddit)
		}
		counts[t.Subreddit]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return order
}
