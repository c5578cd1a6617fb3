package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/brand-scorecard/internal/llm"
	"github.com/sells-group/brand-scorecard/internal/model"
)

type sentimentReply struct {
	Mentions []model.SentimentDetail `json:"mentions"`
}

// SentimentAnalyzer labels brand mentions in threads as positive or
// negative and scores the balance on a 0-10 scale.
type SentimentAnalyzer struct {
	llm llm.Provider
}

// NewSentimentAnalyzer creates an analyzer.
func NewSentimentAnalyzer(p llm.Provider) *SentimentAnalyzer {
	return &SentimentAnalyzer{llm: p}
}

// Analyze scores brand sentiment across threads. Empty input, a failed
// call or no binary labels all yield the neutral score.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, run *RunContext, brand string, threads []model.RedditThread) model.SentimentResult {
	if len(threads) == 0 {
		return model.NeutralSentimentResult("")
	}

	prompt := fmt.Sprintf(sentimentUserPrompt, brand, threadDigest(threads))
	res, err := llm.Structured[sentimentReply](ctx, a.llm, llm.UserPrompt(sentimentSystemPrompt, prompt), sentimentSchema)
	run.RecordLLM(res.Calls, res.Usage)
	if err != nil {
		zap.L().Warn("sentiment: analysis failed", zap.String("brand", brand), zap.Error(err))
		return model.NeutralSentimentResult("Sentiment analysis failed: " + err.Error())
	}
	return ScoreMentions(res.Value.Mentions)
}

// ScoreMentions keeps POSITIVE and NEGATIVE labels, dropping anything
// else, and computes the aggregate score.
func ScoreMentions(mentions []model.SentimentDetail) model.SentimentResult {
	out := model.SentimentResult{SentimentDetails: []model.SentimentDetail{}}
	for _, m := range mentions {
		label := strings.ToUpper(strings.TrimSpace(m.Sentiment))
		switch label {
		case model.SentimentPositive:
			out.SentimentBreakdown.Positive++
		case model.SentimentNegative:
			out.SentimentBreakdown.Negative++
		default:
			continue
		}
		m.Sentiment = label
		out.SentimentDetails = append(out.SentimentDetails, m)
	}
	out.TotalMentions = out.SentimentBreakdown.Positive + out.SentimentBreakdown.Negative
	out.SentimentScore = model.SentimentScore(out.SentimentBreakdown.Positive, out.SentimentBreakdown.Negative)
	return out
}
