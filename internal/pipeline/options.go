package pipeline

import (
	"unicode/utf8"

	"github.com/sells-group/brand-scorecard/internal/config"
)

// withDefaults fills zero thresholds and caps so stages built without a
// loaded config behave like the CLI defaults.
func withDefaults(c config.PipelineConfig) config.PipelineConfig {
	def := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	def(&c.OfficialThreshold, 70)
	def(&c.FallbackThreshold, 50)
	def(&c.RedditThreshold, 50)
	def(&c.MaxSources, 3)
	def(&c.MaxContentChars, 6000)
	def(&c.SummarizeThresholdChars, 1000)
	def(&c.MaxRedditThreads, 10)
	def(&c.EarlyExitResults, 4)
	def(&c.SizingResultCap, 5)
	def(&c.EvalConcurrency, 4)
	def(&c.EnrichMinChars, 500)
	def(&c.MaxCompetitors, 4)
	return c
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
