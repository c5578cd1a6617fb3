package search

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/brand-scorecard/internal/model"
)

var (
	threadURLPattern = regexp.MustCompile(`(?i)reddit\.com/r/([A-Za-z0-9_]+)/comments/`)
	subredditPattern = regexp.MustCompile(`(?i)^/?r/([A-Za-z0-9_]+)`)
	pointsPattern    = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?k?)\s*(?:points|upvotes|votes)`)
	commentsPattern  = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?k?)\s*comments?`)
	titleSuffix      = regexp.MustCompile(`(?i)\s*(?::\s*r/[A-Za-z0-9_]+|-\s*reddit)\s*$`)
)

// NormalizeSubreddit returns "r/<name>" for inputs such as "r/golang",
// "/r/golang/", "golang" or a thread URL. It returns "" when no name can
// be found.
func NormalizeSubreddit(s string) string {
	s = strings.TrimSpace(s)
	if m := threadURLPattern.FindStringSubmatch(s); m != nil {
		return "r/" + m[1]
	}
	if i := strings.Index(strings.ToLower(s), "reddit.com/"); i >= 0 {
		s = s[i+len("reddit.com"):]
	}
	if m := subredditPattern.FindStringSubmatch(s); m != nil {
		return "r/" + m[1]
	}
	s = strings.Trim(s, "/ ")
	if s != "" && !strings.ContainsAny(s, "/ .") {
		return "r/" + s
	}
	return ""
}

// IsThreadURL reports whether rawURL points at a Reddit comment thread.
func IsThreadURL(rawURL string) bool {
	return threadURLPattern.MatchString(rawURL)
}

// ParseThread converts a search hit on reddit.com into a RedditThread. ok
// is false when the hit is not a comment thread.
func ParseThread(h Hit, brand string) (model.RedditThread, bool) {
	if !IsThreadURL(h.URL) {
		return model.RedditThread{}, false
	}
	t := model.RedditThread{
		Title:     strings.TrimSpace(titleSuffix.ReplaceAllString(h.Title, "")),
		URL:       h.URL,
		Subreddit: NormalizeSubreddit(h.URL),
		Score:     parseCount(pointsPattern, h.Content),
		Comments:  parseCount(commentsPattern, h.Content),
		Content:   h.Content,
	}
	t.RelevanceScore = ScoreRedditThread(t.Title, t.Content, brand, t.Comments)
	return t, true
}

func parseCount(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return ParseCount(m[1])
}

// ParseCount parses "1,234", "56" or "1.2k" style counts.
func ParseCount(s string) int {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	mult := 1.0
	if strings.HasSuffix(s, "k") {
		mult = 1000
		s = strings.TrimSuffix(s, "k")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f * mult)
}
