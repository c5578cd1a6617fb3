package search

import (
	"net/url"
	"regexp"
	"strings"
)

// thirdPartyDomains host profiles about a brand rather than the brand itself.
var thirdPartyDomains = []string{
	"wikipedia.org", "linkedin.com", "crunchbase.com", "facebook.com",
	"twitter.com", "x.com", "instagram.com", "youtube.com", "tiktok.com",
	"amazon.com", "yelp.com", "glassdoor.com", "indeed.com", "trustpilot.com",
	"bloomberg.com", "forbes.com", "reddit.com", "g2.com", "capterra.com",
	"zoominfo.com", "pitchbook.com",
}

var officialKeywords = []string{"official", "home", "about", "welcome", "homepage"}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// compact lowercases s and drops everything that is not a letter or digit,
// so "Ben & Jerry's" becomes "benjerrys".
func compact(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// Host returns the lowercased host of rawURL without a leading "www.".
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// IsThirdPartyDomain reports whether rawURL is on a known aggregator,
// social or press domain.
func IsThirdPartyDomain(rawURL string) bool {
	host := Host(rawURL)
	for _, d := range thirdPartyDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// DomainMatches reports whether the brand name appears in the URL's
// registrable host labels.
func DomainMatches(rawURL, brand string) bool {
	b := compact(brand)
	if b == "" {
		return false
	}
	host := Host(rawURL)
	if host == "" {
		return false
	}
	labels := strings.Split(host, ".")
	// Drop the TLD so "acme.com" compares "acme".
	if len(labels) > 1 {
		labels = labels[:len(labels)-1]
	}
	return strings.Contains(compact(strings.Join(labels, "")), b)
}

// ScoreBrandResult is the 0-100 preliminary score of a web result for
// brand. It combines domain match, title match, keyword presence and a
// third-party penalty.
func ScoreBrandResult(title, rawURL, content, brand, context string) int {
	score := 0
	lowerBrand := strings.ToLower(strings.TrimSpace(brand))
	lowerTitle := strings.ToLower(title)
	lowerContent := strings.ToLower(content)

	if DomainMatches(rawURL, brand) {
		score += 40
	}
	if lowerBrand != "" && strings.Contains(lowerTitle, lowerBrand) {
		score += 20
	}
	if lowerBrand != "" && strings.Contains(lowerContent, lowerBrand) {
		score += 10
	}
	for _, kw := range officialKeywords {
		if strings.Contains(lowerTitle, kw) || strings.Contains(strings.ToLower(rawURL), "/"+kw) {
			score += 10
			break
		}
	}
	score += contextOverlap(lowerTitle+" "+lowerContent, context, 5, 20)
	if IsThirdPartyDomain(rawURL) {
		score -= 30
	}
	return clamp(score)
}

var (
	comparativeTerms = []string{" vs ", " vs.", "versus", "compare", "comparison", "alternative", "better than", "switch from", "switched to"}
	engagementTerms  = []string{"review", "experience", "recommend", "thoughts", "opinion", "worth it", "anyone", "honest"}
)

// ScoreRedditThread is the 0-100 preliminary score of a Reddit thread for
// brand, favoring comparative and first-hand discussion.
func ScoreRedditThread(title, content, brand string, comments int) int {
	score := 0
	lowerBrand := strings.ToLower(strings.TrimSpace(brand))
	lowerTitle := " " + strings.ToLower(title) + " "
	lowerContent := " " + strings.ToLower(content) + " "

	if lowerBrand != "" && strings.Contains(lowerTitle, lowerBrand) {
		score += 35
	}
	if lowerBrand != "" && strings.Contains(lowerContent, lowerBrand) {
		score += 15
	}
	if containsAny(lowerTitle, comparativeTerms) || containsAny(lowerContent, comparativeTerms) {
		score += 20
	}
	if containsAny(lowerTitle, engagementTerms) {
		score += 15
	} else if containsAny(lowerContent, engagementTerms) {
		score += 5
	}
	switch {
	case comments >= 50:
		score += 15
	case comments >= 10:
		score += 10
	case comments > 0:
		score += 5
	}
	return clamp(score)
}

func contextOverlap(text, context string, per, limit int) int {
	total := 0
	seen := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(context)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) < 4 || seen[w] {
			continue
		}
		seen[w] = true
		if strings.Contains(text, w) {
			total += per
		}
	}
	if total > limit {
		return limit
	}
	return total
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
