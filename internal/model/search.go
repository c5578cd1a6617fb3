package model

// SearchResult is a single web or Reddit search hit with its heuristic score.
type SearchResult struct {
	Title            string `json:"title"`
	URL              string `json:"url"`
	Content          string `json:"content"`
	PreliminaryScore int    `json:"preliminaryScore"`
}

// SearchOutcome is the return value of a multi-query search. Error is set
// (and Results is empty) when every query failed or returned nothing.
type SearchOutcome struct {
	Results []SearchResult `json:"results"`
	Queries []string       `json:"queries,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// RedditThread is a Reddit discussion found through search.
type RedditThread struct {
	Title          string               `json:"title"`
	URL            string               `json:"url"`
	Subreddit      string               `json:"subreddit"` // always "r/<name>"
	Score          int                  `json:"score"`
	Comments       int                  `json:"comments"`
	Content        string               `json:"content"`
	RelevanceScore int                  `json:"relevanceScore"`
	Evaluation     *RelevanceEvaluation `json:"evaluation,omitempty"`
}

// RedditOutcome mirrors SearchOutcome for Reddit discovery.
type RedditOutcome struct {
	Threads []RedditThread `json:"threads"`
	Queries []string       `json:"queries,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ThreadURLs returns the URLs of threads in order.
func ThreadURLs(threads []RedditThread) []string {
	urls := make([]string, 0, len(threads))
	for _, t := range threads {
		urls = append(urls, t.URL)
	}
	return urls
}
