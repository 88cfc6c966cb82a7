package model

// SearchResult is one ranked result from the web search client.
type SearchResult struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Domain  string `json:"domain"`
}

// PageData holds the structured signals extracted from a single page.
type PageData struct {
	URL           string            `json:"url"`
	Title         string            `json:"title,omitempty"`
	Description   string            `json:"description,omitempty"`
	Emails        []string          `json:"emails,omitempty"`
	Phones        []string          `json:"phones,omitempty"`
	SocialLinks   map[string]string `json:"social_links,omitempty"`
	TechStack     []string          `json:"tech_stack,omitempty"`
	InternalLinks []string          `json:"internal_links,omitempty"`
}

// PageError records a single page navigation failure during a crawl.
type PageError struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// CrawlResult aggregates signals across all pages visited for one site.
// Error is set only when the crawl failed entirely (homepage unreachable,
// browser unavailable); per-page failures land in Errors.
type CrawlResult struct {
	RootURL      string            `json:"root_url"`
	Domain       string            `json:"domain"`
	Title        string            `json:"title,omitempty"`
	Description  string            `json:"description,omitempty"`
	Emails       []string          `json:"emails,omitempty"`
	Phones       []string          `json:"phones,omitempty"`
	SocialLinks  map[string]string `json:"social_links,omitempty"`
	TechStack    []string          `json:"tech_stack,omitempty"`
	PagesVisited []string          `json:"pages_visited,omitempty"`
	Errors       []PageError       `json:"errors,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// Failed reports whether the crawl produced no usable data at all.
func (r *CrawlResult) Failed() bool {
	return r.Error != ""
}
