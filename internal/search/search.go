// Package search finds candidate companies on the open web. Queries go
// through the shared headless browser so results render the same way they
// would for a person, and extraction stays a pure HTML-in, results-out
// function.
package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/browser"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/normalize"
)

const (
	searchEndpoint    = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 10
)

// Client runs web searches through the browser manager.
type Client struct {
	mgr     *browser.Manager
	limiter *rate.Limiter
}

// New creates a search client. requestsPerSecond throttles searches; the
// HTML endpoint rate-limits aggressively, so the default is conservative.
func New(mgr *browser.Manager, requestsPerSecond float64) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 0.5
	}
	return &Client{
		mgr:     mgr,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Search runs one query and returns up to maxResults organic results.
// Zero results is not an error; the agent treats an empty list as a signal
// to refine its strategy.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "search: rate limit wait")
	}

	searchURL := searchEndpoint + "?q=" + url.QueryEscape(query)

	var html string
	err := c.mgr.WithPage(ctx, searchURL, func(page *rod.Page) error {
		var err error
		html, err = page.HTML()
		if err != nil {
			return eris.Wrap(err, "search: read results page")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := ExtractResults(html, maxResults)
	zap.L().Info("search: query complete",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// ExtractResults parses a DuckDuckGo HTML-endpoint results page. Ads are
// skipped and redirect links are unwrapped to the destination URL.
func ExtractResults(html string, maxResults int) []model.SearchResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var results []model.SearchResult
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("result--ad") {
			return true
		}

		anchor := sel.Find("a.result__a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		resultURL := unwrapRedirect(href)
		if resultURL == "" {
			return true
		}

		results = append(results, model.SearchResult{
			Name:    strings.TrimSpace(anchor.Text()),
			URL:     resultURL,
			Snippet: strings.TrimSpace(sel.Find("a.result__snippet").First().Text()),
			Domain:  normalize.Domain(resultURL),
		})
		return len(results) < maxResults
	})
	return results
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg= redirect wrapper to the
// destination URL. Plain links pass through unchanged.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if dest := u.Query().Get("uddg"); dest != "" {
			return dest
		}
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
