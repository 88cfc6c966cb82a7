package crawl

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/browser"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/normalize"
)

// Crawler visits a site through the shared browser manager. Sitemap and
// robots probes go over plain HTTP; pages that may need JS rendering go
// through Chrome.
type Crawler struct {
	mgr     *browser.Manager
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a Crawler. requestsPerSecond throttles page visits per
// crawler instance; site courtesy matters more than speed.
func New(mgr *browser.Manager, requestsPerSecond float64) *Crawler {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &Crawler{
		mgr: mgr,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// CrawlSite crawls the homepage plus up to five high-value pages and
// aggregates the extracted signals. A total failure (homepage unreachable,
// browser unavailable) is reported through the result's Error field, not a
// Go error, so the agent can hand it back to the model as a failed tool
// result.
func (c *Crawler) CrawlSite(ctx context.Context, rootURL string) *model.CrawlResult {
	rootURL = normalize.URL(rootURL)
	result := &model.CrawlResult{
		RootURL: rootURL,
		Domain:  normalize.Domain(rootURL),
	}
	if rootURL == "" {
		result.Error = "invalid root url"
		return result
	}

	home, err := c.visit(ctx, rootURL)
	if err != nil {
		result.Error = eris.ToString(err, false)
		return result
	}
	result.Title = home.Title
	result.Description = home.Description
	result.PagesVisited = append(result.PagesVisited, rootURL)
	mergePage(result, home)

	sitemapURLs := DiscoverSitemap(ctx, c.http, baseOf(rootURL))
	discovered := append(sitemapURLs, home.InternalLinks...)
	candidates := RankHighValuePages(rootURL, discovered)

	visited := 0
	for _, pageURL := range candidates {
		if visited >= maxHighValuePages {
			break
		}
		if ctx.Err() != nil {
			break
		}
		visited++

		data, err := c.visit(ctx, pageURL)
		if err != nil {
			zap.L().Debug("crawl: page failed",
				zap.String("url", pageURL),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, model.PageError{
				URL:    pageURL,
				Reason: eris.ToString(err, false),
			})
			continue
		}
		result.PagesVisited = append(result.PagesVisited, pageURL)
		mergePage(result, data)
	}

	zap.L().Info("crawl: site complete",
		zap.String("root", rootURL),
		zap.Int("pages", len(result.PagesVisited)),
		zap.Int("emails", len(result.Emails)),
		zap.Int("phones", len(result.Phones)),
		zap.Int("failures", len(result.Errors)),
	)
	return result
}

// visit loads one page in a scoped browser session, dismisses overlays,
// and extracts its signals.
func (c *Crawler) visit(ctx context.Context, pageURL string) (model.PageData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.PageData{}, eris.Wrap(err, "crawl: rate limit wait")
	}

	var data model.PageData
	err := c.mgr.WithPage(ctx, pageURL, func(page *rod.Page) error {
		dismissOverlays(page)
		html, err := page.HTML()
		if err != nil {
			return eris.Wrapf(err, "crawl: read html %s", pageURL)
		}
		data = ExtractPageData(pageURL, html)
		return nil
	})
	return data, err
}

// mergePage folds one page's signals into the aggregate, deduplicating
// emails (case-insensitive), phones (by digit sequence), tech (by name),
// and keeping the first social link per platform.
func mergePage(result *model.CrawlResult, page model.PageData) {
	emailSeen := make(map[string]bool, len(result.Emails))
	for _, e := range result.Emails {
		emailSeen[strings.ToLower(e)] = true
	}
	for _, e := range page.Emails {
		if k := strings.ToLower(e); !emailSeen[k] {
			emailSeen[k] = true
			result.Emails = append(result.Emails, e)
		}
	}

	phoneSeen := make(map[string]bool, len(result.Phones))
	for _, p := range result.Phones {
		phoneSeen[digitsOf(p)] = true
	}
	for _, p := range page.Phones {
		if k := digitsOf(p); !phoneSeen[k] {
			phoneSeen[k] = true
			result.Phones = append(result.Phones, p)
		}
	}

	techSeen := make(map[string]bool, len(result.TechStack))
	for _, t := range result.TechStack {
		techSeen[t] = true
	}
	for _, t := range page.TechStack {
		if !techSeen[t] {
			techSeen[t] = true
			result.TechStack = append(result.TechStack, t)
		}
	}

	if len(page.SocialLinks) > 0 && result.SocialLinks == nil {
		result.SocialLinks = make(map[string]string)
	}
	for platform, link := range page.SocialLinks {
		if _, taken := result.SocialLinks[platform]; !taken {
			result.SocialLinks[platform] = link
		}
	}
}

func baseOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
