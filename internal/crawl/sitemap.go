package crawl

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// maxSitemapURLs caps how many sitemap entries we keep per site.
const maxSitemapURLs = 100

// conventionalSitemapPaths are probed when robots.txt names no sitemap.
var conventionalSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
	"/page-sitemap.xml",
}

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// DiscoverSitemap finds a site's sitemap URLs: robots.txt "Sitemap:"
// directives take priority, then conventional paths. Nested sitemap-index
// files are ignored rather than recursed. Returns at most 100 URLs; an
// unreachable or absent sitemap yields nil, not an error.
func DiscoverSitemap(ctx context.Context, client *http.Client, baseURL string) []string {
	base := strings.TrimRight(baseURL, "/")

	candidates := robotsSitemaps(ctx, client, base)
	for _, p := range conventionalSitemapPaths {
		candidates = append(candidates, base+p)
	}

	for _, sitemapURL := range candidates {
		urls := fetchSitemap(ctx, client, sitemapURL)
		if len(urls) > 0 {
			zap.L().Debug("crawl: sitemap found",
				zap.String("sitemap", sitemapURL),
				zap.Int("urls", len(urls)),
			)
			return urls
		}
	}
	return nil
}

// robotsSitemaps extracts Sitemap: directives from robots.txt.
func robotsSitemaps(ctx context.Context, client *http.Client, base string) []string {
	body := fetchBody(ctx, client, base+"/robots.txt")
	if body == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			continue
		}
		loc := strings.TrimSpace(line[len("sitemap:"):])
		if loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

// fetchSitemap downloads and parses one sitemap file. Sitemap-index files
// (nested <sitemapindex>) come back empty by design.
func fetchSitemap(ctx context.Context, client *http.Client, sitemapURL string) []string {
	body := fetchBody(ctx, client, sitemapURL)
	if body == "" {
		return nil
	}
	return ParseSitemap(body)
}

// ParseSitemap extracts <loc> entries from a <urlset> document, capped at
// maxSitemapURLs. Anything else (sitemap indexes, HTML error pages)
// yields nil.
func ParseSitemap(body string) []string {
	var set urlset
	if err := xml.Unmarshal([]byte(body), &set); err != nil {
		return nil
	}
	var out []string
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" {
			continue
		}
		out = append(out, loc)
		if len(out) >= maxSitemapURLs {
			break
		}
	}
	return out
}

func fetchBody(ctx context.Context, client *http.Client, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; LeadGenBot/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return ""
	}
	return string(body)
}
