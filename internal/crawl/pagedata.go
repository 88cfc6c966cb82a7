// Package crawl discovers and extracts contact/company signals from a
// company website: a homepage visit plus a handful of high-value internal
// pages, with sitemap discovery and consent-overlay dismissal. The
// extraction functions are pure (serialized HTML in, records out) so they
// test against captured fixtures without a live browser.
package crawl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/leadgen-cli/internal/model"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// Two phone shapes: international/e164-ish and US-style with area code.
	phoneIntlRe = regexp.MustCompile(`\+\d{1,3}[\s.\-]?\(?\d{1,4}\)?[\s.\-]?\d{2,4}[\s.\-]?\d{2,4}[\s.\-]?\d{0,4}`)
	phoneUSRe   = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]\d{4}`)
)

// vendorEmailDomains are domains that show up in page source but never
// belong to the company (error trackers, template placeholders).
var vendorEmailDomains = map[string]bool{
	"example.com":    true,
	"example.org":    true,
	"domain.com":     true,
	"yourdomain.com": true,
	"email.com":      true,
	"sentry.io":      true,
	"wixpress.com":   true,
	"sentry-next.wixpress.com": true,
}

// imageExtensions catch filename@2x.png style false positives in srcset
// attributes that match the email regex.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico"}

// socialHosts maps a platform name to the host fragment identifying it.
// First match per platform wins during extraction.
var socialHosts = []struct {
	Platform string
	Host     string
}{
	{"linkedin", "linkedin.com"},
	{"twitter", "twitter.com"},
	{"twitter", "x.com"},
	{"facebook", "facebook.com"},
	{"instagram", "instagram.com"},
	{"youtube", "youtube.com"},
	{"github", "github.com"},
}

// techMarkers pairs an HTML substring with the technology it indicates.
// Ordered so identical pages always yield the same tech stack.
var techMarkers = []struct {
	Marker string
	Tech   string
}{
	{"wp-content", "WordPress"},
	{"wp-includes", "WordPress"},
	{"cdn.shopify.com", "Shopify"},
	{"squarespace.com", "Squarespace"},
	{"static.wixstatic", "Wix"},
	{"_next/static", "Next.js"},
	{"data-reactroot", "React"},
	{"__NUXT__", "Nuxt.js"},
	{"ng-version", "Angular"},
	{"data-v-app", "Vue.js"},
	{"hs-scripts.com", "HubSpot"},
	{"js.hsforms.net", "HubSpot"},
	{"googletagmanager", "Google Tag Manager"},
	{"google-analytics", "Google Analytics"},
	{"js.stripe.com", "Stripe"},
	{"static.klaviyo.com", "Klaviyo"},
	{"cdn.segment.com", "Segment"},
	{"intercom.io", "Intercom"},
	{"widget.intercom.io", "Intercom"},
	{"crisp.chat", "Crisp"},
	{"zdassets.com", "Zendesk"},
	{"typekit.net", "Adobe Fonts"},
	{"cloudflareinsights", "Cloudflare"},
}

// assetExtensions are internal links not worth crawling.
var assetExtensions = []string{
	".pdf", ".zip", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp",
	".css", ".js", ".ico", ".xml", ".mp4", ".webm", ".woff", ".woff2",
}

// ExtractPageData pulls all structured signals from one page's HTML.
// Pure: no I/O, total for any input string.
func ExtractPageData(pageURL, html string) model.PageData {
	data := model.PageData{URL: pageURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Fall back to regex-only extraction over the raw text.
		data.Emails = extractEmails(html, nil)
		data.Phones = extractPhones(html)
		data.TechStack = detectTech(html)
		return data
	}

	data.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		data.Description = strings.TrimSpace(desc)
	}

	base, _ := url.Parse(pageURL)
	bodyText := doc.Find("body").Text()

	var mailtos []string
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexAny(addr, "?&"); i >= 0 {
			addr = addr[:i]
		}
		mailtos = append(mailtos, addr)
	})
	data.Emails = extractEmails(bodyText, mailtos)
	data.Phones = extractPhones(bodyText)
	data.SocialLinks = extractSocialLinks(doc)
	data.TechStack = detectTech(html)
	data.InternalLinks = extractInternalLinks(doc, base)

	return data
}

// extractEmails merges regex hits and mailto addresses, deduplicates, and
// filters vendor/placeholder domains and image-name false positives.
func extractEmails(text string, mailtos []string) []string {
	seen := make(map[string]bool)
	var out []string

	consider := append(emailRe.FindAllString(text, -1), mailtos...)
	for _, raw := range consider {
		e := strings.ToLower(strings.TrimSpace(raw))
		if e == "" || seen[e] {
			continue
		}
		if isImageName(e) {
			continue
		}
		at := strings.LastIndex(e, "@")
		if at <= 0 || at == len(e)-1 {
			continue
		}
		if vendorEmailDomains[e[at+1:]] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func isImageName(s string) bool {
	for _, ext := range imageExtensions {
		if strings.HasSuffix(s, ext) {
			return true
		}
	}
	return false
}

// extractPhones merges both phone patterns and deduplicates on the digit
// sequence.
func extractPhones(text string) []string {
	seen := make(map[string]bool)
	var out []string

	candidates := append(phoneIntlRe.FindAllString(text, -1), phoneUSRe.FindAllString(text, -1)...)
	for _, raw := range candidates {
		p := strings.TrimSpace(raw)
		digits := digitsOf(p)
		if len(digits) < 8 || len(digits) > 15 {
			continue
		}
		if seen[digits] {
			continue
		}
		seen[digits] = true
		out = append(out, p)
	}
	return out
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractSocialLinks(doc *goquery.Document) map[string]string {
	links := make(map[string]string)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || u.Host == "" {
			return
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		for _, sh := range socialHosts {
			if host == sh.Host || strings.HasSuffix(host, "."+sh.Host) {
				if _, taken := links[sh.Platform]; !taken {
					links[sh.Platform] = href
				}
				return
			}
		}
	})
	if len(links) == 0 {
		return nil
	}
	return links
}

func detectTech(html string) []string {
	lower := strings.ToLower(html)
	seen := make(map[string]bool)
	var out []string
	for _, tm := range techMarkers {
		if strings.Contains(lower, strings.ToLower(tm.Marker)) && !seen[tm.Tech] {
			seen[tm.Tech] = true
			out = append(out, tm.Tech)
		}
	}
	return out
}

// extractInternalLinks returns same-host, non-fragment, non-asset links
// resolved against the page URL.
func extractInternalLinks(doc *goquery.Document, base *url.URL) []string {
	if base == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		if u.Hostname() != base.Hostname() {
			return
		}
		u.Fragment = ""
		link := u.String()
		lowerPath := strings.ToLower(u.Path)
		for _, ext := range assetExtensions {
			if strings.HasSuffix(lowerPath, ext) {
				return
			}
		}
		if !seen[link] {
			seen[link] = true
			out = append(out, link)
		}
	})
	return out
}
