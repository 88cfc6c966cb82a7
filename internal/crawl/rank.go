package crawl

import (
	"net/url"
	"strings"
)

// highValueKeywords are path fragments that tend to carry contact and
// team information, in priority order.
var highValueKeywords = []string{
	"about",
	"team",
	"contact",
	"leadership",
	"people",
	"careers",
	"company",
	"management",
	"staff",
	"who-we-are",
}

// maxHighValuePages caps how many pages beyond the homepage one crawl
// visits.
const maxHighValuePages = 5

// RankHighValuePages returns candidate pages beyond the homepage, best
// first: conventional paths off the root, then sitemap or internal-link
// URLs whose path contains a high-value keyword. Deduplicated; the
// homepage itself is excluded.
func RankHighValuePages(rootURL string, discovered []string) []string {
	base, err := url.Parse(rootURL)
	if err != nil {
		return nil
	}
	root := base.Scheme + "://" + base.Host

	seen := map[string]bool{
		rootURL:     true,
		root:        true,
		root + "/":  true,
	}
	var ranked []string
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		ranked = append(ranked, u)
	}

	// Conventional guesses first: cheap and usually right.
	for _, kw := range highValueKeywords {
		add(root + "/" + kw)
	}

	// Then anything discovered (sitemap entries, internal links) whose
	// path mentions a keyword, in keyword priority order.
	for _, kw := range highValueKeywords {
		for _, d := range discovered {
			u, err := url.Parse(d)
			if err != nil || u.Hostname() != base.Hostname() {
				continue
			}
			if strings.Contains(strings.ToLower(u.Path), kw) {
				add(d)
			}
		}
	}

	return ranked
}
