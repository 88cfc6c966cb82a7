package people

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/leadgen-cli/internal/normalize"
)

// Person is one name/title/linkedin triple extracted from a page. No
// email or phone: this pass deals in low-information leads.
type Person struct {
	Name        string
	Title       string
	LinkedInURL string
}

// nameTokenRe matches one capitalized name token, allowing an initial
// ("J.") and common intra-name punctuation (O'Brien, Smith-Jones).
var nameTokenRe = regexp.MustCompile(`^[A-Z][a-zA-Z'\-]*\.?$`)

// nonNameWords are capitalized words that show up in headings but never
// in personal names.
var nonNameWords = map[string]bool{
	"Our": true, "The": true, "Team": true, "About": true, "Meet": true,
	"Contact": true, "Us": true, "Leadership": true, "Management": true,
	"Company": true, "Careers": true, "Services": true, "Products": true,
	"Join": true, "Welcome": true, "Why": true, "What": true, "How": true,
	"Get": true, "In": true, "Touch": true, "Board": true, "Directors": true,
}

// titleMarkers suggest a text fragment is a job title rather than a name.
var titleMarkers = []string{
	"ceo", "cto", "cfo", "coo", "chief", "president", "founder",
	"director", "manager", "head of", "vp ", "vice president", "officer",
	"engineer", "partner", "owner", "principal", "lead ", "sales",
	"marketing", "operations",
}

const maxTitleLen = 80

// LooksLikePersonName reports whether text reads like a personal name:
// two to four capitalized tokens, none of them heading vocabulary.
func LooksLikePersonName(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, "0123456789@/") {
		return false
	}
	tokens := strings.Fields(text)
	if len(tokens) < 2 || len(tokens) > 4 {
		return false
	}
	for _, tok := range tokens {
		if !nameTokenRe.MatchString(tok) || nonNameWords[tok] {
			return false
		}
	}
	return true
}

// looksLikeTitle reports whether text plausibly names a role.
func looksLikeTitle(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxTitleLen || LooksLikePersonName(text) {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range titleMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ExtractPeople runs the DOM heuristics over one page: LinkedIn anchors
// build a name→profile map, heading-like elements yield name candidates,
// and nearby text supplies titles. Results are deduplicated by
// name+title within the page.
func ExtractPeople(html string) []Person {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	linkedinByName := make(map[string]string)
	doc.Find(`a[href*="linkedin.com"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		profile := normalize.LinkedInURL(href)
		if profile == "" {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if LooksLikePersonName(text) {
			if _, taken := linkedinByName[text]; !taken {
				linkedinByName[text] = profile
			}
		}
	})

	var people []Person
	seen := make(map[string]bool)
	doc.Find(`h1, h2, h3, h4, h5, h6, [class*="name"], strong`).Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Text())
		if !LooksLikePersonName(name) {
			return
		}
		title := titleNear(sel)
		key := strings.ToLower(name) + "|" + strings.ToLower(title)
		if seen[key] {
			return
		}
		seen[key] = true
		people = append(people, Person{
			Name:        name,
			Title:       title,
			LinkedInURL: linkedinByName[name],
		})
	})

	// Names seen only as LinkedIn anchors still count. Sorted so the
	// output order is stable across runs.
	anchorNames := make([]string, 0, len(linkedinByName))
	for name := range linkedinByName {
		anchorNames = append(anchorNames, name)
	}
	sort.Strings(anchorNames)
	for _, name := range anchorNames {
		key := strings.ToLower(name) + "|"
		if !seen[key] && !seenName(seen, name) {
			seen[key] = true
			people = append(people, Person{Name: name, LinkedInURL: linkedinByName[name]})
		}
	}
	return people
}

func seenName(seen map[string]bool, name string) bool {
	prefix := strings.ToLower(name) + "|"
	for key := range seen {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// titleNear finds a role string near a matched name: the next sibling's
// text first, then a title-like child of the parent element.
func titleNear(sel *goquery.Selection) string {
	if next := strings.TrimSpace(sel.Next().Text()); looksLikeTitle(next) {
		return next
	}
	title := ""
	sel.Parent().Find(`small, [class*="title"], [class*="role"], em, i`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); looksLikeTitle(text) {
			title = text
			return false
		}
		return true
	})
	return title
}
