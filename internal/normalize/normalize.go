// Package normalize holds the pure canonicalization helpers for contact and
// company signals. Every function is total: bad input yields the empty
// string, never an error or a panic.
package normalize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	emailRe  = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	domainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9\-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9\-]*[a-z0-9])?)*\.[a-z]{2,}$`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// disposableDomains is a fixed blocklist of throwaway email providers.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"throwawaymail.com": true,
	"yopmail.com":       true,
	"sharklasers.com":   true,
	"getnada.com":       true,
	"trashmail.com":     true,
}

// trackingParams are query parameters stripped during URL canonicalization.
var trackingParams = map[string]bool{
	"fbclid":   true,
	"gclid":    true,
	"msclkid":  true,
	"mc_cid":   true,
	"mc_eid":   true,
	"ref":      true,
	"referrer": true,
}

// Email lower-cases and validates an email address. Returns "" for
// malformed addresses and addresses at known disposable domains.
func Email(raw string) string {
	e := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(e) {
		return ""
	}
	at := strings.LastIndex(e, "@")
	if disposableDomains[e[at+1:]] {
		return ""
	}
	return e
}

// Phone strips everything but digits (and a leading +), prepends the
// default country code when the number has none, and accepts only 8-15
// digits after the sign.
func Phone(raw, defaultCountryCode string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	p := b.String()
	if p == "" || p == "+" {
		return ""
	}
	if !strings.HasPrefix(p, "+") {
		cc := defaultCountryCode
		if cc == "" {
			cc = "+1"
		}
		if !strings.HasPrefix(cc, "+") {
			cc = "+" + cc
		}
		p = cc + p
	}
	digits := len(p) - 1
	if digits < 8 || digits > 15 {
		return ""
	}
	return p
}

// Name Unicode-normalizes a person or company name, collapses whitespace,
// and title-cases each token. The Caser is built per call: cases.Caser is
// a stateful transformer and must not be shared across goroutines.
func Name(raw string) string {
	n := norm.NFC.String(strings.TrimSpace(raw))
	if n == "" {
		return ""
	}
	n = spaceRe.ReplaceAllString(n, " ")
	return cases.Title(language.English).String(n)
}

// Domain strips scheme, "www." prefix, path, and query from a URL-ish
// string and validates the remainder against a domain shape.
func Domain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if d == "" {
		return ""
	}
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	for _, sep := range []string{"/", "?", "#"} {
		if i := strings.Index(d, sep); i >= 0 {
			d = d[:i]
		}
	}
	if i := strings.Index(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	if !domainRe.MatchString(d) {
		return ""
	}
	return d
}

// URL canonicalizes a URL: https scheme, lower-cased host, tracking query
// parameters and fragment removed.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for param := range q {
		if trackingParams[param] || strings.HasPrefix(param, "utm_") {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// LinkedInURL canonicalizes a URL and enforces a linkedin.com host.
func LinkedInURL(raw string) string {
	canonical := URL(raw)
	if canonical == "" {
		return ""
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return ""
	}
	return canonical
}

// genericLocalParts are mailbox names that never identify a person.
var genericLocalParts = map[string]bool{
	"info":      true,
	"sales":     true,
	"support":   true,
	"contact":   true,
	"hello":     true,
	"hi":        true,
	"admin":     true,
	"office":    true,
	"team":      true,
	"mail":      true,
	"enquiries": true,
	"inquiries": true,
	"help":      true,
	"careers":   true,
	"jobs":      true,
	"press":     true,
	"marketing": true,
	"billing":   true,
	"noreply":   true,
	"no-reply":  true,
}

// placeholderNames are literal strings that look like a name field but
// carry no identity (UI defaults leaking into scraped data).
var placeholderNames = map[string]bool{
	"direct":  true,
	"unknown": true,
	"n/a":     true,
	"na":      true,
	"none":    true,
	"null":    true,
	"contact": true,
	"name":    true,
	"-":       true,
}

// SafeContactDisplayName returns a display name that never looks like a
// placeholder. Fallback order: the given name, a name derived from the
// email local part (skipping generic mailboxes), the company name, and
// finally the domain's second-level label.
func SafeContactDisplayName(name, email, companyName, domain string) string {
	if n := Name(name); n != "" && !placeholderNames[strings.ToLower(n)] {
		return n
	}

	if e := Email(email); e != "" {
		local := e[:strings.Index(e, "@")]
		if !genericLocalParts[local] {
			if n := nameFromToken(local); n != "" {
				return n
			}
		}
	}

	if cn := strings.TrimSpace(companyName); cn != "" {
		return cn
	}

	if d := Domain(domain); d != "" {
		label := strings.SplitN(d, ".", 2)[0]
		if n := nameFromToken(label); n != "" {
			return n
		}
	}

	return ""
}

// nameFromToken turns "john.doe" or "jane_smith" into "John Doe".
func nameFromToken(token string) string {
	token = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		case r == '.' || r == '_' || r == '-' || r == '+':
			return ' '
		default:
			return -1
		}
	}, token)
	return Name(token)
}
