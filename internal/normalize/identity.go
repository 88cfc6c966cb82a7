package normalize

import "strings"

// CompanyDedupeKey derives the cross-job identity key for a company.
// Deterministic for a fixed domain; "" when the domain does not normalize.
func CompanyDedupeKey(domain string) string {
	d := Domain(domain)
	if d == "" {
		return ""
	}
	return "company:" + d
}

// PersonDedupeKey derives an identity key for a contact, trying in order:
// email, name+domain, name+title+domain. Returns "" when no combination is
// available; the caller must then treat the contact as non-deduplicable
// but still storable.
func PersonDedupeKey(email, name, domain, title string) string {
	if e := Email(email); e != "" {
		return "person:" + e
	}

	n := keySlug(Name(name))
	d := Domain(domain)
	if n != "" && d != "" {
		return "person:" + n + ":" + d
	}

	t := keySlug(title)
	if n != "" && t != "" && d != "" {
		return "person:" + n + ":" + t + ":" + d
	}

	return ""
}

func keySlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}

// CompanyConfidence scores how much is known about a company, as an
// additive point system clamped to [0,100].
func CompanyConfidence(domain, description string, techStack []string, industry string) int {
	score := 0
	if Domain(domain) != "" {
		score += 40
	}
	if strings.TrimSpace(description) != "" {
		score += 20
	}
	if len(techStack) > 0 {
		score += 20
	}
	if strings.TrimSpace(industry) != "" {
		score += 20
	}
	return clamp(score)
}

// Source bonuses for person confidence. The agent found the contact on a
// page it chose deliberately; the enrichment pass is a broad sweep.
const (
	SourceAgent            = "agent"
	SourcePeopleEnrichment = "people_enrichment"
)

// PersonConfidence scores how much is known about a contact, as an
// additive point system clamped to [0,100].
func PersonConfidence(email, phone, linkedin, title, name, source string) int {
	score := 0
	if Email(email) != "" {
		score += 30
	}
	if phone != "" {
		score += 20
	}
	if linkedin != "" {
		score += 20
	}
	if strings.TrimSpace(title) != "" {
		score += 10
	}
	if strings.TrimSpace(name) != "" {
		score += 10
	}
	switch source {
	case SourceAgent:
		score += 10
	case SourcePeopleEnrichment:
		score += 5
	}
	return clamp(score)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
