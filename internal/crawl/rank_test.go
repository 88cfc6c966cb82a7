package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankHighValuePages(t *testing.T) {
	t.Parallel()
	discovered := []string{
		"https://acme.com/blog/post-1",
		"https://acme.com/company/leadership",
		"https://acme.com/about-us",
		"https://other.com/about", // wrong host
	}
	ranked := RankHighValuePages("https://acme.com/", discovered)

	// Conventional guesses lead.
	assert.Equal(t, "https://acme.com/about", ranked[0])
	assert.Equal(t, "https://acme.com/team", ranked[1])

	// Keyword-matching discovered URLs included, wrong hosts and
	// non-matching paths excluded.
	assert.Contains(t, ranked, "https://acme.com/about-us")
	assert.Contains(t, ranked, "https://acme.com/company/leadership")
	assert.NotContains(t, ranked, "https://acme.com/blog/post-1")
	assert.NotContains(t, ranked, "https://other.com/about")
	assert.NotContains(t, ranked, "https://acme.com/")

	// No duplicates.
	seen := map[string]bool{}
	for _, u := range ranked {
		assert.False(t, seen[u], "duplicate %s", u)
		seen[u] = true
	}
}

func TestRankHighValuePages_BadRoot(t *testing.T) {
	t.Parallel()
	assert.Nil(t, RankHighValuePages("://bad", nil))
}

