package people

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureTeamPage = `<!DOCTYPE html>
<html>
<body>
	<h1>Meet The Team</h1>
	<div class="member">
		<h3>Jane Doe</h3>
		<p class="member-title">Chief Executive Officer</p>
		<a href="https://www.linkedin.com/in/janedoe">Jane Doe</a>
	</div>
	<div class="member">
		<h3>Bob O'Brien</h3>
		<small>VP Sales</small>
	</div>
	<div class="member">
		<h3>Contact Us</h3>
	</div>
	<div class="member">
		<h3>Maria Garcia Lopez</h3>
	</div>
	<div>
		<a href="https://www.linkedin.com/in/sam-smith">Sam Smith</a>
	</div>
	<h2>Our Services</h2>
	<h3>24/7 Support Desk</h3>
</body>
</html>`

func TestExtractPeople(t *testing.T) {
	t.Parallel()
	people := ExtractPeople(fixtureTeamPage)

	byName := map[string]Person{}
	for _, p := range people {
		byName[p.Name] = p
	}

	jane, ok := byName["Jane Doe"]
	require.True(t, ok)
	assert.Equal(t, "Chief Executive Officer", jane.Title)
	assert.Equal(t, "https://www.linkedin.com/in/janedoe", jane.LinkedInURL)

	bob, ok := byName["Bob O'Brien"]
	require.True(t, ok)
	assert.Equal(t, "VP Sales", bob.Title)

	// Name without any title or profile still counts.
	_, ok = byName["Maria Garcia Lopez"]
	assert.True(t, ok)

	// Name that only appears as a LinkedIn anchor.
	sam, ok := byName["Sam Smith"]
	require.True(t, ok)
	assert.Equal(t, "https://www.linkedin.com/in/sam-smith", sam.LinkedInURL)

	// Heading vocabulary and non-names excluded.
	_, ok = byName["Meet The Team"]
	assert.False(t, ok)
	_, ok = byName["Contact Us"]
	assert.False(t, ok)
	_, ok = byName["Our Services"]
	assert.False(t, ok)
	_, ok = byName["24/7 Support Desk"]
	assert.False(t, ok)
}

func TestExtractPeople_DedupesWithinPage(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<h3>Jane Doe</h3><small>CEO</small>
		<h3>Jane Doe</h3><small>CEO</small>
	</body></html>`
	people := ExtractPeople(html)
	assert.Len(t, people, 1)
}

func TestExtractPeople_LinkedInOnlyNamesStableOrder(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<a href="https://www.linkedin.com/in/carol">Carol Davis</a>
		<a href="https://www.linkedin.com/in/alice">Alice Brown</a>
		<a href="https://www.linkedin.com/in/bob">Bob Clark</a>
	</body></html>`

	first := ExtractPeople(html)
	require.Len(t, first, 3)
	assert.Equal(t, "Alice Brown", first[0].Name)
	assert.Equal(t, "Bob Clark", first[1].Name)
	assert.Equal(t, "Carol Davis", first[2].Name)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractPeople(html))
	}
}

func TestExtractPeople_EmptyAndGarbage(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ExtractPeople(""))
	assert.Empty(t, ExtractPeople("<html><body><p>no people here</p></body></html>"))
}

func TestLooksLikePersonName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want bool
	}{
		{"Jane Doe", true},
		{"Bob O'Brien", true},
		{"Maria Garcia Lopez", true},
		{"John J. Smith-Jones", true},
		{"jane doe", false},          // lowercase
		{"Jane", false},              // single token
		{"One Two Three Four Five", false}, // too many tokens
		{"Our Team", false},          // heading vocabulary
		{"Call 555-1234", false},     // digits
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LooksLikePersonName(tt.text))
		})
	}
}

func TestLooksLikeTitle(t *testing.T) {
	t.Parallel()
	assert.True(t, looksLikeTitle("Chief Executive Officer"))
	assert.True(t, looksLikeTitle("VP Sales"))
	assert.False(t, looksLikeTitle("Jane Doe"))
	assert.False(t, looksLikeTitle(""))
	assert.False(t, looksLikeTitle("Some unrelated marketing copy that rambles on far past the length cap for a plausible job title here"))
}
