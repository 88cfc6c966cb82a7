package people

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/normalize"
	"github.com/sells-group/leadgen-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeFetcher serves canned HTML per URL and errors on everything else.
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) FetchHTML(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	html, ok := f.pages[url]
	if !ok {
		return "", eris.Errorf("no page at %s", url)
	}
	return html, nil
}

func seedCandidate(t *testing.T, st store.Store, id, domain string) model.LeadCandidate {
	t.Helper()
	candidate := model.LeadCandidate{
		ID:          id,
		PoolID:      "pool-1",
		Domain:      domain,
		DedupeKey:   normalize.CompanyDedupeKey(domain),
		CompanyName: "Acme Inc",
		HomepageURL: "https://" + domain,
		Score:       60,
		Status:      model.CandidateStatusNew,
		Provenance:  model.Provenance{Source: normalize.SourceAgent, JobID: "job-1"},
	}
	require.NoError(t, st.CreateLeadCandidate(context.Background(), candidate))
	return candidate
}

func TestPass_CreatesLowConfidenceContacts(t *testing.T) {
	st := newTestStore(t)
	candidate := seedCandidate(t, st, "cand-1", "acme.com")

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://acme.com/team": `<html><body>
			<h3>Jane Doe</h3><small>CEO</small>
			<h3>Bob Smith</h3>
		</body></html>`,
	}}

	pass := NewPass(st, fetcher, Config{PagesPerCompany: 3})
	totals, err := pass.Run(context.Background(), "pool-1")
	require.NoError(t, err)

	assert.Equal(t, 1, totals.Companies)
	assert.Equal(t, 2, totals.ContactsCreated)
	assert.Zero(t, totals.ContactsUpdated)
	// Unreachable conventional pages were skipped, not fatal.
	assert.GreaterOrEqual(t, len(fetcher.fetched), 1)

	contacts, err := st.ListContacts(context.Background(), candidate.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		assert.Empty(t, c.Email)
		assert.Empty(t, c.Phone)
		assert.Equal(t, normalize.SourcePeopleEnrichment, c.Provenance.Source)
		assert.Greater(t, c.Confidence, 0)
		assert.LessOrEqual(t, c.Confidence, 100)
		assert.NotEmpty(t, c.DedupeKey)
	}
}

func TestPass_UpdatesExistingContactByDedupeKey(t *testing.T) {
	st := newTestStore(t)
	candidate := seedCandidate(t, st, "cand-1", "acme.com")

	// An agent-created contact with the same name+domain identity but no
	// title or LinkedIn yet.
	existing := model.ContactCandidate{
		ID:          "contact-1",
		CandidateID: candidate.ID,
		FullName:    "Jane Doe",
		Email:       "",
		DedupeKey:   normalize.PersonDedupeKey("", "Jane Doe", "acme.com", ""),
		Confidence:  10,
		Status:      model.CandidateStatusNew,
		Provenance:  model.Provenance{Source: normalize.SourceAgent, JobID: "job-1"},
	}
	require.NoError(t, st.CreateContactCandidate(context.Background(), existing))

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://acme.com/team": `<html><body>
			<h3>Jane Doe</h3><small>CEO</small>
			<a href="https://linkedin.com/in/janedoe">Jane Doe</a>
		</body></html>`,
	}}

	pass := NewPass(st, fetcher, Config{})
	totals, err := pass.Run(context.Background(), "pool-1")
	require.NoError(t, err)
	assert.Equal(t, 1, totals.ContactsUpdated)

	contacts, err := st.ListContacts(context.Background(), candidate.ID)
	require.NoError(t, err)
	// Updated in place, plus possibly a separate name+title-keyed row is
	// NOT created for the same person.
	require.Len(t, contacts, 1)
	assert.Equal(t, "CEO", contacts[0].Title)
	assert.NotEmpty(t, contacts[0].LinkedInURL)
}

func TestPass_RespectsCandidateLimit(t *testing.T) {
	st := newTestStore(t)
	seedCandidate(t, st, "cand-1", "one.com")
	seedCandidate(t, st, "cand-2", "two.com")

	fetcher := &fakeFetcher{pages: map[string]string{}}
	pass := NewPass(st, fetcher, Config{MaxCandidates: 1, PagesPerCompany: 1})
	totals, err := pass.Run(context.Background(), "pool-1")
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Companies)
}
