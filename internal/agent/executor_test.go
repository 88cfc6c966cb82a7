package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
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

type fakeSearcher struct {
	results []model.SearchResult
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]model.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeCrawler struct {
	result *model.CrawlResult
	visit  func(rootURL string) *model.CrawlResult
}

func (f *fakeCrawler) CrawlSite(_ context.Context, rootURL string) *model.CrawlResult {
	if f.visit != nil {
		return f.visit(rootURL)
	}
	if f.result != nil {
		return f.result
	}
	return &model.CrawlResult{RootURL: rootURL}
}

func newTestExecutor(t *testing.T, st store.Store, icp model.ICPConfig) *Executor {
	t.Helper()
	return NewExecutor(st, &fakeSearcher{}, &fakeCrawler{}, nil, "", "job-1", "pool-1", "+1", icp)
}

func TestSaveCompany_PreconditionNoContacts(t *testing.T) {
	st := newTestStore(t)
	exec := newTestExecutor(t, st, model.ICPConfig{})

	outcome := exec.Execute(context.Background(), SaveCompanyArgs{
		Domain:   "acme.com",
		Contacts: nil,
	})

	require.NotNil(t, outcome.Save)
	assert.False(t, outcome.Save.Success)
	assert.True(t, outcome.IsError)
	assert.NotEmpty(t, outcome.Save.Error)

	// Nothing persisted.
	candidates, err := st.ListLeadCandidates(context.Background(), store.CandidateFilter{PoolID: "pool-1"})
	require.NoError(t, err)
	assert.Empty(t, candidates)
	_, err = st.GetGlobalCompany(context.Background(), "company:acme.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveCompany_PreconditionNoUsableContact(t *testing.T) {
	st := newTestStore(t)
	exec := newTestExecutor(t, st, model.ICPConfig{})

	outcome := exec.Execute(context.Background(), SaveCompanyArgs{
		Domain: "acme.com",
		Contacts: []ContactInput{
			{FullName: "Jane Doe"},
			{FullName: "Bob Smith", Email: "not-an-email", Phone: "123"},
		},
	})

	require.NotNil(t, outcome.Save)
	assert.False(t, outcome.Save.Success)

	candidates, err := st.ListLeadCandidates(context.Background(), store.CandidateFilter{PoolID: "pool-1"})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSaveCompany_PersistsAndScores(t *testing.T) {
	st := newTestStore(t)
	exec := newTestExecutor(t, st, model.ICPConfig{Industries: []string{"Manufacturing"}})

	outcome := exec.Execute(context.Background(), SaveCompanyArgs{
		Domain:      "https://www.acme.com/about",
		CompanyName: "Acme Inc",
		Description: "Acme manufactures industrial anvils for the wholesale market nationwide.",
		Industry:    "Manufacturing",
		TechStack:   []string{"WordPress"},
		Contacts: []ContactInput{
			{FullName: "Jane Doe", Title: "CEO", Email: "jane@acme.com"},
			{Email: "sales@acme.com", Phone: "555-123-4567"},
			{FullName: "No Info Person"}, // silently skipped
		},
	})

	require.NotNil(t, outcome.Save)
	require.True(t, outcome.Save.Success)
	assert.Equal(t, 2, outcome.Save.ContactsCreated)
	require.NotEmpty(t, outcome.Save.CandidateID)

	// 50 base + 20 contacts + 10 two emails + 5 tech + 5 description.
	candidates, err := st.ListLeadCandidates(context.Background(), store.CandidateFilter{PoolID: "pool-1"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 90, candidates[0].Score)
	assert.Equal(t, "acme.com", candidates[0].Domain)
	assert.Equal(t, model.CandidateStatusNew, candidates[0].Status)
	assert.Equal(t, "job-1", candidates[0].Provenance.JobID)

	gc, err := st.GetGlobalCompany(context.Background(), "company:acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", gc.CompanyName)

	contacts, err := st.ListContacts(context.Background(), outcome.Save.CandidateID)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		assert.NotEmpty(t, c.FullName)
		assert.GreaterOrEqual(t, c.Confidence, 0)
		assert.LessOrEqual(t, c.Confidence, 100)
	}
}

func TestSaveCompany_GapFallbackWithoutLLM(t *testing.T) {
	st := newTestStore(t)
	exec := newTestExecutor(t, st, model.ICPConfig{Industries: []string{"Logistics"}})

	outcome := exec.Execute(context.Background(), SaveCompanyArgs{
		Domain:   "roadrunner-supply.com",
		Contacts: []ContactInput{{Email: "ops@roadrunner-supply.com"}},
	})
	require.True(t, outcome.Save.Success)

	candidates, err := st.ListLeadCandidates(context.Background(), store.CandidateFilter{PoolID: "pool-1"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	// Deterministic fallbacks: domain-derived name, generic description,
	// first ICP industry.
	assert.Equal(t, "Roadrunner-Supply", candidates[0].CompanyName)
	assert.NotEmpty(t, candidates[0].Description)
	assert.Equal(t, "Logistics", candidates[0].Industry)
}

func TestSaveCompany_ContactCap(t *testing.T) {
	st := newTestStore(t)
	exec := newTestExecutor(t, st, model.ICPConfig{MaxContactsPerCompany: 1})

	outcome := exec.Execute(context.Background(), SaveCompanyArgs{
		Domain: "acme.com",
		Contacts: []ContactInput{
			{Email: "a@acme.com"},
			{Email: "b@acme.com"},
		},
	})
	require.True(t, outcome.Save.Success)
	assert.Equal(t, 1, outcome.Save.ContactsCreated)
}

func TestSearchCompanies_FiltersExcludedDomains(t *testing.T) {
	st := newTestStore(t)
	searcher := &fakeSearcher{results: []model.SearchResult{
		{Name: "Acme", URL: "https://acme.com", Domain: "acme.com"},
		{Name: "Blocked", URL: "https://blocked.com", Domain: "blocked.com"},
	}}
	exec := NewExecutor(st, searcher, &fakeCrawler{}, nil, "", "job-1", "pool-1", "+1",
		model.ICPConfig{ExcludedDomains: []string{"www.blocked.com"}})

	outcome := exec.Execute(context.Background(), SearchCompaniesArgs{Query: "anvil makers"})
	require.False(t, outcome.IsError)
	payload := outcome.Payload.(map[string]any)
	results := payload["results"].([]model.SearchResult)
	require.Len(t, results, 1)
	assert.Equal(t, "acme.com", results[0].Domain)
}

func TestVisitWebsite_FailedCrawlIsErrorResult(t *testing.T) {
	st := newTestStore(t)
	crawler := &fakeCrawler{result: &model.CrawlResult{RootURL: "https://down.com", Error: "homepage unreachable"}}
	exec := NewExecutor(st, &fakeSearcher{}, crawler, nil, "", "job-1", "pool-1", "+1", model.ICPConfig{})

	outcome := exec.Execute(context.Background(), VisitWebsiteArgs{URL: "https://down.com"})
	assert.True(t, outcome.IsError)
}

func TestRefineSearchStrategy(t *testing.T) {
	st := newTestStore(t)
	exec := newTestExecutor(t, st, model.ICPConfig{})

	outcome := exec.Execute(context.Background(), RefineSearchStrategyArgs{
		CurrentResults: 3, TargetResults: 10, Reasoning: "broadening to adjacent regions",
	})
	payload := outcome.Payload.(map[string]any)
	assert.Equal(t, true, payload["should_continue"])
	assert.Contains(t, outcome.LogMsg, "broadening")

	outcome = exec.Execute(context.Background(), RefineSearchStrategyArgs{
		CurrentResults: 10, TargetResults: 10, Reasoning: "done",
	})
	payload = outcome.Payload.(map[string]any)
	assert.Equal(t, false, payload["should_continue"])
}

func TestQualityScore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		contacts    int
		emails      int
		tech        []string
		description string
		want        int
	}{
		{"minimum", 1, 0, nil, "", 60},
		{"contact bonus caps at 30", 5, 0, nil, "", 80},
		{"everything caps at 95", 5, 3, []string{"x"}, string(make([]byte, 60)), 95},
		{"two emails", 1, 2, nil, "", 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := qualityScore(tt.contacts, tt.emails, tt.tech, tt.description)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestParseToolCall(t *testing.T) {
	t.Parallel()
	req, err := ParseToolCall(ToolSearchCompanies, []byte(`{"query":"anvils","count":5}`))
	require.NoError(t, err)
	args, ok := req.(SearchCompaniesArgs)
	require.True(t, ok)
	assert.Equal(t, "anvils", args.Query)
	assert.Equal(t, 5, args.Count)

	_, err = ParseToolCall("no_such_tool", []byte(`{}`))
	assert.Error(t, err)

	_, err = ParseToolCall(ToolSaveCompany, []byte(`{"contacts": "not-an-array"}`))
	assert.Error(t, err)

	req, err = ParseToolCall(ToolVisitWebsite, nil)
	require.NoError(t, err)
	assert.IsType(t, VisitWebsiteArgs{}, req)
}
