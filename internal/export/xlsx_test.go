package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

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

func TestPoolToXLSX(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateLeadCandidate(ctx, model.LeadCandidate{
		ID: "cand-1", PoolID: "pool-1", Domain: "acme.com",
		DedupeKey: "company:acme.com", CompanyName: "Acme Inc",
		TechStack: []string{"WordPress", "Stripe"},
		Score:     80, Status: model.CandidateStatusNew,
	}))
	require.NoError(t, st.CreateLeadCandidate(ctx, model.LeadCandidate{
		ID: "cand-2", PoolID: "pool-1", Domain: "lowscore.com",
		DedupeKey: "company:lowscore.com", CompanyName: "Low Score LLC",
		Score:     55, Status: model.CandidateStatusNew,
	}))
	require.NoError(t, st.CreateContactCandidate(ctx, model.ContactCandidate{
		ID: "contact-1", CandidateID: "cand-1", FullName: "Jane Doe",
		Email: "jane@acme.com", Confidence: 55, Status: model.CandidateStatusNew,
	}))

	path := filepath.Join(t.TempDir(), "pool.xlsx")
	totals, err := PoolToXLSX(ctx, st, Options{PoolID: "pool-1", MinScore: 60}, path)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Companies, "low-score candidate filtered out")
	assert.Equal(t, 1, totals.Contacts)

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 2)

	companies := file.Sheets[0]
	require.Len(t, companies.Rows, 2) // header + one company
	assert.Equal(t, "Domain", companies.Rows[0].Cells[0].Value)
	assert.Equal(t, "acme.com", companies.Rows[1].Cells[0].Value)
	assert.Equal(t, "WordPress, Stripe", companies.Rows[1].Cells[4].Value)

	contacts := file.Sheets[1]
	require.Len(t, contacts.Rows, 2)
	assert.Equal(t, "Jane Doe", contacts.Rows[1].Cells[1].Value)
	assert.Equal(t, "jane@acme.com", contacts.Rows[1].Cells[3].Value)
}

func TestPoolToXLSX_EmptyPool(t *testing.T) {
	st := newTestStore(t)
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	totals, err := PoolToXLSX(context.Background(), st, Options{PoolID: "nope"}, path)
	require.NoError(t, err)
	assert.Zero(t, totals.Companies)
	assert.Zero(t, totals.Contacts)
}
