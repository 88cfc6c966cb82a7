// Package export writes a pool's qualified candidates to an XLSX
// workbook: one sheet of companies, one of contacts.
package export

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var companyHeader = []string{
	"Domain", "Company Name", "Industry", "Description", "Tech Stack",
	"Homepage", "Score", "Status", "Source", "Job ID",
}

var contactHeader = []string{
	"Company Domain", "Full Name", "Title", "Email", "Phone",
	"LinkedIn", "Confidence", "Status", "Source",
}

// Options bounds one export.
type Options struct {
	PoolID   string
	Status   string // optional candidate-status filter
	MaxRows  int
	MinScore int
}

// Totals reports what was written.
type Totals struct {
	Companies int
	Contacts  int
}

// PoolToXLSX writes the pool's candidates and their contacts to path.
func PoolToXLSX(ctx context.Context, st store.Store, opts Options, path string) (Totals, error) {
	var totals Totals
	candidates, err := st.ListLeadCandidates(ctx, store.CandidateFilter{
		PoolID: opts.PoolID,
		Status: opts.Status,
		Limit:  opts.MaxRows,
	})
	if err != nil {
		return totals, eris.Wrap(err, "export: list candidates")
	}

	file := xlsx.NewFile()
	companySheet, err := file.AddSheet("Companies")
	if err != nil {
		return totals, eris.Wrap(err, "export: add companies sheet")
	}
	contactSheet, err := file.AddSheet("Contacts")
	if err != nil {
		return totals, eris.Wrap(err, "export: add contacts sheet")
	}

	writeRow(companySheet, companyHeader)
	writeRow(contactSheet, contactHeader)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return totals, eris.Wrap(ctx.Err(), "export: cancelled")
		}
		if candidate.Score < opts.MinScore {
			continue
		}
		writeRow(companySheet, companyRow(candidate))
		totals.Companies++

		contacts, err := st.ListContacts(ctx, candidate.ID)
		if err != nil {
			return totals, eris.Wrapf(err, "export: list contacts for %s", candidate.Domain)
		}
		for _, contact := range contacts {
			writeRow(contactSheet, contactRow(candidate, contact))
			totals.Contacts++
		}
	}

	if err := file.Save(path); err != nil {
		return totals, eris.Wrapf(err, "export: save %s", path)
	}
	zap.L().Info("export: workbook written",
		zap.String("path", path),
		zap.String("pool_id", opts.PoolID),
		zap.Int("companies", totals.Companies),
		zap.Int("contacts", totals.Contacts),
	)
	return totals, nil
}

func writeRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().Value = v
	}
}

func companyRow(c model.LeadCandidate) []string {
	return []string{
		c.Domain, c.CompanyName, c.Industry, c.Description,
		strings.Join(c.TechStack, ", "), c.HomepageURL,
		strconv.Itoa(c.Score), c.Status,
		c.Provenance.Source, c.Provenance.JobID,
	}
}

func contactRow(c model.LeadCandidate, contact model.ContactCandidate) []string {
	return []string{
		c.Domain, contact.FullName, contact.Title, contact.Email,
		contact.Phone, contact.LinkedInURL, strconv.Itoa(contact.Confidence),
		contact.Status, contact.Provenance.Source,
	}
}
