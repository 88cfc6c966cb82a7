// Package people is the LLM-free enrichment pass: it sweeps the public
// team/about/contact pages of already-discovered companies and appends
// heuristically detected person names as low-confidence contacts.
package people

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/browser"
	"github.com/sells-group/leadgen-cli/internal/crawl"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/normalize"
	"github.com/sells-group/leadgen-cli/internal/store"
)

// PageFetcher loads one page and returns its rendered HTML.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// BrowserFetcher fetches pages through the shared browser manager.
type BrowserFetcher struct {
	Mgr *browser.Manager
}

func (f *BrowserFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	var html string
	err := f.Mgr.WithPage(ctx, url, func(page *rod.Page) error {
		var err error
		html, err = page.HTML()
		if err != nil {
			return eris.Wrapf(err, "people: read html %s", url)
		}
		return nil
	})
	return html, err
}

// Config bounds one enrichment pass.
type Config struct {
	MaxCandidates   int // companies per pass
	PagesPerCompany int // pages visited per company
}

func (c Config) withDefaults() Config {
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 25
	}
	if c.PagesPerCompany <= 0 {
		c.PagesPerCompany = 3
	}
	return c
}

// Totals summarizes one pass.
type Totals struct {
	Companies        int `json:"companies"`
	ContactsCreated  int `json:"contacts_created"`
	ContactsUpdated  int `json:"contacts_updated"`
	PagesVisited     int `json:"pages_visited"`
	PeopleDiscovered int `json:"people_discovered"`
}

// Pass runs the enrichment sweep over one pool. Companies are processed
// one at a time and pages within a company sequentially; site courtesy
// matters more than speed here.
type Pass struct {
	store   store.Store
	fetcher PageFetcher
	cfg     Config
}

// NewPass wires a pass.
func NewPass(st store.Store, fetcher PageFetcher, cfg Config) *Pass {
	return &Pass{store: st, fetcher: fetcher, cfg: cfg.withDefaults()}
}

// Run sweeps the pool's candidates. Per-company failures are logged and
// skipped; only listing the pool can fail the pass outright.
func (p *Pass) Run(ctx context.Context, poolID string) (Totals, error) {
	var totals Totals
	candidates, err := p.store.ListLeadCandidates(ctx, store.CandidateFilter{
		PoolID: poolID,
		Limit:  p.cfg.MaxCandidates,
	})
	if err != nil {
		return totals, eris.Wrap(err, "people: list candidates")
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		totals.Companies++
		p.enrichCompany(ctx, candidate, &totals)
	}

	zap.L().Info("people: pass complete",
		zap.String("pool_id", poolID),
		zap.Int("companies", totals.Companies),
		zap.Int("created", totals.ContactsCreated),
		zap.Int("updated", totals.ContactsUpdated),
	)
	return totals, nil
}

func (p *Pass) enrichCompany(ctx context.Context, candidate model.LeadCandidate, totals *Totals) {
	pages := crawl.RankHighValuePages(candidate.HomepageURL, nil)
	if len(pages) > p.cfg.PagesPerCompany {
		pages = pages[:p.cfg.PagesPerCompany]
	}

	for _, pageURL := range pages {
		html, err := p.fetcher.FetchHTML(ctx, pageURL)
		if err != nil {
			zap.L().Debug("people: page fetch failed",
				zap.String("url", pageURL),
				zap.Error(err),
			)
			continue
		}
		totals.PagesVisited++

		for _, person := range ExtractPeople(html) {
			totals.PeopleDiscovered++
			p.upsertPerson(ctx, candidate, person, totals)
		}
	}
}

// upsertPerson merges one detected person into the candidate's contacts:
// a dedupe-key match updates title/linkedin on the existing row, anything
// else inserts a new low-confidence contact.
func (p *Pass) upsertPerson(ctx context.Context, candidate model.LeadCandidate, person Person, totals *Totals) {
	name := normalize.Name(person.Name)
	if name == "" {
		return
	}
	dedupeKey := normalize.PersonDedupeKey("", name, candidate.Domain, person.Title)
	confidence := normalize.PersonConfidence("", "", person.LinkedInURL, person.Title, name, normalize.SourcePeopleEnrichment)

	if dedupeKey != "" {
		existing, err := p.store.FindContactByDedupeKey(ctx, candidate.ID, dedupeKey)
		if err == nil && existing != nil {
			if err := p.store.UpdateContactEnrichment(ctx, existing.ID, person.Title, person.LinkedInURL, confidence); err != nil {
				zap.L().Warn("people: contact update failed",
					zap.String("contact_id", existing.ID),
					zap.Error(err),
				)
				return
			}
			totals.ContactsUpdated++
			return
		}
		if err != nil && !eris.Is(err, store.ErrNotFound) {
			zap.L().Warn("people: contact lookup failed",
				zap.String("candidate_id", candidate.ID),
				zap.Error(err),
			)
			return
		}
	}

	contact := model.ContactCandidate{
		ID:          uuid.NewString(),
		CandidateID: candidate.ID,
		FullName:    name,
		Title:       person.Title,
		LinkedInURL: person.LinkedInURL,
		DedupeKey:   dedupeKey,
		Confidence:  confidence,
		Status:      model.CandidateStatusNew,
		Provenance:  model.Provenance{Source: normalize.SourcePeopleEnrichment, JobID: candidate.Provenance.JobID},
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.store.CreateContactCandidate(ctx, contact); err != nil {
		zap.L().Warn("people: contact create failed",
			zap.String("candidate_id", candidate.ID),
			zap.Error(err),
		)
		return
	}
	totals.ContactsCreated++
}
