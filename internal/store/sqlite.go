package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. JSON columns are
// stored as TEXT; the optimistic version check works the same way as the
// Postgres driver's.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	pool_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'RUNNING',
	logs       TEXT NOT NULL DEFAULT '[]',
	counters   TEXT NOT NULL DEFAULT '{}',
	version    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS global_companies (
	dedupe_key   TEXT PRIMARY KEY,
	domain       TEXT NOT NULL UNIQUE,
	company_name TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	tech_stack   TEXT NOT NULL DEFAULT '[]',
	status       TEXT NOT NULL DEFAULT 'NEW',
	provenance   TEXT NOT NULL DEFAULT '{}',
	first_seen   DATETIME NOT NULL,
	last_seen    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS lead_candidates (
	id           TEXT PRIMARY KEY,
	pool_id      TEXT NOT NULL,
	domain       TEXT NOT NULL,
	dedupe_key   TEXT NOT NULL,
	company_name TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	tech_stack   TEXT NOT NULL DEFAULT '[]',
	homepage_url TEXT NOT NULL DEFAULT '',
	score        INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'NEW',
	provenance   TEXT NOT NULL DEFAULT '{}',
	created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lead_candidates_pool ON lead_candidates (pool_id);

CREATE TABLE IF NOT EXISTS contact_candidates (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL REFERENCES lead_candidates(id),
	full_name    TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	linkedin_url TEXT NOT NULL DEFAULT '',
	dedupe_key   TEXT NOT NULL DEFAULT '',
	confidence   INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'NEW',
	provenance   TEXT NOT NULL DEFAULT '{}',
	created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contact_candidates_candidate ON contact_candidates (candidate_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job model.Job) error {
	logs, err := json.Marshal(job.Logs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal logs")
	}
	counters, err := json.Marshal(job.Counters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counters")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, pool_id, user_id, status, logs, counters, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		job.ID, job.PoolID, job.UserID, string(job.Status), string(logs), string(counters), now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create job")
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var (
		job      model.Job
		status   string
		logs     string
		counters string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, pool_id, user_id, status, logs, counters, version, created_at, updated_at FROM jobs WHERE id = ?`,
		jobID,
	).Scan(&job.ID, &job.PoolID, &job.UserID, &status, &logs, &counters, &job.Version, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get job")
	}
	job.Status = model.JobStatus(status)
	if err := json.Unmarshal([]byte(logs), &job.Logs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal logs")
	}
	if err := json.Unmarshal([]byte(counters), &job.Counters); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal counters")
	}
	return &job, nil
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: update job status")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: job %s", jobID)
	}
	return nil
}

func (s *SQLiteStore) AppendJobProgress(ctx context.Context, jobID string, expectedVersion int64, entries []model.LogEntry, counters model.Counters) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	var current string
	err = tx.QueryRowContext(ctx, `SELECT logs FROM jobs WHERE id = ? AND version = ?`, jobID, expectedVersion).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrConflict, "sqlite: job %s version %d", jobID, expectedVersion)
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: read logs")
	}

	var existing []model.LogEntry
	if err := json.Unmarshal([]byte(current), &existing); err != nil {
		return eris.Wrap(err, "sqlite: unmarshal logs")
	}
	merged, err := json.Marshal(append(existing, entries...))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal logs")
	}
	ctrs, err := json.Marshal(counters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counters")
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE jobs SET logs = ?, counters = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		string(merged), string(ctrs), time.Now().UTC(), jobID, expectedVersion,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: append job progress")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return eris.Wrapf(ErrConflict, "sqlite: job %s version %d", jobID, expectedVersion)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) UpsertGlobalCompany(ctx context.Context, gc model.GlobalCompany) error {
	tech, err := json.Marshal(emptyIfNil(gc.TechStack))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tech stack")
	}
	prov, err := json.Marshal(gc.Provenance)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal provenance")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO global_companies (dedupe_key, domain, company_name, description, industry, tech_stack, status, provenance, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (dedupe_key) DO UPDATE SET
			company_name = CASE WHEN excluded.company_name <> '' THEN excluded.company_name ELSE company_name END,
			description  = CASE WHEN excluded.description  <> '' THEN excluded.description  ELSE description  END,
			industry     = CASE WHEN excluded.industry     <> '' THEN excluded.industry     ELSE industry     END,
			last_seen    = excluded.last_seen`,
		gc.DedupeKey, gc.Domain, gc.CompanyName, gc.Description, gc.Industry, string(tech), gc.Status, string(prov), now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert global company")
	}
	return nil
}

func (s *SQLiteStore) GetGlobalCompany(ctx context.Context, dedupeKey string) (*model.GlobalCompany, error) {
	var (
		gc   model.GlobalCompany
		tech string
		prov string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT dedupe_key, domain, company_name, description, industry, tech_stack, status, provenance, first_seen, last_seen FROM global_companies WHERE dedupe_key = ?`,
		dedupeKey,
	).Scan(&gc.DedupeKey, &gc.Domain, &gc.CompanyName, &gc.Description, &gc.Industry, &tech, &gc.Status, &prov, &gc.FirstSeen, &gc.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: company %s", dedupeKey)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get global company")
	}
	if err := json.Unmarshal([]byte(tech), &gc.TechStack); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal tech stack")
	}
	if err := json.Unmarshal([]byte(prov), &gc.Provenance); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal provenance")
	}
	return &gc, nil
}

func (s *SQLiteStore) CreateLeadCandidate(ctx context.Context, lc model.LeadCandidate) error {
	tech, err := json.Marshal(emptyIfNil(lc.TechStack))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tech stack")
	}
	prov, err := json.Marshal(lc.Provenance)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal provenance")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lead_candidates (id, pool_id, domain, dedupe_key, company_name, description, industry, tech_stack, homepage_url, score, status, provenance, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lc.ID, lc.PoolID, lc.Domain, lc.DedupeKey, lc.CompanyName, lc.Description, lc.Industry, string(tech), lc.HomepageURL, lc.Score, lc.Status, string(prov), lc.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create lead candidate")
	}
	return nil
}

func (s *SQLiteStore) ListLeadCandidates(ctx context.Context, filter CandidateFilter) ([]model.LeadCandidate, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	status := filter.Status
	if status == "" {
		status = "%"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pool_id, domain, dedupe_key, company_name, description, industry, tech_stack, homepage_url, score, status, provenance, created_at FROM lead_candidates WHERE pool_id = ? AND status LIKE ? ORDER BY created_at LIMIT ?`,
		filter.PoolID, status, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list lead candidates")
	}
	defer rows.Close()

	var out []model.LeadCandidate
	for rows.Next() {
		var (
			lc   model.LeadCandidate
			tech string
			prov string
		)
		if err := rows.Scan(&lc.ID, &lc.PoolID, &lc.Domain, &lc.DedupeKey, &lc.CompanyName, &lc.Description, &lc.Industry, &tech, &lc.HomepageURL, &lc.Score, &lc.Status, &prov, &lc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead candidate")
		}
		if err := json.Unmarshal([]byte(tech), &lc.TechStack); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal tech stack")
		}
		if err := json.Unmarshal([]byte(prov), &lc.Provenance); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal provenance")
		}
		out = append(out, lc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate lead candidates")
}

func (s *SQLiteStore) CreateContactCandidate(ctx context.Context, cc model.ContactCandidate) error {
	prov, err := json.Marshal(cc.Provenance)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal provenance")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contact_candidates (id, candidate_id, full_name, title, email, phone, linkedin_url, dedupe_key, confidence, status, provenance, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cc.ID, cc.CandidateID, cc.FullName, cc.Title, cc.Email, cc.Phone, cc.LinkedInURL, cc.DedupeKey, cc.Confidence, cc.Status, string(prov), cc.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: create contact candidate")
	}
	return nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, candidateID string) ([]model.ContactCandidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, full_name, title, email, phone, linkedin_url, dedupe_key, confidence, status, provenance, created_at FROM contact_candidates WHERE candidate_id = ? ORDER BY created_at`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()
	return scanSQLiteContacts(rows)
}

func (s *SQLiteStore) FindContactByDedupeKey(ctx context.Context, candidateID, dedupeKey string) (*model.ContactCandidate, error) {
	if dedupeKey == "" {
		return nil, eris.Wrap(ErrNotFound, "sqlite: empty dedupe key")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, full_name, title, email, phone, linkedin_url, dedupe_key, confidence, status, provenance, created_at FROM contact_candidates WHERE candidate_id = ? AND dedupe_key = ? LIMIT 1`,
		candidateID, dedupeKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find contact")
	}
	defer rows.Close()
	contacts, err := scanSQLiteContacts(rows)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: contact %s", dedupeKey)
	}
	return &contacts[0], nil
}

func (s *SQLiteStore) UpdateContactEnrichment(ctx context.Context, contactID, title, linkedinURL string, confidence int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE contact_candidates SET
			title        = CASE WHEN ? <> '' THEN ? ELSE title END,
			linkedin_url = CASE WHEN ? <> '' THEN ? ELSE linkedin_url END,
			confidence   = MAX(confidence, ?)
		WHERE id = ?`,
		title, title, linkedinURL, linkedinURL, confidence, contactID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: update contact enrichment")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: contact %s", contactID)
	}
	return nil
}

func scanSQLiteContacts(rows *sql.Rows) ([]model.ContactCandidate, error) {
	var out []model.ContactCandidate
	for rows.Next() {
		var (
			cc   model.ContactCandidate
			prov string
		)
		if err := rows.Scan(&cc.ID, &cc.CandidateID, &cc.FullName, &cc.Title, &cc.Email, &cc.Phone, &cc.LinkedInURL, &cc.DedupeKey, &cc.Confidence, &cc.Status, &prov, &cc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		if err := json.Unmarshal([]byte(prov), &cc.Provenance); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal provenance")
		}
		out = append(out, cc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate contacts")
}
