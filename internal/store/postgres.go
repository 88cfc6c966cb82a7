package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies
// it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot paths: job progress flushes and candidate inserts.
var preparedStatements = map[string]string{
	"get_job":            `SELECT id, pool_id, user_id, status, logs, counters, version, created_at, updated_at FROM jobs WHERE id = $1`,
	"update_job_status":  `UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`,
	"append_progress":    `UPDATE jobs SET logs = logs || $1::jsonb, counters = $2, version = version + 1, updated_at = $3 WHERE id = $4 AND version = $5`,
	"insert_candidate":   `INSERT INTO lead_candidates (id, pool_id, domain, dedupe_key, company_name, description, industry, tech_stack, homepage_url, score, status, provenance, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
	"insert_contact":     `INSERT INTO contact_candidates (id, candidate_id, full_name, title, email, phone, linkedin_url, dedupe_key, confidence, status, provenance, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	pool_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'RUNNING',
	logs       JSONB NOT NULL DEFAULT '[]'::jsonb,
	counters   JSONB NOT NULL DEFAULT '{}'::jsonb,
	version    BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS global_companies (
	dedupe_key   TEXT PRIMARY KEY,
	domain       TEXT NOT NULL UNIQUE,
	company_name TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	tech_stack   JSONB NOT NULL DEFAULT '[]'::jsonb,
	status       TEXT NOT NULL DEFAULT 'NEW',
	provenance   JSONB NOT NULL DEFAULT '{}'::jsonb,
	first_seen   TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS lead_candidates (
	id           TEXT PRIMARY KEY,
	pool_id      TEXT NOT NULL,
	domain       TEXT NOT NULL,
	dedupe_key   TEXT NOT NULL,
	company_name TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	tech_stack   JSONB NOT NULL DEFAULT '[]'::jsonb,
	homepage_url TEXT NOT NULL DEFAULT '',
	score        INT NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'NEW',
	provenance   JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_lead_candidates_pool ON lead_candidates (pool_id);
CREATE INDEX IF NOT EXISTS idx_lead_candidates_key ON lead_candidates (dedupe_key);

CREATE TABLE IF NOT EXISTS contact_candidates (
	id           TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL REFERENCES lead_candidates(id),
	full_name    TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	linkedin_url TEXT NOT NULL DEFAULT '',
	dedupe_key   TEXT NOT NULL DEFAULT '',
	confidence   INT NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'NEW',
	provenance   JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_contact_candidates_candidate ON contact_candidates (candidate_id);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job model.Job) error {
	logs, err := json.Marshal(job.Logs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal logs")
	}
	counters, err := json.Marshal(job.Counters)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counters")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, pool_id, user_id, status, logs, counters, version, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7)`,
		job.ID, job.PoolID, job.UserID, string(job.Status), logs, counters, now,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: create job")
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var (
		job      model.Job
		status   string
		logs     []byte
		counters []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, pool_id, user_id, status, logs, counters, version, created_at, updated_at FROM jobs WHERE id = $1`,
		jobID,
	).Scan(&job.ID, &job.PoolID, &job.UserID, &status, &logs, &counters, &job.Version, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get job")
	}
	job.Status = model.JobStatus(status)
	if err := json.Unmarshal(logs, &job.Logs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal logs")
	}
	if err := json.Unmarshal(counters, &job.Counters); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal counters")
	}
	return &job, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update job status")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
	}
	return nil
}

// AppendJobProgress appends log entries and replaces counters under an
// optimistic version check. Zero rows affected means another writer won;
// the caller re-reads and retries per the backoff policy.
func (s *PostgresStore) AppendJobProgress(ctx context.Context, jobID string, expectedVersion int64, entries []model.LogEntry, counters model.Counters) error {
	logs, err := json.Marshal(entries)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal log entries")
	}
	ctrs, err := json.Marshal(counters)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counters")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET logs = logs || $1::jsonb, counters = $2, version = version + 1, updated_at = $3 WHERE id = $4 AND version = $5`,
		logs, ctrs, time.Now().UTC(), jobID, expectedVersion,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: append job progress")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrConflict, "postgres: job %s version %d", jobID, expectedVersion)
	}
	return nil
}

func (s *PostgresStore) UpsertGlobalCompany(ctx context.Context, gc model.GlobalCompany) error {
	tech, err := json.Marshal(emptyIfNil(gc.TechStack))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tech stack")
	}
	prov, err := json.Marshal(gc.Provenance)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal provenance")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO global_companies (dedupe_key, domain, company_name, description, industry, tech_stack, status, provenance, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (dedupe_key) DO UPDATE SET
			company_name = CASE WHEN EXCLUDED.company_name <> '' THEN EXCLUDED.company_name ELSE global_companies.company_name END,
			description  = CASE WHEN EXCLUDED.description  <> '' THEN EXCLUDED.description  ELSE global_companies.description  END,
			industry     = CASE WHEN EXCLUDED.industry     <> '' THEN EXCLUDED.industry     ELSE global_companies.industry     END,
			last_seen    = EXCLUDED.last_seen`,
		gc.DedupeKey, gc.Domain, gc.CompanyName, gc.Description, gc.Industry, tech, gc.Status, prov, now,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert global company")
	}
	return nil
}

func (s *PostgresStore) GetGlobalCompany(ctx context.Context, dedupeKey string) (*model.GlobalCompany, error) {
	var (
		gc   model.GlobalCompany
		tech []byte
		prov []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT dedupe_key, domain, company_name, description, industry, tech_stack, status, provenance, first_seen, last_seen FROM global_companies WHERE dedupe_key = $1`,
		dedupeKey,
	).Scan(&gc.DedupeKey, &gc.Domain, &gc.CompanyName, &gc.Description, &gc.Industry, &tech, &gc.Status, &prov, &gc.FirstSeen, &gc.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: company %s", dedupeKey)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get global company")
	}
	if err := json.Unmarshal(tech, &gc.TechStack); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal tech stack")
	}
	if err := json.Unmarshal(prov, &gc.Provenance); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal provenance")
	}
	return &gc, nil
}

func (s *PostgresStore) CreateLeadCandidate(ctx context.Context, lc model.LeadCandidate) error {
	tech, err := json.Marshal(emptyIfNil(lc.TechStack))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tech stack")
	}
	prov, err := json.Marshal(lc.Provenance)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal provenance")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO lead_candidates (id, pool_id, domain, dedupe_key, company_name, description, industry, tech_stack, homepage_url, score, status, provenance, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		lc.ID, lc.PoolID, lc.Domain, lc.DedupeKey, lc.CompanyName, lc.Description, lc.Industry, tech, lc.HomepageURL, lc.Score, lc.Status, prov, lc.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: create lead candidate")
	}
	return nil
}

func (s *PostgresStore) ListLeadCandidates(ctx context.Context, filter CandidateFilter) ([]model.LeadCandidate, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	status := filter.Status
	if status == "" {
		status = "%"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, pool_id, domain, dedupe_key, company_name, description, industry, tech_stack, homepage_url, score, status, provenance, created_at FROM lead_candidates WHERE pool_id = $1 AND status LIKE $2 ORDER BY created_at LIMIT $3`,
		filter.PoolID, status, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list lead candidates")
	}
	defer rows.Close()

	var out []model.LeadCandidate
	for rows.Next() {
		var (
			lc   model.LeadCandidate
			tech []byte
			prov []byte
		)
		if err := rows.Scan(&lc.ID, &lc.PoolID, &lc.Domain, &lc.DedupeKey, &lc.CompanyName, &lc.Description, &lc.Industry, &tech, &lc.HomepageURL, &lc.Score, &lc.Status, &prov, &lc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead candidate")
		}
		if err := json.Unmarshal(tech, &lc.TechStack); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal tech stack")
		}
		if err := json.Unmarshal(prov, &lc.Provenance); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal provenance")
		}
		out = append(out, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate lead candidates")
	}
	return out, nil
}

func (s *PostgresStore) CreateContactCandidate(ctx context.Context, cc model.ContactCandidate) error {
	prov, err := json.Marshal(cc.Provenance)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal provenance")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO contact_candidates (id, candidate_id, full_name, title, email, phone, linkedin_url, dedupe_key, confidence, status, provenance, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		cc.ID, cc.CandidateID, cc.FullName, cc.Title, cc.Email, cc.Phone, cc.LinkedInURL, cc.DedupeKey, cc.Confidence, cc.Status, prov, cc.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: create contact candidate")
	}
	return nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, candidateID string) ([]model.ContactCandidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, full_name, title, email, phone, linkedin_url, dedupe_key, confidence, status, provenance, created_at FROM contact_candidates WHERE candidate_id = $1 ORDER BY created_at`,
		candidateID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()
	return scanContacts(rows)
}

func (s *PostgresStore) FindContactByDedupeKey(ctx context.Context, candidateID, dedupeKey string) (*model.ContactCandidate, error) {
	if dedupeKey == "" {
		return nil, eris.Wrap(ErrNotFound, "postgres: empty dedupe key")
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_id, full_name, title, email, phone, linkedin_url, dedupe_key, confidence, status, provenance, created_at FROM contact_candidates WHERE candidate_id = $1 AND dedupe_key = $2 LIMIT 1`,
		candidateID, dedupeKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find contact")
	}
	defer rows.Close()
	contacts, err := scanContacts(rows)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "postgres: contact %s", dedupeKey)
	}
	return &contacts[0], nil
}

func (s *PostgresStore) UpdateContactEnrichment(ctx context.Context, contactID, title, linkedinURL string, confidence int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contact_candidates SET
			title        = CASE WHEN $1 <> '' THEN $1 ELSE title END,
			linkedin_url = CASE WHEN $2 <> '' THEN $2 ELSE linkedin_url END,
			confidence   = GREATEST(confidence, $3)
		WHERE id = $4`,
		title, linkedinURL, confidence, contactID,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: update contact enrichment")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: contact %s", contactID)
	}
	return nil
}

func scanContacts(rows pgx.Rows) ([]model.ContactCandidate, error) {
	var out []model.ContactCandidate
	for rows.Next() {
		var (
			cc   model.ContactCandidate
			prov []byte
		)
		if err := rows.Scan(&cc.ID, &cc.CandidateID, &cc.FullName, &cc.Title, &cc.Email, &cc.Phone, &cc.LinkedInURL, &cc.DedupeKey, &cc.Confidence, &cc.Status, &prov, &cc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		if err := json.Unmarshal(prov, &cc.Provenance); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal provenance")
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate contacts")
	}
	return out, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
