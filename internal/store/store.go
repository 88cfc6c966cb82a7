// Package store persists jobs, the cross-job company index, and per-job
// candidate pools. Two drivers share one interface: Postgres for shared
// deployments, SQLite for local zero-infra runs.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ErrConflict is returned by AppendJobProgress when the job row's version
// no longer matches the version the caller read. Writers must re-read and
// retry; they must never assume a write succeeds on the first attempt.
var ErrConflict = errors.New("store: write conflict")

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// IsConflict reports whether err is an optimistic-concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// CandidateFilter narrows ListLeadCandidates.
type CandidateFilter struct {
	PoolID string
	Status string
	Limit  int
}

// Store is the persistence interface for the lead-generation engine.
type Store interface {
	// Jobs. AppendJobProgress replaces the job's counters and appends log
	// entries atomically, guarded by the version the caller read.
	CreateJob(ctx context.Context, job model.Job) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	AppendJobProgress(ctx context.Context, jobID string, expectedVersion int64, entries []model.LogEntry, counters model.Counters) error

	// Cross-job company index. Upsert is keyed on dedupe_key: one row per
	// normalized domain, ever; repeat discoveries refresh last_seen.
	UpsertGlobalCompany(ctx context.Context, gc model.GlobalCompany) error
	GetGlobalCompany(ctx context.Context, dedupeKey string) (*model.GlobalCompany, error)

	// Pool-scoped candidates.
	CreateLeadCandidate(ctx context.Context, lc model.LeadCandidate) error
	ListLeadCandidates(ctx context.Context, filter CandidateFilter) ([]model.LeadCandidate, error)

	// Contacts.
	CreateContactCandidate(ctx context.Context, cc model.ContactCandidate) error
	ListContacts(ctx context.Context, candidateID string) ([]model.ContactCandidate, error)
	FindContactByDedupeKey(ctx context.Context, candidateID, dedupeKey string) (*model.ContactCandidate, error)
	UpdateContactEnrichment(ctx context.Context, contactID, title, linkedinURL string, confidence int) error

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
