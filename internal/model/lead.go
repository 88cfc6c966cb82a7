package model

import "time"

// JobStatus represents the operator-visible state of a lead-generation job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusPaused    JobStatus = "PAUSED"
	JobStatusStopped   JobStatus = "STOPPED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Terminal reports whether the status ends a run.
func (s JobStatus) Terminal() bool {
	return s == JobStatusStopped || s == JobStatusCompleted || s == JobStatusFailed
}

// LogEntry is one timestamped message in a job's append-only log.
type LogEntry struct {
	TS    time.Time `json:"ts"`
	Level string    `json:"level,omitempty"`
	Msg   string    `json:"msg"`
}

// Counters tracks running totals for a job. Progress is a 0-100 percentage.
type Counters struct {
	CompaniesSaved int `json:"companies_saved"`
	ContactsSaved  int `json:"contacts_saved"`
	Iterations     int `json:"iterations"`
	Progress       int `json:"progress"`
}

// Job is one lead-generation run. Version is the optimistic-concurrency
// token: every write that touches logs/counters must carry the version it
// read, and loses to a concurrent writer on mismatch.
type Job struct {
	ID        string     `json:"id"`
	PoolID    string     `json:"pool_id"`
	UserID    string     `json:"user_id"`
	Status    JobStatus  `json:"status"`
	Logs      []LogEntry `json:"logs"`
	Counters  Counters   `json:"counters"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ICPConfig is the operator-supplied targeting profile for a run.
// Immutable for the duration of the run.
type ICPConfig struct {
	Industries            []string `json:"industries"`
	CompanySizes          []string `json:"company_sizes"`
	Geographies           []string `json:"geographies"`
	TechKeywords          []string `json:"tech_keywords"`
	TargetTitles          []string `json:"target_titles"`
	ExcludedDomains       []string `json:"excluded_domains"`
	Notes                 string   `json:"notes,omitempty"`
	MaxCompanies          int      `json:"max_companies"`
	MaxContactsPerCompany int      `json:"max_contacts_per_company"`
}

// Provenance records which subsystem and job produced a record.
type Provenance struct {
	Source string `json:"source"`
	JobID  string `json:"job_id,omitempty"`
}

// GlobalCompany is the cross-job index row for a discovered company,
// keyed by "company:<normalized domain>". Exactly one row per domain.
type GlobalCompany struct {
	DedupeKey   string     `json:"dedupe_key"`
	Domain      string     `json:"domain"`
	CompanyName string     `json:"company_name"`
	Description string     `json:"description,omitempty"`
	Industry    string     `json:"industry,omitempty"`
	TechStack   []string   `json:"tech_stack,omitempty"`
	Status      string     `json:"status"`
	Provenance  Provenance `json:"provenance"`
	FirstSeen   time.Time  `json:"first_seen"`
	LastSeen    time.Time  `json:"last_seen"`
}

// LeadCandidate is a company's membership in one job's pool.
type LeadCandidate struct {
	ID          string     `json:"id"`
	PoolID      string     `json:"pool_id"`
	Domain      string     `json:"domain"`
	DedupeKey   string     `json:"dedupe_key"`
	CompanyName string     `json:"company_name"`
	Description string     `json:"description,omitempty"`
	Industry    string     `json:"industry,omitempty"`
	TechStack   []string   `json:"tech_stack,omitempty"`
	HomepageURL string     `json:"homepage_url"`
	Score       int        `json:"score"`
	Status      string     `json:"status"`
	Provenance  Provenance `json:"provenance"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CandidateStatusNew is the initial status of every candidate row.
const CandidateStatusNew = "NEW"

// ContactCandidate is a person associated with a LeadCandidate. DedupeKey
// may be empty when no identity signal is available; such contacts are
// stored but cannot be deduplicated.
type ContactCandidate struct {
	ID          string     `json:"id"`
	CandidateID string     `json:"candidate_id"`
	FullName    string     `json:"full_name"`
	Title       string     `json:"title,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	LinkedInURL string     `json:"linkedin_url,omitempty"`
	DedupeKey   string     `json:"dedupe_key,omitempty"`
	Confidence  int        `json:"confidence"`
	Status      string     `json:"status"`
	Provenance  Provenance `json:"provenance"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RunTotals is the result triple returned by a lead-generation run.
type RunTotals struct {
	CompaniesSaved int `json:"companies_saved"`
	ContactsSaved  int `json:"contacts_saved"`
	Iterations     int `json:"iterations"`
}
