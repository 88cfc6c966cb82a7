package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/normalize"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

// Searcher is the web-search dependency of the executor.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

// SiteCrawler is the crawl dependency of the executor.
type SiteCrawler interface {
	CrawlSite(ctx context.Context, rootURL string) *model.CrawlResult
}

// SaveResult is the structured outcome of save_company.
type SaveResult struct {
	Success         bool   `json:"success"`
	CandidateID     string `json:"candidate_id,omitempty"`
	ContactsCreated int    `json:"contacts_created"`
	Error           string `json:"error,omitempty"`
}

// ToolOutcome carries one executed tool call's result back to the loop.
// Payload is JSON-serialized into the tool_result block. Save is set only
// for save_company so the orchestrator can bump its counters, and LogMsg
// is an optional entry for the job log.
type ToolOutcome struct {
	Payload any
	IsError bool
	Save    *SaveResult
	LogMsg  string
}

// Executor maps tool requests onto the search, crawl and persistence
// primitives. One executor serves one job.
type Executor struct {
	store   store.Store
	search  Searcher
	crawler SiteCrawler
	llm     anthropic.Client
	model   string

	jobID       string
	poolID      string
	icp         model.ICPConfig
	countryCode string
}

// NewExecutor wires an executor for one job.
func NewExecutor(st store.Store, search Searcher, crawler SiteCrawler, llm anthropic.Client, llmModel, jobID, poolID, countryCode string, icp model.ICPConfig) *Executor {
	if countryCode == "" {
		countryCode = "+1"
	}
	return &Executor{
		store:       st,
		search:      search,
		crawler:     crawler,
		llm:         llm,
		model:       llmModel,
		jobID:       jobID,
		poolID:      poolID,
		icp:         icp,
		countryCode: countryCode,
	}
}

// Execute runs one tool request. Failures surface inside the outcome as
// IsError plus an error payload, never as a Go error: the model gets the
// failure as a tool result and decides what to do next.
func (e *Executor) Execute(ctx context.Context, req ToolRequest) ToolOutcome {
	switch args := req.(type) {
	case SearchCompaniesArgs:
		return e.searchCompanies(ctx, args)
	case VisitWebsiteArgs:
		return e.visitWebsite(ctx, args)
	case AnalyzeCompanyFitArgs:
		return ToolOutcome{Payload: map[string]any{
			"acknowledged": true,
			"domain":       args.Domain,
		}}
	case SaveCompanyArgs:
		return e.saveCompany(ctx, args)
	case RefineSearchStrategyArgs:
		return ToolOutcome{
			Payload: map[string]any{
				"should_continue": args.CurrentResults < args.TargetResults,
			},
			LogMsg: "strategy: " + args.Reasoning,
		}
	default:
		return errorOutcome(eris.Errorf("agent: unhandled tool request %T", req))
	}
}

func (e *Executor) searchCompanies(ctx context.Context, args SearchCompaniesArgs) ToolOutcome {
	results, err := e.search.Search(ctx, args.Query, args.Count)
	if err != nil {
		return errorOutcome(err)
	}

	excluded := make(map[string]bool, len(e.icp.ExcludedDomains))
	for _, d := range e.icp.ExcludedDomains {
		excluded[normalize.Domain(d)] = true
	}
	filtered := results[:0]
	for _, r := range results {
		if !excluded[r.Domain] {
			filtered = append(filtered, r)
		}
	}
	return ToolOutcome{Payload: map[string]any{"results": filtered}}
}

func (e *Executor) visitWebsite(ctx context.Context, args VisitWebsiteArgs) ToolOutcome {
	result := e.crawler.CrawlSite(ctx, args.URL)
	return ToolOutcome{Payload: result, IsError: result.Failed()}
}

// saveCompany persists a qualified company plus its usable contacts.
// Precondition: at least one contact must carry an email or a phone that
// survives normalization. Contacts lacking both are skipped, not stored.
func (e *Executor) saveCompany(ctx context.Context, args SaveCompanyArgs) ToolOutcome {
	domain := normalize.Domain(args.Domain)
	if domain == "" {
		return saveFailure(fmt.Sprintf("invalid domain %q", args.Domain))
	}

	usable := 0
	for _, c := range args.Contacts {
		if normalize.Email(c.Email) != "" || normalize.Phone(c.Phone, e.countryCode) != "" {
			usable++
		}
	}
	if len(args.Contacts) == 0 || usable == 0 {
		return saveFailure("no contact with a usable email or phone; gather contact info before saving")
	}

	args = e.fillCompanyGaps(ctx, domain, args)

	now := time.Now().UTC()
	dedupeKey := normalize.CompanyDedupeKey(domain)
	err := e.store.UpsertGlobalCompany(ctx, model.GlobalCompany{
		DedupeKey:   dedupeKey,
		Domain:      domain,
		CompanyName: args.CompanyName,
		Description: args.Description,
		Industry:    args.Industry,
		TechStack:   args.TechStack,
		Status:      model.CandidateStatusNew,
		Provenance:  model.Provenance{Source: normalize.SourceAgent, JobID: e.jobID},
		FirstSeen:   now,
		LastSeen:    now,
	})
	if err != nil {
		return errorOutcome(eris.Wrap(err, "agent: upsert global company"))
	}

	emailCount := 0
	for _, c := range args.Contacts {
		if normalize.Email(c.Email) != "" {
			emailCount++
		}
	}

	candidate := model.LeadCandidate{
		ID:          uuid.NewString(),
		PoolID:      e.poolID,
		Domain:      domain,
		DedupeKey:   dedupeKey,
		CompanyName: args.CompanyName,
		Description: args.Description,
		Industry:    args.Industry,
		TechStack:   args.TechStack,
		HomepageURL: "https://" + domain,
		Score:       qualityScore(usable, emailCount, args.TechStack, args.Description),
		Status:      model.CandidateStatusNew,
		Provenance:  model.Provenance{Source: normalize.SourceAgent, JobID: e.jobID},
		CreatedAt:   now,
	}
	if err := e.store.CreateLeadCandidate(ctx, candidate); err != nil {
		return errorOutcome(eris.Wrap(err, "agent: create lead candidate"))
	}

	created := 0
	maxContacts := e.icp.MaxContactsPerCompany
	for _, c := range args.Contacts {
		if maxContacts > 0 && created >= maxContacts {
			break
		}
		email := normalize.Email(c.Email)
		phone := normalize.Phone(c.Phone, e.countryCode)
		if email == "" && phone == "" {
			continue
		}
		name := normalize.SafeContactDisplayName(c.FullName, email, args.CompanyName, domain)
		linkedin := normalize.LinkedInURL(c.LinkedInURL)
		title := strings.TrimSpace(c.Title)

		contact := model.ContactCandidate{
			ID:          uuid.NewString(),
			CandidateID: candidate.ID,
			FullName:    name,
			Title:       title,
			Email:       email,
			Phone:       phone,
			LinkedInURL: linkedin,
			DedupeKey:   normalize.PersonDedupeKey(email, name, domain, title),
			Confidence:  normalize.PersonConfidence(email, phone, linkedin, title, name, normalize.SourceAgent),
			Status:      model.CandidateStatusNew,
			Provenance:  model.Provenance{Source: normalize.SourceAgent, JobID: e.jobID},
			CreatedAt:   now,
		}
		if err := e.store.CreateContactCandidate(ctx, contact); err != nil {
			zap.L().Warn("agent: contact create failed",
				zap.String("candidate_id", candidate.ID),
				zap.Error(err),
			)
			continue
		}
		created++
	}

	result := &SaveResult{Success: true, CandidateID: candidate.ID, ContactsCreated: created}
	return ToolOutcome{
		Payload: result,
		Save:    result,
		LogMsg:  fmt.Sprintf("saved %s (%d contacts, score %d)", domain, created, candidate.Score),
	}
}

// fillCompanyGaps completes missing name/description/industry, asking the
// model when available and falling back to deterministic values when not.
func (e *Executor) fillCompanyGaps(ctx context.Context, domain string, args SaveCompanyArgs) SaveCompanyArgs {
	if args.CompanyName != "" && args.Description != "" && args.Industry != "" {
		return args
	}

	if e.llm != nil {
		if enriched, ok := e.enrichViaModel(ctx, domain, args); ok {
			args = enriched
		}
	}

	if args.CompanyName == "" {
		args.CompanyName = normalize.Name(strings.SplitN(domain, ".", 2)[0])
	}
	if args.Description == "" {
		args.Description = fmt.Sprintf("Company operating at %s.", domain)
	}
	if args.Industry == "" && len(e.icp.Industries) > 0 {
		args.Industry = e.icp.Industries[0]
	}
	return args
}

func (e *Executor) enrichViaModel(ctx context.Context, domain string, args SaveCompanyArgs) (SaveCompanyArgs, bool) {
	signals, _ := json.Marshal(map[string]any{
		"domain":       domain,
		"company_name": args.CompanyName,
		"description":  args.Description,
		"industry":     args.Industry,
		"tech_stack":   args.TechStack,
		"target_icp":   e.icp,
	})
	prompt := "Fill in the missing company fields from these signals. " +
		"Respond with JSON only: {\"company_name\": ..., \"description\": ..., \"industry\": ...}.\n" + string(signals)

	resp, err := e.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: 512,
		Messages:  []anthropic.Message{anthropic.TextMessage("user", prompt)},
	})
	if err != nil {
		zap.L().Warn("agent: enrichment call failed, using fallback",
			zap.String("domain", domain),
			zap.Error(err),
		)
		return args, false
	}
	resp.Usage.LogCost(e.model, "enrichment")

	var filled struct {
		CompanyName string `json:"company_name"`
		Description string `json:"description"`
		Industry    string `json:"industry"`
	}
	if err := json.Unmarshal([]byte(extractJSON(resp.Text())), &filled); err != nil {
		return args, false
	}
	if args.CompanyName == "" {
		args.CompanyName = strings.TrimSpace(filled.CompanyName)
	}
	if args.Description == "" {
		args.Description = strings.TrimSpace(filled.Description)
	}
	if args.Industry == "" {
		args.Industry = strings.TrimSpace(filled.Industry)
	}
	return args, true
}

// extractJSON pulls the outermost JSON object out of a model reply that
// may wrap it in prose or a code fence.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}

// qualityScore rates a saved company: base 50, +10 per usable contact
// capped at +30, +10 when two or more emails are present, +5 for a tech
// stack, +5 for a substantive description, capped at 95.
func qualityScore(usableContacts, emailCount int, techStack []string, description string) int {
	score := 50
	contactBonus := usableContacts * 10
	if contactBonus > 30 {
		contactBonus = 30
	}
	score += contactBonus
	if emailCount >= 2 {
		score += 10
	}
	if len(techStack) > 0 {
		score += 5
	}
	if len(description) > 50 {
		score += 5
	}
	if score > 95 {
		score = 95
	}
	return score
}

func saveFailure(reason string) ToolOutcome {
	result := &SaveResult{Success: false, Error: reason}
	return ToolOutcome{Payload: result, IsError: true, Save: result}
}

func errorOutcome(err error) ToolOutcome {
	return ToolOutcome{
		Payload: map[string]any{"error": eris.ToString(err, false)},
		IsError: true,
	}
}
