// Package agent owns the LLM-driven lead-generation loop: a bounded
// conversation with a planner model that issues tool calls against the
// search, crawl and persistence layers, while an operator may pause,
// resume or stop the run through the job record.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

// TurnFn requests the next model turn. Injectable so the loop's
// termination, pause and correction logic is testable with scripted turns.
type TurnFn func(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error)

// Deps wires the orchestrator's collaborators and knobs. Zero-valued
// knobs get defaults.
type Deps struct {
	Store   store.Store
	LLM     anthropic.Client
	Search  Searcher
	Crawler SiteCrawler

	Model              string
	MaxIterations      int
	MaxTokens          int64
	PausePollInterval  time.Duration
	FlushInterval      time.Duration
	FlushThreshold     int
	DefaultCountryCode string

	// Turn overrides the model call in tests. When nil, LLM.CreateMessage
	// is used with transient-error retry.
	Turn TurnFn
}

const (
	defaultMaxIterations = 25
	defaultMaxTokens     = 4096
	defaultPausePoll     = 3 * time.Second
	defaultFlushInterval = 5 * time.Second
	defaultFlushEntries  = 10
)

// runState is the orchestrator's position in its lifecycle.
type runState int

const (
	stateInit runState = iota
	stateIterating
	statePaused
	stateCompleted
	stateStopped
	stateFailed
)

type orchestrator struct {
	deps  Deps
	exec  *Executor
	jobID string

	conversation []anthropic.Message
	buffered     []model.LogEntry
	counters     model.Counters
	lastFlush    time.Time
	maxCompanies int
	usage        anthropic.TokenUsage
}

// RunAgenticLeadGeneration is the engine's sole entry point: it creates
// the job record, runs the agent loop to a terminal state, and returns
// the accumulated totals. In-run failures end the job as FAILED and are
// reported through the job log, not as a returned error; only setup
// failures (job row cannot be created) return an error.
func RunAgenticLeadGeneration(ctx context.Context, deps Deps, jobID, userID string, icp model.ICPConfig, poolID string, maxCompanies int) (model.RunTotals, error) {
	deps = withDefaults(deps)
	if maxCompanies <= 0 {
		maxCompanies = icp.MaxCompanies
	}
	if maxCompanies <= 0 {
		maxCompanies = 10
	}

	now := time.Now().UTC()
	err := deps.Store.CreateJob(ctx, model.Job{
		ID:        jobID,
		PoolID:    poolID,
		UserID:    userID,
		Status:    model.JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.RunTotals{}, eris.Wrap(err, "agent: create job")
	}

	o := &orchestrator{
		deps:         deps,
		exec:         NewExecutor(deps.Store, deps.Search, deps.Crawler, deps.LLM, deps.Model, jobID, poolID, deps.DefaultCountryCode, icp),
		jobID:        jobID,
		maxCompanies: maxCompanies,
		lastFlush:    now,
	}
	o.conversation = []anthropic.Message{
		anthropic.TextMessage("user", buildTaskPrompt(maxCompanies)),
	}
	o.log("", fmt.Sprintf("run started: target %d companies in pool %s", maxCompanies, poolID))

	totals := o.run(ctx, buildSystemPrompt(icp, maxCompanies))
	o.usage.LogCost(deps.Model, "agent_loop")
	return totals, nil
}

func withDefaults(deps Deps) Deps {
	if deps.MaxIterations <= 0 {
		deps.MaxIterations = defaultMaxIterations
	}
	if deps.MaxTokens <= 0 {
		deps.MaxTokens = defaultMaxTokens
	}
	if deps.PausePollInterval <= 0 {
		deps.PausePollInterval = defaultPausePoll
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.FlushThreshold <= 0 {
		deps.FlushThreshold = defaultFlushEntries
	}
	if deps.Turn == nil {
		llm := deps.LLM
		deps.Turn = func(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			cfg := resilience.DefaultRetryConfig()
			cfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")
			return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
				return llm.CreateMessage(ctx, req)
			})
		}
	}
	return deps
}

// run drives the state machine to a terminal state and returns totals.
func (o *orchestrator) run(ctx context.Context, systemPrompt string) model.RunTotals {
	state := stateInit
	for {
		switch state {
		case stateInit:
			state = stateIterating

		case stateIterating:
			if o.counters.Iterations >= o.deps.MaxIterations {
				o.log("", fmt.Sprintf("iteration cap %d reached", o.deps.MaxIterations))
				state = stateCompleted
				continue
			}
			state = o.iterate(ctx, systemPrompt)

		case statePaused:
			state = o.waitWhilePaused(ctx)

		case stateCompleted:
			o.finish(ctx, model.JobStatusCompleted, "run completed")
			return o.totals()

		case stateStopped:
			o.finish(ctx, model.JobStatusStopped, "run stopped by operator")
			return o.totals()

		case stateFailed:
			o.finish(ctx, model.JobStatusFailed, "run failed")
			return o.totals()
		}
	}
}

// iterate performs one agent turn. Pause/stop are honored here, at the
// iteration boundary: in-flight tool calls always run to completion.
func (o *orchestrator) iterate(ctx context.Context, systemPrompt string) runState {
	switch status := o.readStatus(ctx); status {
	case model.JobStatusPaused:
		return statePaused
	case model.JobStatusStopped:
		return stateStopped
	case model.JobStatusFailed:
		return stateFailed
	}

	o.counters.Iterations++

	resp, err := o.deps.Turn(ctx, anthropic.MessageRequest{
		Model:     o.deps.Model,
		MaxTokens: o.deps.MaxTokens,
		System: []anthropic.SystemBlock{
			{Text: systemPrompt, CacheControl: &anthropic.CacheControl{}},
		},
		Messages: o.conversation,
		Tools:    ToolDefinitions(),
	})
	if err != nil {
		o.log("ERROR", "model turn failed: "+eris.ToString(err, false))
		return stateFailed
	}
	o.usage.Add(resp.Usage)

	o.conversation = append(o.conversation, anthropic.Message{
		Role:    "assistant",
		Content: resp.Content,
	})

	calls := resp.ToolCalls()
	if len(calls) == 0 {
		return o.handleTextTurn(resp)
	}

	results := o.executeParallel(ctx, calls)
	o.conversation = append(o.conversation, anthropic.Message{
		Role:    "user",
		Content: results,
	})

	if o.counters.CompaniesSaved >= o.maxCompanies {
		o.log("", fmt.Sprintf("target of %d companies reached", o.maxCompanies))
		return stateCompleted
	}
	o.maybeFlush(ctx)
	return stateIterating
}

// executeParallel runs all tool calls of one turn concurrently and
// returns their tool_result blocks in the model's original call order.
// Each result lands in its index slot; completion order does not matter.
func (o *orchestrator) executeParallel(ctx context.Context, calls []anthropic.ContentBlock) []anthropic.ContentBlock {
	results := make([]anthropic.ContentBlock, len(calls))
	outcomes := make([]ToolOutcome, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			req, err := ParseToolCall(call.ToolName, call.ToolInput)
			if err != nil {
				outcomes[i] = errorOutcome(err)
			} else {
				outcomes[i] = o.exec.Execute(gctx, req)
			}
			return nil
		})
	}
	_ = g.Wait()

	saved, contacts := 0, 0
	for i, call := range calls {
		outcome := outcomes[i]
		payload, err := json.Marshal(outcome.Payload)
		if err != nil {
			payload = []byte(`{"error":"unserializable tool result"}`)
			outcome.IsError = true
		}
		results[i] = anthropic.ContentBlock{
			Type:      anthropic.ContentTypeToolResult,
			ToolUseID: call.ToolUseID,
			Text:      string(payload),
			IsError:   outcome.IsError,
		}
		if outcome.LogMsg != "" {
			o.log("", outcome.LogMsg)
		}
		if outcome.Save != nil && outcome.Save.Success {
			saved++
			contacts += outcome.Save.ContactsCreated
		}
	}

	o.counters.CompaniesSaved += saved
	o.counters.ContactsSaved += contacts
	o.counters.Progress = progressPct(o.counters.CompaniesSaved, o.maxCompanies)
	o.log("", fmt.Sprintf("iteration %d: %d tool calls, %d companies saved", o.counters.Iterations, len(calls), saved))
	return results
}

// handleTextTurn deals with a turn that produced no tool calls: either
// the model is winding down, or it is stalling and needs a push toward
// save_company.
func (o *orchestrator) handleTextTurn(resp *anthropic.MessageResponse) runState {
	text := resp.Text()
	o.log("", "thinking: "+truncate(text, 300))

	if o.counters.CompaniesSaved >= o.maxCompanies || signalsCompletion(text) {
		return stateCompleted
	}

	o.conversation = append(o.conversation, anthropic.TextMessage("user",
		fmt.Sprintf("You have saved %d of %d target companies. Do not keep searching indefinitely: "+
			"call save_company with the contact data you have already gathered, or search for the next candidate.",
			o.counters.CompaniesSaved, o.maxCompanies)))
	return stateIterating
}

// waitWhilePaused polls the job record until the operator resumes or
// stops the run. Totals stay frozen while paused.
func (o *orchestrator) waitWhilePaused(ctx context.Context) runState {
	o.log("", "run paused")
	o.flush(ctx, true)
	for {
		select {
		case <-ctx.Done():
			return stateStopped
		case <-time.After(o.deps.PausePollInterval):
		}
		switch o.readStatus(ctx) {
		case model.JobStatusRunning:
			o.log("", "run resumed")
			return stateIterating
		case model.JobStatusStopped:
			return stateStopped
		case model.JobStatusFailed:
			return stateFailed
		}
	}
}

// readStatus reads the job's current status. An unreadable job record is
// treated as RUNNING; a flaky read must not kill the run.
func (o *orchestrator) readStatus(ctx context.Context) model.JobStatus {
	job, err := o.deps.Store.GetJob(ctx, o.jobID)
	if err != nil {
		zap.L().Warn("agent: job status read failed", zap.String("job_id", o.jobID), zap.Error(err))
		return model.JobStatusRunning
	}
	return job.Status
}

// finish marks the job terminal and force-flushes whatever progress is
// still buffered. Terminal paths never skip the flush.
func (o *orchestrator) finish(ctx context.Context, status model.JobStatus, msg string) {
	if status == model.JobStatusCompleted {
		o.counters.Progress = 100
	}
	o.log("", fmt.Sprintf("%s: %d companies, %d contacts, %d iterations",
		msg, o.counters.CompaniesSaved, o.counters.ContactsSaved, o.counters.Iterations))

	if err := o.deps.Store.UpdateJobStatus(ctx, o.jobID, status); err != nil {
		zap.L().Error("agent: job status update failed",
			zap.String("job_id", o.jobID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	o.flush(ctx, true)
	_ = zap.L().Sync()
}

func (o *orchestrator) log(level, msg string) {
	o.buffered = append(o.buffered, model.LogEntry{TS: time.Now().UTC(), Level: level, Msg: msg})
	if level == "ERROR" {
		zap.L().Error(msg, zap.String("job_id", o.jobID))
	} else {
		zap.L().Info(msg, zap.String("job_id", o.jobID))
	}
}

// maybeFlush flushes buffered progress opportunistically, on buffer size
// or elapsed time.
func (o *orchestrator) maybeFlush(ctx context.Context) {
	if len(o.buffered) >= o.deps.FlushThreshold || time.Since(o.lastFlush) >= o.deps.FlushInterval {
		o.flush(ctx, false)
	}
}

// flush writes buffered logs and counters to the job record under the
// optimistic-concurrency policy: each attempt re-reads the current
// version, and a conflicting concurrent write triggers a backed-off
// retry. Exhausting retries logs locally and drops nothing fatal; the
// run itself continues.
func (o *orchestrator) flush(ctx context.Context, force bool) {
	if len(o.buffered) == 0 && !force {
		return
	}
	entries := o.buffered

	cfg := resilience.JobWriteRetryConfig(store.IsConflict)
	cfg.OnRetry = resilience.RetryLogger("store", "append_job_progress")
	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		job, err := o.deps.Store.GetJob(ctx, o.jobID)
		if err != nil {
			return err
		}
		return o.deps.Store.AppendJobProgress(ctx, o.jobID, job.Version, entries, o.counters)
	})
	if err != nil {
		zap.L().Error("agent: progress flush failed",
			zap.String("job_id", o.jobID),
			zap.Int("entries", len(entries)),
			zap.Error(err),
		)
		return
	}
	o.buffered = o.buffered[:0]
	o.lastFlush = time.Now()
}

func (o *orchestrator) totals() model.RunTotals {
	return model.RunTotals{
		CompaniesSaved: o.counters.CompaniesSaved,
		ContactsSaved:  o.counters.ContactsSaved,
		Iterations:     o.counters.Iterations,
	}
}

func buildSystemPrompt(icp model.ICPConfig, maxCompanies int) string {
	var b strings.Builder
	b.WriteString("You are a lead-generation researcher. Find companies matching the ideal customer profile below, ")
	b.WriteString("crawl their websites for contact information, and persist qualified companies with save_company.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- A company is only worth saving once you have at least one contact with an email or phone.\n")
	b.WriteString("- Use analyze_company_fit before saving to record your judgment.\n")
	b.WriteString(fmt.Sprintf("- Stop once %d companies are saved.\n\n", maxCompanies))
	b.WriteString("Ideal customer profile:\n")
	writeICPLine(&b, "Industries", icp.Industries)
	writeICPLine(&b, "Company sizes", icp.CompanySizes)
	writeICPLine(&b, "Geographies", icp.Geographies)
	writeICPLine(&b, "Tech keywords", icp.TechKeywords)
	writeICPLine(&b, "Target titles", icp.TargetTitles)
	writeICPLine(&b, "Excluded domains", icp.ExcludedDomains)
	if icp.Notes != "" {
		fmt.Fprintf(&b, "- Notes: %s\n", icp.Notes)
	}
	return b.String()
}

func writeICPLine(b *strings.Builder, label string, values []string) {
	if len(values) > 0 {
		fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(values, ", "))
	}
}

func buildTaskPrompt(maxCompanies int) string {
	return fmt.Sprintf("Find %d companies matching the profile. Start with a web search for the most specific "+
		"industry and geography combination, then work through the results.", maxCompanies)
}

// signalsCompletion reports whether a plain-text turn reads like the
// model declaring the task done.
func signalsCompletion(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range []string{
		"task is complete", "task complete", "all done",
		"target reached", "i have completed", "run is complete",
		"no further companies", "finished the search",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func progressPct(saved, target int) int {
	if target <= 0 {
		return 0
	}
	pct := saved * 100 / target
	if pct > 100 {
		pct = 100
	}
	return pct
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
