package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

// script replays canned model turns and records every request it saw.
type script struct {
	mu       sync.Mutex
	requests []anthropic.MessageRequest
	turns    []func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (s *script) turn(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i >= len(s.turns) {
		return textTurn("task complete"), nil
	}
	return s.turns[i](req)
}

func (s *script) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func textTurn(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: anthropic.ContentTypeText, Text: text}},
		StopReason: anthropic.StopReasonEndTurn,
	}
}

func toolTurn(calls ...anthropic.ContentBlock) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    calls,
		StopReason: anthropic.StopReasonToolUse,
	}
}

func toolCall(id, name, input string) anthropic.ContentBlock {
	return anthropic.ContentBlock{
		Type:      anthropic.ContentTypeToolUse,
		ToolUseID: id,
		ToolName:  name,
		ToolInput: json.RawMessage(input),
	}
}

func testDeps(st store.Store, sc *script) Deps {
	return Deps{
		Store:             st,
		Search:            &fakeSearcher{},
		Crawler:           &fakeCrawler{},
		Model:             "test-model",
		Turn:              sc.turn,
		PausePollInterval: 5 * time.Millisecond,
	}
}

func TestRun_ParallelToolOrdering(t *testing.T) {
	st := newTestStore(t)

	// Three crawls resolving out of order: the slowest is dispatched first.
	delays := map[string]time.Duration{
		"https://slow.com": 40 * time.Millisecond,
		"https://fast.com": 0,
		"https://mid.com":  10 * time.Millisecond,
	}
	crawler := &fakeCrawler{visit: func(rootURL string) *model.CrawlResult {
		time.Sleep(delays[rootURL])
		return &model.CrawlResult{RootURL: rootURL}
	}}

	sc := &script{turns: []func(anthropic.MessageRequest) (*anthropic.MessageResponse, error){
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return toolTurn(
				toolCall("tu_1", ToolVisitWebsite, `{"url":"https://slow.com"}`),
				toolCall("tu_2", ToolVisitWebsite, `{"url":"https://fast.com"}`),
				toolCall("tu_3", ToolVisitWebsite, `{"url":"https://mid.com"}`),
			), nil
		},
	}}

	deps := testDeps(st, sc)
	deps.Crawler = crawler

	totals, err := RunAgenticLeadGeneration(context.Background(), deps, "job-order", "user-1", model.ICPConfig{}, "pool-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Iterations)

	// The second request carries the results of the first turn's calls as
	// its last message, in the model's original call order.
	require.Len(t, sc.requests, 2)
	last := sc.requests[1].Messages[len(sc.requests[1].Messages)-1]
	assert.Equal(t, "user", last.Role)
	require.Len(t, last.Content, 3)
	assert.Equal(t, "tu_1", last.Content[0].ToolUseID)
	assert.Equal(t, "tu_2", last.Content[1].ToolUseID)
	assert.Equal(t, "tu_3", last.Content[2].ToolUseID)
	for _, block := range last.Content {
		assert.Equal(t, anthropic.ContentTypeToolResult, block.Type)
	}
}

func TestRun_CompletesWhenTargetReached(t *testing.T) {
	st := newTestStore(t)

	saveArgs := `{"domain":"acme.com","company_name":"Acme","contacts":[{"full_name":"Jane Doe","email":"jane@acme.com"}]}`
	sc := &script{turns: []func(anthropic.MessageRequest) (*anthropic.MessageResponse, error){
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return toolTurn(toolCall("tu_1", ToolSaveCompany, saveArgs)), nil
		},
	}}

	totals, err := RunAgenticLeadGeneration(context.Background(), testDeps(st, sc), "job-done", "user-1", model.ICPConfig{}, "pool-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.CompaniesSaved)
	assert.Equal(t, 1, totals.ContactsSaved)
	assert.Equal(t, 1, totals.Iterations)

	job, err := st.GetJob(context.Background(), "job-done")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Counters.Progress)
	assert.Equal(t, 1, job.Counters.CompaniesSaved)
	assert.NotEmpty(t, job.Logs, "terminal flush must persist buffered logs")
}

func TestRun_StopHonoredAtIterationBoundary(t *testing.T) {
	st := newTestStore(t)

	sc := &script{turns: []func(anthropic.MessageRequest) (*anthropic.MessageResponse, error){
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			// Operator stops the job while the turn is in flight. The
			// in-flight tool call still runs; the next boundary stops.
			require.NoError(t, st.UpdateJobStatus(context.Background(), "job-stop", model.JobStatusStopped))
			return toolTurn(toolCall("tu_1", ToolAnalyzeCompanyFit, `{"domain":"acme.com"}`)), nil
		},
	}}

	totals, err := RunAgenticLeadGeneration(context.Background(), testDeps(st, sc), "job-stop", "user-1", model.ICPConfig{}, "pool-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Iterations)
	assert.Equal(t, 1, sc.callCount(), "no turn after stop")

	job, err := st.GetJob(context.Background(), "job-stop")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusStopped, job.Status)
}

func TestRun_PauseBlocksUntilStopped(t *testing.T) {
	st := newTestStore(t)

	sc := &script{turns: []func(anthropic.MessageRequest) (*anthropic.MessageResponse, error){
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			require.NoError(t, st.UpdateJobStatus(context.Background(), "job-pause", model.JobStatusPaused))
			return toolTurn(toolCall("tu_1", ToolAnalyzeCompanyFit, `{"domain":"acme.com"}`)), nil
		},
	}}

	// Release the pause with a stop after a few poll intervals.
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = st.UpdateJobStatus(context.Background(), "job-pause", model.JobStatusStopped)
	}()

	start := time.Now()
	totals, err := RunAgenticLeadGeneration(context.Background(), testDeps(st, sc), "job-pause", "user-1", model.ICPConfig{}, "pool-1", 5)
	require.NoError(t, err)

	// Paused: no further turns ran, and the run waited for the stop.
	assert.Equal(t, 1, sc.callCount())
	assert.Equal(t, 1, totals.Iterations)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	job, err := st.GetJob(context.Background(), "job-pause")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusStopped, job.Status)
}

func TestRun_PauseThenResume(t *testing.T) {
	st := newTestStore(t)

	sc := &script{turns: []func(anthropic.MessageRequest) (*anthropic.MessageResponse, error){
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			require.NoError(t, st.UpdateJobStatus(context.Background(), "job-resume", model.JobStatusPaused))
			return toolTurn(toolCall("tu_1", ToolAnalyzeCompanyFit, `{"domain":"acme.com"}`)), nil
		},
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return textTurn("task complete"), nil
		},
	}}

	go func() {
		time.Sleep(25 * time.Millisecond)
		_ = st.UpdateJobStatus(context.Background(), "job-resume", model.JobStatusRunning)
	}()

	totals, err := RunAgenticLeadGeneration(context.Background(), testDeps(st, sc), "job-resume", "user-1", model.ICPConfig{}, "pool-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, sc.callCount(), "loop resumed after pause lifted")
	assert.Equal(t, 2, totals.Iterations)

	job, err := st.GetJob(context.Background(), "job-resume")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
}

func TestRun_CorrectiveMessageOnStall(t *testing.T) {
	st := newTestStore(t)

	sc := &script{turns: []func(anthropic.MessageRequest) (*anthropic.MessageResponse, error){
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return textTurn("Let me think about where else to look."), nil
		},
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return textTurn("The task is complete."), nil
		},
	}}

	totals, err := RunAgenticLeadGeneration(context.Background(), testDeps(st, sc), "job-stall", "user-1", model.ICPConfig{}, "pool-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Iterations)

	// The second request must carry the corrective push toward save_company.
	require.Len(t, sc.requests, 2)
	last := sc.requests[1].Messages[len(sc.requests[1].Messages)-1]
	assert.Equal(t, "user", last.Role)
	require.NotEmpty(t, last.Content)
	assert.Contains(t, last.Content[0].Text, "save_company")
}

func TestRun_ModelErrorFailsJob(t *testing.T) {
	st := newTestStore(t)

	sc := &script{turns: []func(anthropic.MessageRequest) (*anthropic.MessageResponse, error){
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return nil, eris.New("model unavailable")
		},
	}}

	totals, err := RunAgenticLeadGeneration(context.Background(), testDeps(st, sc), "job-fail", "user-1", model.ICPConfig{}, "pool-1", 5)
	require.NoError(t, err, "in-run failures are reported via the job, not returned")
	assert.Equal(t, 1, totals.Iterations)

	job, err := st.GetJob(context.Background(), "job-fail")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)

	foundError := false
	for _, entry := range job.Logs {
		if entry.Level == "ERROR" {
			foundError = true
		}
	}
	assert.True(t, foundError, "failure must surface in the job log")
}

func TestRun_IterationCap(t *testing.T) {
	st := newTestStore(t)

	sc := &script{turns: nil} // every turn is non-terminal text
	sc.turns = append(sc.turns,
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return textTurn("searching"), nil
		},
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return textTurn("still searching"), nil
		},
		func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return textTurn("more searching"), nil
		},
	)

	deps := testDeps(st, sc)
	deps.MaxIterations = 2

	totals, err := RunAgenticLeadGeneration(context.Background(), deps, "job-cap", "user-1", model.ICPConfig{}, "pool-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Iterations)
	assert.Equal(t, 2, sc.callCount())
}

func TestSignalsCompletion(t *testing.T) {
	t.Parallel()
	assert.True(t, signalsCompletion("The task is complete, all 5 companies saved."))
	assert.True(t, signalsCompletion("Target reached."))
	assert.False(t, signalsCompletion("Let me search for more candidates."))
	assert.False(t, signalsCompletion(""))
}
