// Package codegen implements the code-gen aggregator (C5): for a single
// model, run a canary check, select tasks, run trials via internal/trial,
// collapse and aggregate their metrics, score, and persist.
//
// Grounded on the teacher's pkg/agent/orchestrator/runner.go multi-phase
// dispatch-then-collect shape and pkg/services/session_service.go's
// "compute, then persist, then fire an event" ordering (generalized here
// from a DB-event-bus publish to a dashboard cache invalidation).
package codegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/llmbench/internal/adapter"
	"github.com/codeready-toolchain/llmbench/internal/sandbox"
	"github.com/codeready-toolchain/llmbench/internal/scoring"
	"github.com/codeready-toolchain/llmbench/internal/store"
	"github.com/codeready-toolchain/llmbench/internal/task"
	"github.com/codeready-toolchain/llmbench/internal/trial"
)

const (
	taskSelectionK   = 7
	trialsPerTask    = 3
	baselineLookback = 50

	jitterMinMs = 200
	jitterMaxMs = 400
)

// evalSandboxConfig is the fixed sandbox shape used to evaluate generated
// Python code; code tasks don't carry their own SandboxConfig (only tool
// tasks do), so the aggregator fixes a conservative default.
var evalSandboxConfig = task.SandboxConfig{
	Image:         "python:3.12-slim",
	WorkingDir:    "/workspace",
	TimeoutMs:     15000,
	MemoryLimitMB: 256,
	CPULimit:      0.5,
}

// CacheInvalidator is the subset of internal/cache's behavior the
// aggregator depends on, kept local to avoid a store<->cache import cycle.
type CacheInvalidator interface {
	InvalidateSuite(suite store.Suite)
}

// Deps bundles the aggregator's collaborators.
type Deps struct {
	Store   *store.Client
	Sandbox *sandbox.Manager
	Cache   CacheInvalidator
}

// RunSuiteTick runs one C5 tick for a single model against catalog,
// persisting exactly one Score row (spec.md §4.6).
func RunSuiteTick(ctx context.Context, deps Deps, a adapter.Adapter, model store.Model, catalog *task.Catalog, suite store.Suite, batchTs time.Time) error {
	logger := slog.With("model_id", model.ID, "model", model.Name, "suite", suite)

	if err := canary(ctx, a, model.Name); err != nil {
		logger.Warn("canary check failed", "error", err)
		return persistSentinel(ctx, deps, model.ID, suite, batchTs, store.SentinelAdapterValidation, err.Error())
	}

	selected := selectTasks(catalog, taskSelectionK)
	if len(selected) == 0 {
		return persistSentinel(ctx, deps, model.ID, suite, batchTs, store.SentinelAllTasksFailed, "empty task catalog")
	}

	sandboxID := uuid.NewString()
	if _, err := deps.Sandbox.Create(ctx, sandboxID, evalSandboxConfig); err != nil {
		return persistSentinel(ctx, deps, model.ID, suite, batchTs, store.SentinelAdapterValidation, "sandbox create failed: "+err.Error())
	}
	defer func() {
		if err := deps.Sandbox.Destroy(context.Background(), sandboxID); err != nil {
			logger.Warn("sandbox destroy failed", "error", err)
		}
	}()

	ev := trial.NewSandboxEvaluator(deps.Sandbox, sandboxID)

	taskResults := make([]map[string]float64, 0, len(selected))
	anyTaskSucceeded := false

	for _, t := range selected {
		collapsed, succeeded := runTask(ctx, deps, a, model.ID, model.Name, t, ev)
		if succeeded {
			anyTaskSucceeded = true
			taskResults = append(taskResults, collapsed)
		}
	}

	if !anyTaskSucceeded {
		return persistSentinel(ctx, deps, model.ID, suite, batchTs, store.SentinelAllTasksFailed, "every selected task failed")
	}

	suiteAxes := meanAcrossTasks(taskResults)
	if suiteAxes["stability"] > 0.95 {
		suiteAxes["stability"] = 0.95
	}

	baseline, err := loadBaseline(ctx, deps.Store, model.ID, suite)
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}

	raw := scoring.Harsh(suiteAxes, baseline)
	raw -= scoring.FailurePenalty(len(taskResults), taskSelectionK)

	note := ""
	if !baseline.HasBaseline {
		raw -= scoring.CalibrationPenalty
		note = fmt.Sprintf("Calibrating (%d/%d samples)", len(taskResults), taskSelectionK)
	}

	score := store.Score{
		ID:             uuid.NewString(),
		ModelID:        model.ID,
		Ts:             time.Now(),
		BatchTimestamp: batchTs,
		Suite:          suite,
		StupidScore:    raw,
		Axes:           suiteAxes,
		Note:           note,
	}
	if err := deps.Store.InsertScore(ctx, score); err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	if deps.Cache != nil {
		deps.Cache.InvalidateSuite(suite)
	}
	return nil
}

// runTask runs trialsPerTask trials for t, collapses successful trials into
// a single axis vector, and falls back to a single boosted-budget retry
// when every first-pass trial fails (spec.md §4.6 step 3). modelID is the
// internal store PK used for persistence; modelName is the provider-facing
// identifier sent to the adapter.
func runTask(ctx context.Context, deps Deps, a adapter.Adapter, modelID, modelName string, t task.CodeTask, ev trial.Evaluator) (map[string]float64, bool) {
	sessionID := uuid.NewString()

	successfulAxes := make([]map[string]float64, 0, trialsPerTask)
	allCorrectness := make([]float64, 0, trialsPerTask)

	for n := 0; n < trialsPerTask; n++ {
		if n > 0 {
			jitterSleep()
		}
		result, err := trial.Run(ctx, a, modelName, t, sessionID, n, ev)
		if err != nil {
			allCorrectness = append(allCorrectness, 0)
			continue
		}
		persistRun(ctx, deps.Store, modelID, t.Slug, result)
		successfulAxes = append(successfulAxes, result.Metrics)
		allCorrectness = append(allCorrectness, result.Metrics["correctness"])
	}

	if len(successfulAxes) == 0 {
		boosted := t
		boosted.Prompt = t.Prompt + "\n\nBe extremely careful to define the exact requested function signature and return type."
		boosted.MaxTokens = t.MaxTokens * 2
		result, err := trial.Run(ctx, a, modelName, boosted, sessionID, trialsPerTask, ev)
		if err != nil {
			return nil, false
		}
		persistRun(ctx, deps.Store, modelID, t.Slug, result)
		successfulAxes = append(successfulAxes, result.Metrics)
		allCorrectness = append(allCorrectness, result.Metrics["correctness"])
	}

	if len(successfulAxes) == 0 {
		return nil, false
	}

	return scoring.CollapseTask(successfulAxes, allCorrectness), true
}

func persistRun(ctx context.Context, st *store.Client, modelID, taskSlug string, result *trial.Result) {
	run := store.Run{
		ID:           uuid.NewString(),
		ModelID:      modelID,
		TaskID:       taskSlug,
		Ts:           time.Now(),
		TokensIn:     result.TokensIn,
		TokensOut:    result.TokensOut,
		LatencyMs:    result.LatencyMs,
		Attempts:     1,
		Passed:       result.Metrics["correctness"] >= 1,
		ArtifactHash: artifactHash(result.Code),
	}
	metric := store.Metric{
		RunID:       run.ID,
		Correctness: result.Metrics["correctness"],
		Complexity:  result.Metrics["complexity"],
		CodeQuality: result.Metrics["codeQuality"],
		Efficiency:  result.Metrics["efficiency"],
		Stability:   result.Metrics["stability"],
		EdgeCases:   result.Metrics["edgeCases"],
		Debugging:   result.Metrics["debugging"],
	}
	if err := st.InsertRunWithMetric(ctx, run, metric); err != nil {
		slog.Warn("persist run failed", "model_id", modelID, "task", taskSlug, "error", err)
	}
}

// canary validates credentials and basic liveness with a minimal chat call.
func canary(ctx context.Context, a adapter.Adapter, model string) error {
	req := adapter.ChatRequest{
		Model: model,
		Messages: []adapter.Message{
			{Role: adapter.RoleUser, Content: "Reply with the single word: ready"},
		},
		Temperature: 0,
		MaxTokens:   16,
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := a.Chat(ctx, req)
		if err == nil && resp.Text != "" {
			return nil
		}
		lastErr = err
		if err == nil {
			lastErr = errors.New("canary: empty response")
		}
	}
	return lastErr
}

// selectTasks shuffles the catalog's code tasks and returns the first k.
func selectTasks(catalog *task.Catalog, k int) []task.CodeTask {
	all := make([]task.CodeTask, 0, len(catalog.CodeTasks))
	for _, t := range catalog.CodeTasks {
		all = append(all, t)
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if len(all) > k {
		all = all[:k]
	}
	return all
}

func meanAcrossTasks(taskAxes []map[string]float64) map[string]float64 {
	sums := map[string]float64{}
	for _, axes := range taskAxes {
		for k, v := range axes {
			sums[k] += v
		}
	}
	out := make(map[string]float64, len(sums))
	for k, v := range sums {
		out[k] = v / float64(len(taskAxes))
	}
	return out
}

func loadBaseline(ctx context.Context, st *store.Client, modelID string, suite store.Suite) (scoring.Baseline, error) {
	scores, err := st.RecentScores(ctx, modelID, suite, baselineLookback, true)
	if err != nil {
		return scoring.Baseline{}, err
	}
	history := make([]map[string]float64, len(scores))
	for i, s := range scores {
		history[i] = s.Axes
	}
	return scoring.ComputeBaseline(history), nil
}

func persistSentinel(ctx context.Context, deps Deps, modelID string, suite store.Suite, batchTs time.Time, value float64, note string) error {
	score := store.Score{
		ID:             uuid.NewString(),
		ModelID:        modelID,
		Ts:             time.Now(),
		BatchTimestamp: batchTs,
		Suite:          suite,
		StupidScore:    value,
		Axes:           store.SentinelAxes(),
		Note:           note,
	}
	if err := deps.Store.InsertScore(ctx, score); err != nil {
		return fmt.Errorf("insert sentinel score: %w", err)
	}
	if deps.Cache != nil {
		deps.Cache.InvalidateSuite(suite)
	}
	return nil
}

func jitterSleep() {
	d := jitterMinMs + rand.Intn(jitterMaxMs-jitterMinMs+1)
	time.Sleep(time.Duration(d) * time.Millisecond)
}

func artifactHash(code string) string {
	return shortHash(code)
}
