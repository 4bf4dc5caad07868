// Package scheduler drives the three cron-triggered suite ticks (C9):
// the 20-minute and daily code-generation suites, and the daily
// tool-calling suite, each with a single in-flight guard, vendor-sharded
// fan-out or bounded worker-pool concurrency, and cache invalidation on
// completion.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/codeready-toolchain/llmbench/internal/adapter"
	"github.com/codeready-toolchain/llmbench/internal/codegen"
	"github.com/codeready-toolchain/llmbench/internal/sandbox"
	"github.com/codeready-toolchain/llmbench/internal/scoring"
	"github.com/codeready-toolchain/llmbench/internal/store"
	"github.com/codeready-toolchain/llmbench/internal/task"
	"github.com/codeready-toolchain/llmbench/internal/toolsession"
)

const (
	defaultToolConcurrency = 3
	toolRecencyWindow      = 20 * time.Hour
	interModelJitterMinMs  = 150
	interModelJitterMaxMs  = 450
)

// Deps wires the scheduler to the rest of the system. ToolConcurrency
// defaults to 3 (spec.md §4.10 invariant 4) when left at zero.
type Deps struct {
	Store           *store.Client
	Sandbox         *sandbox.Manager
	Adapters        *adapter.Registry
	Catalog         *task.Catalog
	Cache           codegen.CacheInvalidator
	ToolConcurrency int
}

// Scheduler owns the cron runtime and the per-suite in-flight guards.
// Grounded on the teacher's WorkerPool (pkg/queue/pool.go): a single
// started/stopped lifecycle, goroutines that keep running after a single
// item's failure, and a mutex-guarded registry of in-flight work.
type Scheduler struct {
	deps Deps
	cron *cron.Cron

	hourlyInFlight  atomic.Bool
	deepInFlight    atomic.Bool
	toolingInFlight atomic.Bool
}

// New builds a Scheduler. Call Start to register the three tickers.
func New(deps Deps) *Scheduler {
	if deps.ToolConcurrency <= 0 {
		deps.ToolConcurrency = defaultToolConcurrency
	}
	return &Scheduler{
		deps: deps,
		cron: cron.New(cron.WithLocation(time.Local)),
	}
}

// Start registers the three suite tickers and begins the cron runtime.
// All three are evaluated in a single host timezone (spec.md §4.10).
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("0,20,40 * * * *", func() {
		s.runGuarded(ctx, store.SuiteHourly, &s.hourlyInFlight, s.tickCodeGen)
	}); err != nil {
		return fmt.Errorf("register hourly schedule: %w", err)
	}
	if _, err := s.cron.AddFunc("0 3 * * *", func() {
		s.runGuarded(ctx, store.SuiteDeep, &s.deepInFlight, s.tickCodeGen)
	}); err != nil {
		return fmt.Errorf("register deep schedule: %w", err)
	}
	if _, err := s.cron.AddFunc("0 4 * * *", func() {
		s.runGuarded(ctx, store.SuiteTooling, &s.toolingInFlight, s.tickTooling)
	}); err != nil {
		return fmt.Errorf("register tooling schedule: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runtime and waits for in-progress jobs to return.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// runGuarded enforces the single in-flight-per-suite invariant (spec.md
// §8.1 property 5): a concurrent trigger is dropped with a log line
// rather than queued. A panic inside fn is recovered so one suite's
// crash never stops future ticks of any suite (spec.md §4.10 invariant 2).
func (s *Scheduler) runGuarded(ctx context.Context, suite store.Suite, flag *atomic.Bool, fn func(ctx context.Context, suite store.Suite)) {
	if !flag.CompareAndSwap(false, true) {
		slog.Warn("suite tick already running, skipping", "suite", suite)
		return
	}
	defer flag.Store(false)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("suite tick panicked", "suite", suite, "panic", r)
		}
	}()

	start := time.Now()
	fn(ctx, suite)
	slog.Info("suite tick complete", "suite", suite, "elapsed", time.Since(start))
}

// tickCodeGen runs one code-gen suite tick (hourly or deep), sharding
// models by vendor for concurrent fan-out and serializing within a
// vendor with a jittered inter-model sleep (spec.md §4.10 invariant 5).
func (s *Scheduler) tickCodeGen(ctx context.Context, suite store.Suite) {
	models, err := s.deps.Store.ListModels(ctx, true)
	if err != nil {
		slog.Error("list models failed", "suite", suite, "error", err)
		return
	}

	byVendor := make(map[store.Vendor][]store.Model)
	for _, m := range models {
		byVendor[m.Vendor] = append(byVendor[m.Vendor], m)
	}

	batchTs := time.Now()
	deps := codegen.Deps{Store: s.deps.Store, Sandbox: s.deps.Sandbox, Cache: s.deps.Cache}

	var wg sync.WaitGroup
	for vendor, vendorModels := range byVendor {
		wg.Add(1)
		go func(vendor store.Vendor, vendorModels []store.Model) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("vendor shard panicked", "vendor", vendor, "suite", suite, "panic", r)
				}
			}()
			s.runVendorShard(ctx, deps, vendor, vendorModels, suite, batchTs)
		}(vendor, vendorModels)
	}
	wg.Wait()
}

func (s *Scheduler) runVendorShard(ctx context.Context, deps codegen.Deps, vendor store.Vendor, models []store.Model, suite store.Suite, batchTs time.Time) {
	for i, model := range models {
		if i > 0 {
			interModelJitterSleep()
		}

		logger := slog.With("model_id", model.ID, "vendor", vendor, "suite", suite)

		a, err := s.deps.Adapters.Get(ctx, string(model.Vendor))
		if err != nil {
			logger.Warn("no adapter available, recording NoApiKey sentinel", "error", err)
			if serr := s.persistNoAPIKeySentinel(ctx, model, suite, batchTs); serr != nil {
				logger.Error("failed to persist NoApiKey sentinel", "error", serr)
			}
			continue
		}

		if err := codegen.RunSuiteTick(ctx, deps, a, model, s.deps.Catalog, suite, batchTs); err != nil {
			logger.Error("code-gen suite tick failed for model", "error", err)
		}
	}
}

func (s *Scheduler) persistNoAPIKeySentinel(ctx context.Context, model store.Model, suite store.Suite, batchTs time.Time) error {
	score := store.Score{
		ID:             uuid.NewString(),
		ModelID:        model.ID,
		Ts:             time.Now(),
		BatchTimestamp: batchTs,
		Suite:          suite,
		StupidScore:    store.SentinelNoAPIKey,
		Axes:           store.SentinelAxes(),
		Note:           fmt.Sprintf("N/A — %s API not configured", model.Vendor),
	}
	if err := s.deps.Store.InsertScore(ctx, score); err != nil {
		return err
	}
	if s.deps.Cache != nil {
		s.deps.Cache.InvalidateSuite(suite)
	}
	return nil
}

// tickTooling runs one tool-calling suite tick: builds the (model, task)
// work list after applying the 20-hour recency skip, then drains it
// through a bounded worker pool (spec.md §4.10 invariant 4, §5 "across
// (model, task) pairs").
func (s *Scheduler) tickTooling(ctx context.Context, suite store.Suite) {
	models, err := s.deps.Store.ListModels(ctx, true)
	if err != nil {
		slog.Error("list models failed", "suite", suite, "error", err)
		return
	}

	batchTs := time.Now()
	pairs := make([]toolingPair, 0)
	for _, m := range models {
		if !m.SupportsToolCalling {
			continue
		}
		a, err := s.deps.Adapters.Get(ctx, string(m.Vendor))
		if err != nil {
			slog.Warn("no adapter available for tooling suite, recording NoApiKey sentinel", "model_id", m.ID, "error", err)
			if serr := s.persistNoAPIKeySentinel(ctx, m, suite, batchTs); serr != nil {
				slog.Error("failed to persist NoApiKey sentinel", "error", serr)
			}
			continue
		}
		for _, t := range s.deps.Catalog.ToolTasks {
			skip, err := shouldSkipForRecency(ctx, s.deps.Store, m.ID, t.Slug, time.Now())
			if err != nil {
				slog.Warn("recency lookup failed, proceeding without skip", "model_id", m.ID, "task", t.Slug, "error", err)
			}
			if skip {
				continue
			}
			pairs = append(pairs, toolingPair{model: m, adapter: a, task: t})
		}
	}

	if len(pairs) == 0 {
		return
	}

	sem := make(chan struct{}, s.deps.ToolConcurrency)
	var wg sync.WaitGroup
	for _, p := range pairs {
		p := p
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("tool session panicked", "model_id", p.model.ID, "task", p.task.Slug, "panic", r)
				}
			}()
			s.runToolingSession(ctx, p, suite, batchTs)
		}()
	}
	wg.Wait()
}

type toolingPair struct {
	model   store.Model
	adapter adapter.Adapter
	task    task.ToolTask
}

// runToolingSession drives one (model, task) tool-calling session and
// persists its ToolSession row and, when toolsession.Run returns no
// error, its suite-level Score row.
func (s *Scheduler) runToolingSession(ctx context.Context, p toolingPair, suite store.Suite, batchTs time.Time) {
	logger := slog.With("model_id", p.model.ID, "task", p.task.Slug)

	sessionID := uuid.NewString()
	if err := s.deps.Store.CreateToolSession(ctx, store.ToolSession{
		ID:       sessionID,
		ModelID:  p.model.ID,
		TaskSlug: p.task.Slug,
	}); err != nil {
		logger.Error("create tool session failed", "error", err)
		return
	}

	registry := toolsession.NewRegistry()
	outcome, err := toolsession.Run(ctx, s.deps.Sandbox, p.adapter, p.model.Name, p.task, registry)
	s.persistToolExecutions(ctx, sessionID, outcome.Calls)

	if err != nil && errors.Is(err, toolsession.ErrCreditExhausted) {
		// spec.md §7: credit exhaustion propagates so the scheduler can
		// record a non-sentinel marker session and move on, rather than
		// writing a numeric Score row.
		logger.Warn("credit exhausted, marking session and skipping", "error", err)
		s.finalizeFailedSession(ctx, sessionID, outcome, err)
		return
	}
	if err != nil {
		logger.Error("tool session failed", "error", err)
		s.finalizeFailedSession(ctx, sessionID, outcome, err)
		return
	}

	finalScore := scoring.ToolingScore(outcome.Rubric.AsMap())

	if ferr := s.deps.Store.FinalizeToolSession(ctx, store.ToolSession{
		ID:                  sessionID,
		Status:               toolStatusFor(outcome),
		Turns:                outcome.Turns,
		TotalLatencyMs:       outcome.TotalLatencyMs,
		TotalTokensIn:        outcome.TotalTokensIn,
		TotalTokensOut:       outcome.TotalTokensOut,
		ToolCallsCount:       len(outcome.Calls),
		SuccessfulToolCalls:  countCalls(outcome.Calls, true),
		FailedToolCalls:      countCalls(outcome.Calls, false),
		Passed:               outcome.Succeeded,
		FinalScore:           finalScore,
	}); ferr != nil {
		logger.Error("finalize tool session failed", "error", ferr)
		return
	}

	score := store.Score{
		ID:             uuid.NewString(),
		ModelID:        p.model.ID,
		Ts:             time.Now(),
		BatchTimestamp: batchTs,
		Suite:          suite,
		StupidScore:    finalScore,
		Axes:           outcome.Rubric.AsMap(),
		Note:           string(outcome.Termination),
	}
	if err := s.deps.Store.InsertScore(ctx, score); err != nil {
		logger.Error("insert tooling score failed", "error", err)
		return
	}
	if s.deps.Cache != nil {
		s.deps.Cache.InvalidateSuite(suite)
	}
}

func (s *Scheduler) finalizeFailedSession(ctx context.Context, sessionID string, outcome toolsession.Outcome, runErr error) {
	if err := s.deps.Store.FinalizeToolSession(ctx, store.ToolSession{
		ID:                  sessionID,
		Status:               store.ToolSessionFailed,
		Turns:                outcome.Turns,
		TotalLatencyMs:       outcome.TotalLatencyMs,
		TotalTokensIn:        outcome.TotalTokensIn,
		TotalTokensOut:       outcome.TotalTokensOut,
		ToolCallsCount:       len(outcome.Calls),
		SuccessfulToolCalls:  countCalls(outcome.Calls, true),
		FailedToolCalls:      countCalls(outcome.Calls, false),
		Passed:               false,
		ErrorLog:             runErr.Error(),
	}); err != nil {
		slog.Error("finalize failed tool session failed", "session_id", sessionID, "error", err)
	}
}

// persistToolExecutions writes one tool_executions row per call record, so
// that tool_calls_count == successful + failed == len(tool executions) holds
// for every session regardless of how it terminated (spec.md §3, §8.1/2).
func (s *Scheduler) persistToolExecutions(ctx context.Context, sessionID string, calls []toolsession.CallRecord) {
	for _, c := range calls {
		resultJSON, err := json.Marshal(c.ResultText)
		if err != nil {
			resultJSON = []byte(`""`)
		}
		exec := store.ToolExecution{
			ID:           uuid.NewString(),
			SessionID:    sessionID,
			TurnNumber:   c.TurnNumber,
			ToolName:     c.ToolName,
			Parameters:   c.Arguments,
			Result:       string(resultJSON),
			Success:      c.Success,
			LatencyMs:    c.LatencyMs,
			ErrorMessage: c.ErrorText,
			Ts:           time.Now(),
		}
		if err := s.deps.Store.InsertToolExecution(ctx, exec); err != nil {
			slog.Error("insert tool execution failed", "session_id", sessionID, "tool", c.ToolName, "error", err)
		}
	}
}

func toolStatusFor(outcome toolsession.Outcome) store.ToolSessionStatus {
	if outcome.Termination == toolsession.TerminationMaxTurns && !outcome.Succeeded {
		return store.ToolSessionTimedOut
	}
	if !outcome.Succeeded {
		return store.ToolSessionFailed
	}
	return store.ToolSessionCompleted
}

func countCalls(calls []toolsession.CallRecord, success bool) int {
	n := 0
	for _, c := range calls {
		if c.Success == success {
			n++
		}
	}
	return n
}

func interModelJitterSleep() {
	ms := interModelJitterMinMs + rand.Intn(interModelJitterMaxMs-interModelJitterMinMs)
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
