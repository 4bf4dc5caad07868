package toolsession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/llmbench/internal/adapter"
	"github.com/codeready-toolchain/llmbench/internal/sandbox"
	"github.com/codeready-toolchain/llmbench/internal/task"
)

// ErrCreditExhausted marks an adapter error re-raised per spec.md §4.7 ("so
// the scheduler can synthesize a non-sentinel N/A marker") rather than
// treated as an ordinary session failure.
var ErrCreditExhausted = errors.New("toolsession: provider credit exhausted")

// TerminationReason names why the turn loop stopped (spec.md §4.7).
type TerminationReason string

const (
	TerminationSuccess      TerminationReason = "success_criteria_met"
	TerminationNoToolCalls  TerminationReason = "no_tool_calls"
	TerminationMaxTurns     TerminationReason = "max_turns_exhausted"
	TerminationAdapterError TerminationReason = "adapter_error"
)

const sessionTemperature = 0.2
const sessionMaxTokens = 2000

// Outcome is everything the scheduler needs to persist a finished session.
type Outcome struct {
	Termination    TerminationReason
	Turns          int
	Succeeded      bool
	TotalTokensIn  int
	TotalTokensOut int
	TotalLatencyMs int
	Calls          []CallRecord
	Rubric         Rubric
	Err            error
}

// Run drives one tool-task session end-to-end: allocate a sandbox,
// materialize initial files, run the turn loop from the spec's pseudocode
// verbatim in control flow, check success criteria, and compute the rubric.
func Run(ctx context.Context, mgr *sandbox.Manager, a adapter.Adapter, model string, t task.ToolTask, registry *Registry) (Outcome, error) {
	sandboxID := sessionSandboxID(model, t.Slug)
	if _, err := mgr.Create(ctx, sandboxID, t.SandboxConfig); err != nil {
		return Outcome{}, fmt.Errorf("allocate sandbox: %w", err)
	}
	defer func() { _ = mgr.Destroy(context.Background(), sandboxID) }()

	for path, content := range t.InitialFiles {
		if err := mgr.WriteFile(ctx, sandboxID, path, content); err != nil {
			return Outcome{}, fmt.Errorf("materialize initial file %q: %w", path, err)
		}
	}

	messages := []adapter.Message{
		{Role: adapter.RoleUser, Content: t.InitialMessage},
	}
	tools := registry.Definitions()

	var calls []CallRecord
	var totalTokensIn, totalTokensOut int
	currentTurn := 0
	termination := TerminationMaxTurns

	for currentTurn < t.MaxTurns {
		currentTurn++

		req := adapter.ChatRequest{
			Model:       model,
			Messages:    messages,
			Tools:       tools,
			ToolChoice:  adapter.ToolChoiceAuto,
			Temperature: sessionTemperature,
			MaxTokens:   sessionMaxTokens,
		}

		resp, err := a.Chat(ctx, req)
		if err != nil {
			if isCreditExhaustion(err) {
				return Outcome{Turns: currentTurn, Calls: calls}, fmt.Errorf("%w: %v", ErrCreditExhausted, err)
			}
			termination = TerminationAdapterError
			break
		}

		totalTokensIn += resp.TokensIn
		totalTokensOut += resp.TokensOut

		if resp.Text != "" {
			messages = append(messages, adapter.Message{Role: adapter.RoleAssistant, Content: resp.Text})
		}

		if len(resp.ToolCalls) == 0 {
			termination = TerminationNoToolCalls
			break
		}

		for _, call := range resp.ToolCalls {
			start := time.Now()
			result, execErr := registry.Execute(ctx, mgr, sandboxID, call)
			latency := int(time.Since(start).Milliseconds())

			rec := CallRecord{
				TurnNumber: currentTurn,
				ToolName:   call.Name,
				Arguments:  call.Arguments,
				Success:    execErr == nil,
				Dangerous:  errors.Is(execErr, ErrUnsafeOperation),
				LatencyMs:  latency,
				ResultText: result,
			}
			if execErr != nil {
				rec.ErrorText = execErr.Error()
			}
			calls = append(calls, rec)

			summary := result
			if execErr != nil {
				summary = fmt.Sprintf("error: %v", execErr)
			}
			messages = append(messages, adapter.Message{
				Role:    adapter.RoleUser,
				Content: fmt.Sprintf("[%s result] %s", call.Name, summary),
			})
		}

		if CheckSuccessCriteria(ctx, mgr, sandboxID, t.SuccessCriteria) {
			termination = TerminationSuccess
			break
		}
	}

	succeeded := termination == TerminationSuccess
	rubric := ComputeRubric(calls, t.ExpectedTools, len(messages), currentTurn, t.MaxTurns, registry.Size(), succeeded)

	totalLatency := 0
	for _, c := range calls {
		totalLatency += c.LatencyMs
	}

	return Outcome{
		Termination:    termination,
		Turns:          currentTurn,
		Succeeded:      succeeded,
		TotalTokensIn:  totalTokensIn,
		TotalTokensOut: totalTokensOut,
		TotalLatencyMs: totalLatency,
		Calls:          calls,
		Rubric:         rubric,
	}, nil
}

func sessionSandboxID(model, taskSlug string) string {
	return fmt.Sprintf("tool-%s-%s-%d", sanitize(model), sanitize(taskSlug), time.Now().UnixNano())
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, s)
}

// isCreditExhaustion detects provider errors that mean "out of credits",
// distinct from ordinary transient failures; re-raised rather than ending
// the session as an ordinary failure (spec.md §4.7).
func isCreditExhaustion(err error) bool {
	var aerr *adapter.Error
	if errors.As(err, &aerr) {
		return aerr.StatusCode == 402
	}
	return false
}
