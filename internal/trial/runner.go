// Package trial runs a single (model, code task) prompt round-trip and
// evaluation (C4), grounded on the teacher's sub-agent dispatch/retry
// machinery (pkg/agent/orchestrator/runner.go) and its escalating-budget
// iteration idiom (pkg/agent/controller/iterating.go), adapted from a
// tool-calling loop to a single-shot retry-with-escalation loop.
package trial

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/codeready-toolchain/llmbench/internal/adapter"
	"github.com/codeready-toolchain/llmbench/internal/scoring"
	"github.com/codeready-toolchain/llmbench/internal/task"
)

// ErrTrialFailed marks a non-retryable trial failure (spec.md §4.4 step 3,
// §4.9 "TrialFailed").
var ErrTrialFailed = errors.New("trial: failed")

const (
	minReasoningBudget = 8000
	maxBackendRetries  = 3 // exponential backoff on 429/5xx
	maxLocalRetries    = 2 // empty text/code, with escalated budget
)

// reasoningFamily matches model names belonging to a "thinking"/reasoning
// tier that needs a materially larger token budget to produce any visible
// output at all (the rest of the budget is consumed by hidden reasoning
// tokens on these families).
var reasoningFamily = regexp.MustCompile(`(?i)\b(o1|o3|o4-mini|gpt-5|r1|reasoning|thinking)\b`)

// Result is what a successful trial returns to the aggregator (spec.md §4.4
// step 7).
type Result struct {
	LatencyMs int
	Code      string
	TokensIn  int
	TokensOut int
	Metrics   map[string]float64
}

// Clock abstracts a sleep, with realClock as the wall-clock implementation.
// Run and the other functions in this package do not take a Clock.
type Clock interface {
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Run performs one full prompt round-trip plus evaluation for (model, t,
// trialNum). ev evaluates the extracted code (see evaluate.go for the
// sandbox-backed evaluator); it is an interface here so Run stays
// independently testable.
func Run(
	ctx context.Context,
	a adapter.Adapter,
	model string,
	t task.CodeTask,
	sessionID string,
	trialNum int,
	ev Evaluator,
) (*Result, error) {
	var lastErr error

	for attempt := 0; attempt <= maxLocalRetries; attempt++ {
		budget, temperature, effort := selectBudget(model, t.MaxTokens, attempt)
		sys := systemPrompt(attempt)
		user := appendNonceComment(t.Prompt, sessionID, trialNum, attempt)

		req := adapter.ChatRequest{
			Model: model,
			Messages: []adapter.Message{
				{Role: adapter.RoleSystem, Content: sys},
				{Role: adapter.RoleUser, Content: user},
			},
			Temperature:     temperature,
			MaxTokens:       budget,
			ReasoningEffort: effort,
		}

		start := time.Now()
		resp, err := chatWithBackoff(ctx, a, req)
		latencyMs := int(time.Since(start).Milliseconds())
		if err != nil {
			lastErr = err
			continue // non-retryable backend errors still get a local retry with escalated budget
		}

		code := extractCode(resp.Text, t.ExpectedSymbol)
		if strings.TrimSpace(resp.Text) == "" || strings.TrimSpace(code) == "" {
			lastErr = fmt.Errorf("%w: empty text or extracted code on attempt %d", ErrTrialFailed, attempt)
			continue
		}

		metrics, evalErr := ev.Evaluate(ctx, t, code)
		if evalErr != nil {
			lastErr = fmt.Errorf("%w: evaluate: %v", ErrTrialFailed, evalErr)
			continue
		}
		metrics["efficiency"] = scoring.Efficiency(latencyMs)

		return &Result{
			LatencyMs: latencyMs,
			Code:      code,
			TokensIn:  resp.TokensIn,
			TokensOut: resp.TokensOut,
			Metrics:   metrics,
		}, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrTrialFailed, lastErr)
}

// Evaluator runs the two-pass Python evaluation (§4.5); implemented by
// internal/trial.evaluate.go against a sandbox.Manager.
type Evaluator interface {
	Evaluate(ctx context.Context, t task.CodeTask, code string) (map[string]float64, error)
}

// selectBudget applies §4.4 step 2: reasoning-family expansion, then
// per-attempt escalation (~3x, ~4x) with upward temperature perturbation.
func selectBudget(model string, base int, attempt int) (maxTokens int, temperature float64, effort string) {
	maxTokens = base
	if reasoningFamily.MatchString(model) {
		if maxTokens < minReasoningBudget {
			maxTokens = minReasoningBudget
		}
		effort = "low"
	}

	temperature = 0.2
	switch attempt {
	case 1:
		maxTokens = int(float64(maxTokens) * 3)
		temperature = 0.4
	case 2:
		maxTokens = int(float64(maxTokens) * 4)
		temperature = 0.6
	}
	return maxTokens, temperature, effort
}

// chatWithBackoff retries the adapter call on 429/5xx with exponential
// backoff, grounded on the teacher's MCP recovery classification
// (pkg/mcp/recovery.go ClassifyError) adapted to HTTP status codes.
func chatWithBackoff(ctx context.Context, a adapter.Adapter, req adapter.ChatRequest) (adapter.ChatResponse, error) {
	var lastErr error
	backoff := 250 * time.Millisecond

	for i := 0; i < maxBackendRetries; i++ {
		resp, err := a.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var aerr *adapter.Error
		if !errors.As(err, &aerr) || !isRetryableStatus(aerr.StatusCode) {
			return adapter.ChatResponse{}, err
		}

		select {
		case <-ctx.Done():
			return adapter.ChatResponse{}, ctx.Err()
		case <-time.After(jitter(backoff)):
		}
		backoff *= 2
	}
	return adapter.ChatResponse{}, lastErr
}

func isRetryableStatus(status int) bool {
	return status == 429 || status >= 500
}

func jitter(d time.Duration) time.Duration {
	//nolint:gosec // jitter timing, not a security-relevant random value
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

var fencedBlockRE = regexp.MustCompile("(?s)```(?:python)?\\s*\\n(.*?)```")
var defOrClassRE = regexp.MustCompile(`(?m)^(def|class)\s`)

// extractCode implements §4.4 step 4: prefer the longest fenced code block,
// else strip to the first def/class symbol.
func extractCode(text, expectedSymbol string) string {
	matches := fencedBlockRE.FindAllStringSubmatch(text, -1)
	best := ""
	for _, m := range matches {
		if len(m[1]) > len(best) {
			best = m[1]
		}
	}
	if strings.TrimSpace(best) != "" {
		return strings.TrimSpace(best)
	}

	loc := defOrClassRE.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[loc[0]:])
}
