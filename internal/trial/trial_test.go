package trial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/llmbench/internal/adapter"
	"github.com/codeready-toolchain/llmbench/internal/task"
)

func TestExtractCode_PrefersLongestFencedBlock(t *testing.T) {
	text := "Here is a short one:\n```python\ndef f(): pass\n```\nand a longer one:\n```python\ndef is_palindrome(s):\n    return s == s[::-1]\n```\n"
	got := extractCode(text, "is_palindrome")
	assert.Contains(t, got, "def is_palindrome")
}

func TestExtractCode_FallsBackToDefSymbol(t *testing.T) {
	text := "Sure, here's the solution:\ndef fizzbuzz_range(n):\n    return []\n"
	got := extractCode(text, "fizzbuzz_range")
	assert.Equal(t, "def fizzbuzz_range(n):\n    return []", got)
}

func TestSelectBudget_ReasoningFamilyGetsExpandedBudget(t *testing.T) {
	maxTokens, _, effort := selectBudget("o3-mini", 512, 0)
	assert.GreaterOrEqual(t, maxTokens, minReasoningBudget)
	assert.Equal(t, "low", effort)
}

func TestSelectBudget_EscalatesAcrossAttempts(t *testing.T) {
	base, _, _ := selectBudget("claude-haiku", 100, 0)
	second, temp2, _ := selectBudget("claude-haiku", 100, 1)
	third, temp3, _ := selectBudget("claude-haiku", 100, 2)
	assert.Equal(t, 100, base)
	assert.Equal(t, 300, second)
	assert.Equal(t, 400, third)
	assert.Greater(t, temp2, 0.2)
	assert.Greater(t, temp3, temp2)
}

func TestQualityScore_RewardsStructureAndPenalizesLambda(t *testing.T) {
	good := `def is_palindrome(s: str) -> bool:
    """Return True if s is a palindrome."""
    # normalize before comparing
    cleaned = [c.lower() for c in s if c.isalnum()]
    if not cleaned:
        return True
    return cleaned == cleaned[::-1]
`
	bad := "f = lambda x: x"
	assert.Greater(t, qualityScore(good), qualityScore(bad))
}

func TestNonce_VariesByAttemptAndTrial(t *testing.T) {
	a := nonce("sess-1", 0, 0)
	b := nonce("sess-1", 0, 1)
	c := nonce("sess-1", 1, 0)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

type stubEvaluator struct {
	metrics map[string]float64
	err     error
}

func (s stubEvaluator) Evaluate(ctx context.Context, t task.CodeTask, code string) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]float64, len(s.metrics))
	for k, v := range s.metrics {
		out[k] = v
	}
	return out, nil
}

func TestRun_SucceedsOnFirstAttempt(t *testing.T) {
	mock := adapter.NewMockAdapter("mock-model")
	mock.Responder = func(req adapter.ChatRequest) adapter.ChatResponse {
		return adapter.ChatResponse{
			Text:      "```python\ndef is_palindrome(s):\n    return s == s[::-1]\n```",
			TokensIn:  50,
			TokensOut: 20,
		}
	}

	tk := task.Builtin().CodeTasks["py/is_palindrome"]
	ev := stubEvaluator{metrics: map[string]float64{"correctness": 1, "complexity": 0.3, "codeQuality": 0.6, "edgeCases": 1, "debugging": 1, "stability": 1}}

	result, err := Run(context.Background(), mock, "mock-model", tk, "sess-1", 0, ev)
	require.NoError(t, err)
	assert.Contains(t, result.Code, "def is_palindrome")
	assert.Contains(t, result.Metrics, "efficiency")
}

func TestRun_RetriesOnEmptyTextThenFails(t *testing.T) {
	mock := adapter.NewMockAdapter("mock-model")
	mock.Responder = func(req adapter.ChatRequest) adapter.ChatResponse {
		return adapter.ChatResponse{Text: ""}
	}
	tk := task.Builtin().CodeTasks["py/is_palindrome"]
	ev := stubEvaluator{}

	_, err := Run(context.Background(), mock, "mock-model", tk, "sess-1", 0, ev)
	assert.ErrorIs(t, err, ErrTrialFailed)
}
