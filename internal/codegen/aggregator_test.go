package codegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/llmbench/internal/adapter"
	"github.com/codeready-toolchain/llmbench/internal/task"
)

func TestSelectTasks_CapsAtK(t *testing.T) {
	catalog := task.Builtin()
	selected := selectTasks(catalog, 2)
	assert.Len(t, selected, 2)
}

func TestSelectTasks_ReturnsEverythingWhenCatalogSmallerThanK(t *testing.T) {
	catalog := &task.Catalog{CodeTasks: map[string]task.CodeTask{
		"a": {Slug: "a"},
		"b": {Slug: "b"},
	}}
	selected := selectTasks(catalog, 7)
	assert.Len(t, selected, 2)
}

func TestMeanAcrossTasks_AveragesEachAxis(t *testing.T) {
	got := meanAcrossTasks([]map[string]float64{
		{"correctness": 1.0, "efficiency": 0.5},
		{"correctness": 0.0, "efficiency": 1.0},
	})
	assert.InDelta(t, 0.5, got["correctness"], 1e-9)
	assert.InDelta(t, 0.75, got["efficiency"], 1e-9)
}

func TestCanary_SucceedsOnNonEmptyResponse(t *testing.T) {
	mock := adapter.NewMockAdapter("m")
	mock.Responder = func(req adapter.ChatRequest) adapter.ChatResponse {
		return adapter.ChatResponse{Text: "ready"}
	}
	require.NoError(t, canary(context.Background(), mock, "m"))
}

func TestCanary_FailsAfterRepeatedEmptyResponses(t *testing.T) {
	mock := adapter.NewMockAdapter("m")
	mock.Responder = func(req adapter.ChatRequest) adapter.ChatResponse {
		return adapter.ChatResponse{Text: ""}
	}
	err := canary(context.Background(), mock, "m")
	assert.Error(t, err)
}

func TestShortHash_DeterministicAndNeverEmpty(t *testing.T) {
	a := shortHash("def f(): pass")
	b := shortHash("def f(): pass")
	c := shortHash("def g(): pass")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEmpty(t, a)
}
