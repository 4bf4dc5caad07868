package adapter

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter is a deterministic in-memory adapter used by tests. It never
// calls out to a network.
type MockAdapter struct {
	models []string
	// Responder optionally overrides the default echo behavior per request.
	Responder func(req ChatRequest) ChatResponse
}

func NewMockAdapter(models ...string) *MockAdapter {
	if len(models) == 0 {
		models = []string{"mock-model"}
	}
	return &MockAdapter{models: models}
}

func (m *MockAdapter) ListModels(_ context.Context) ([]string, error) {
	out := make([]string, len(m.models))
	copy(out, m.models)
	return out, nil
}

func (m *MockAdapter) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	if m.Responder != nil {
		return m.Responder(req), nil
	}
	var last string
	for _, msg := range req.Messages {
		if msg.Role == RoleUser {
			last = msg.Content
		}
	}
	return ChatResponse{
		Text:      fmt.Sprintf("```python\ndef solution():\n    return %q\n```", strings.TrimSpace(last)),
		TokensIn:  len(last) / 4,
		TokensOut: 20,
	}, nil
}
