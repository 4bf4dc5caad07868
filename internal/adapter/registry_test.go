package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetReturnsRegisteredMock(t *testing.T) {
	r := NewRegistry()
	mock := NewMockAdapter("mock-model")
	r.RegisterMock("anthropic", mock)

	got, err := r.Get(context.Background(), "anthropic")
	require.NoError(t, err)
	assert.Same(t, Adapter(mock), got)
}

func TestRegistry_GetUnknownVendorWithNoKeyFails(t *testing.T) {
	r := NewRegistry()
	t.Setenv("OTHER_API_KEY", "")
	_, err := r.Get(context.Background(), "other")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestApiKeyEnvVar_GoogleSpecialCase(t *testing.T) {
	assert.Equal(t, "GEMINI_API_KEY", apiKeyEnvVar("google"))
	assert.Equal(t, "ANTHROPIC_API_KEY", apiKeyEnvVar("anthropic"))
}

func TestMockAdapter_ChatEchoesLastUserMessage(t *testing.T) {
	m := NewMockAdapter()
	resp, err := m.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "hello")
}
