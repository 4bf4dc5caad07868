package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newRunningHandle(id string) *Handle {
	return &Handle{
		ID:        id,
		State:     StateRunning,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestDestroy_IsIdempotent(t *testing.T) {
	m := NewManager()
	h := newRunningHandle("box-1")
	m.put(h)

	assert.NoError(t, m.Destroy(context.Background(), "box-1"))
	assert.NoError(t, m.Destroy(context.Background(), "box-1"), "destroying an already-stopped sandbox must succeed")

	got, err := m.get("box-1")
	assert.NoError(t, err)
	assert.Equal(t, StateStopped, got.State)
}

func TestDestroy_UnknownIDSucceeds(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.Destroy(context.Background(), "never-existed"))
}

func TestExec_AfterDestroyFailsWithErrNotRunning(t *testing.T) {
	m := NewManager()
	h := newRunningHandle("box-2")
	m.put(h)

	require := assert.New(t)
	require.NoError(m.Destroy(context.Background(), "box-2"))

	_, err := m.Exec(context.Background(), "box-2", []string{"true"})
	require.Error(err)
	require.True(errors.Is(err, ErrNotRunning))
	require.False(errors.Is(err, ErrSandboxNotFound))
}

func TestExec_UnknownIDFailsWithErrSandboxNotFound(t *testing.T) {
	m := NewManager()
	_, err := m.Exec(context.Background(), "never-existed", []string{"true"})
	assert.True(t, errors.Is(err, ErrSandboxNotFound))
}
