package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/llmbench/internal/store"
)

func TestCanonicalKey_ReplacesDisallowedCharacters(t *testing.T) {
	k := canonicalKey(Key{Period: "7 days", SortBy: "score/desc", AnalyticsPeriod: "30d"})
	assert.Equal(t, "7_days_score_desc_30d", k)
}

func TestGet_MissThenHitReturnsByteIdenticalData(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "v1", "build-1", time.Minute)

	calls := 0
	compute := func(ctx context.Context, key Key) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{"rank":1}`), nil
	}

	key := Key{Period: "24h", SortBy: "score", AnalyticsPeriod: "7d"}

	first, err := c.Get(context.Background(), key, compute)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Get(context.Background(), key, compute)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.JSONEq(t, string(first.Data), string(second.Data))
	assert.Equal(t, 1, calls, "compute must run exactly once across both calls")
}

func TestGet_FileTierServesAfterMemoryTierIsCleared(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "v1", "build-1", time.Minute)
	key := Key{Period: "24h", SortBy: "score", AnalyticsPeriod: "7d"}

	compute := func(ctx context.Context, key Key) (json.RawMessage, error) {
		return json.RawMessage(`{"rank":1}`), nil
	}
	_, err := c.Get(context.Background(), key, compute)
	require.NoError(t, err)

	c.mu.Lock()
	c.memory = make(map[string]entry)
	c.mu.Unlock()

	res, err := c.Get(context.Background(), key, func(ctx context.Context, key Key) (json.RawMessage, error) {
		t.Fatal("compute should not run when the file tier has a fresh entry")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, res.Cached)
}

func TestGet_SchemaMismatchInFileTierForcesRecompute(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "v1", "build-1", time.Minute)
	key := Key{Period: "24h", SortBy: "score", AnalyticsPeriod: "7d"}

	_, err := c.Get(context.Background(), key, func(ctx context.Context, key Key) (json.RawMessage, error) {
		return json.RawMessage(`{"rank":1}`), nil
	})
	require.NoError(t, err)

	c.mu.Lock()
	c.memory = make(map[string]entry)
	c.mu.Unlock()

	c2 := New(dir, "v2", "build-1", time.Minute)
	calls := 0
	res, err := c2.Get(context.Background(), key, func(ctx context.Context, key Key) (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{"rank":2}`), nil
	})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, calls)
}

func TestPurge_ClearsMemoryAndDeletesFiles(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "v1", "build-1", time.Minute)
	key := Key{Period: "24h", SortBy: "score", AnalyticsPeriod: "7d"}

	_, err := c.Get(context.Background(), key, func(ctx context.Context, key Key) (json.RawMessage, error) {
		return json.RawMessage(`{"rank":1}`), nil
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	require.NoError(t, c.Purge())

	c.mu.RLock()
	assert.Empty(t, c.memory)
	c.mu.RUnlock()

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInvalidateSuite_PurgesCache(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "v1", "build-1", time.Minute)
	key := Key{Period: "24h", SortBy: "score", AnalyticsPeriod: "7d"}

	_, err := c.Get(context.Background(), key, func(ctx context.Context, key Key) (json.RawMessage, error) {
		return json.RawMessage(`{"rank":1}`), nil
	})
	require.NoError(t, err)

	c.InvalidateSuite(store.SuiteHourly)

	c.mu.RLock()
	assert.Empty(t, c.memory)
	c.mu.RUnlock()
}
