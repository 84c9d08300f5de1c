package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSession(root string) SessionRecord {
	return SessionRecord{
		RootPath:       root,
		ModelName:      "qwen3:30b-a3b",
		TotalSizeBytes: 18 << 30,
		TensorCount:    483,
		TraceCount:     2,
	}
}

func sampleTraces(id string) []TraceRecord {
	return []TraceRecord{
		{SessionID: id, Token: 0, Path: "traces/token-00000.json", Entries: 120, DurationMS: 95.5, DiskEntries: 40, ExpertEntries: 24},
		{SessionID: id, Token: 1, Path: "traces/token-00001.json", Entries: 80, DurationMS: 60.0, DiskEntries: 20, ExpertEntries: 24},
	}
}

func TestIndexAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.IndexSession(ctx, sampleSession("/data/run-a"), sampleTraces(""))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, ok, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/data/run-a", rec.RootPath)
	assert.Equal(t, "qwen3:30b-a3b", rec.ModelName)
	assert.Equal(t, uint64(18<<30), rec.TotalSizeBytes)
	assert.Equal(t, 483, rec.TensorCount)
	assert.False(t, rec.IndexedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.GetSession(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReindexKeepsID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.IndexSession(ctx, sampleSession("/data/run-a"), sampleTraces(""))
	require.NoError(t, err)

	updated := sampleSession("/data/run-a")
	updated.TraceCount = 5
	second, err := s.IndexSession(ctx, updated, sampleTraces("")[:1])
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rec, ok, err := s.FindByRoot(ctx, "/data/run-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, rec.TraceCount)

	traces, err := s.SessionTraces(ctx, first)
	require.NoError(t, err)
	assert.Len(t, traces, 1, "re-index should replace trace rows")
}

func TestListSessionsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := sampleSession("/data/run-old")
	older.IndexedAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleSession("/data/run-new")
	newer.IndexedAt = time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	_, err := s.IndexSession(ctx, older, nil)
	require.NoError(t, err)
	_, err = s.IndexSession(ctx, newer, nil)
	require.NoError(t, err)

	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "/data/run-new", list[0].RootPath)
	assert.Equal(t, "/data/run-old", list[1].RootPath)
}

func TestSessionTracesOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	traces := []TraceRecord{
		{Token: 3, Path: "traces/token-00003.json", Entries: 10},
		{Token: 0, Path: "traces/token-00000.json", Entries: 12},
		{Token: 1, Path: "traces/token-00001.json", Entries: 9},
	}
	id, err := s.IndexSession(ctx, sampleSession("/data/run-a"), traces)
	require.NoError(t, err)

	got, err := s.SessionTraces(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[0].Token)
	assert.Equal(t, 1, got[1].Token)
	assert.Equal(t, 3, got[2].Token)
	for _, tr := range got {
		assert.Equal(t, id, tr.SessionID)
	}
}

func TestDeleteSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.IndexSession(ctx, sampleSession("/data/run-a"), sampleTraces(""))
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, id))

	_, ok, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	traces, err := s.SessionTraces(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, traces)
}
