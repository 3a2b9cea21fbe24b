package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeJSONLFixture(t *testing.T, rows []map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, row := range rows {
		require.NoError(t, enc.Encode(row))
	}
	return path
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, "docs")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ImportJSONL_AddsKeyColumn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := writeJSONLFixture(t, []map[string]any{
		{"text": "hello"},
		{"text": "world"},
	})
	require.NoError(t, s.ImportJSONL(ctx, path))

	has, err := s.HasColumn(ctx, "_key")
	require.NoError(t, err)
	require.True(t, has)

	count, err := s.RowCount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestStore_ImportJSONL_PreservesExistingKeyColumn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := writeJSONLFixture(t, []map[string]any{
		{"text": "hello", "_key": 42},
	})
	require.NoError(t, s.ImportJSONL(ctx, path))

	cols, err := s.Columns(ctx)
	require.NoError(t, err)
	require.Contains(t, cols, "_key")

	batch, err := s.FetchBatch(ctx, "text", 0, 10)
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, batch.Keys)
}

func TestStore_Columns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := writeJSONLFixture(t, []map[string]any{{"text": "a", "title": "b"}})
	require.NoError(t, s.ImportJSONL(ctx, path))

	cols, err := s.Columns(ctx)
	require.NoError(t, err)
	require.Contains(t, cols, "text")
	require.Contains(t, cols, "title")
	require.Contains(t, cols, "_key")
}

func TestStore_HasColumn_UnknownColumn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := writeJSONLFixture(t, []map[string]any{{"text": "a"}})
	require.NoError(t, s.ImportJSONL(ctx, path))

	has, err := s.HasColumn(ctx, "nonexistent")
	require.NoError(t, err)
	require.False(t, has)
}

func TestStore_FetchBatch_OrdersByKeyAndPaginates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := writeJSONLFixture(t, []map[string]any{
		{"text": "one"}, {"text": "two"}, {"text": "three"},
	})
	require.NoError(t, s.ImportJSONL(ctx, path))

	first, err := s.FetchBatch(ctx, "text", 0, 2)
	require.NoError(t, err)
	require.Len(t, first.Keys, 2)

	second, err := s.FetchBatch(ctx, "text", 2, 2)
	require.NoError(t, err)
	require.Len(t, second.Keys, 1)
	require.Less(t, first.Keys[0], first.Keys[1])
	require.Less(t, first.Keys[1], second.Keys[0])

	third, err := s.FetchBatch(ctx, "text", 3, 2)
	require.NoError(t, err)
	require.Empty(t, third.Keys)
}

func TestStore_FetchByKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	path := writeJSONLFixture(t, []map[string]any{
		{"text": "one"}, {"text": "two"}, {"text": "three"},
	})
	require.NoError(t, s.ImportJSONL(ctx, path))

	batch, err := s.FetchBatch(ctx, "text", 0, 3)
	require.NoError(t, err)

	content, err := s.FetchByKeys(ctx, "text", []uint64{batch.Keys[0], batch.Keys[2]})
	require.NoError(t, err)
	require.Len(t, content, 2)
	require.Equal(t, batch.Texts[0], content[batch.Keys[0]])
	require.Equal(t, batch.Texts[2], content[batch.Keys[2]])
}

func TestStore_FetchByKeys_Empty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	out, err := s.FetchByKeys(ctx, "text", nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestStore_ImportParquet_Pattern(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.ImportParquet(ctx, filepath.Join(t.TempDir(), "missing", "*.parquet"))
	require.Error(t, err)
}
