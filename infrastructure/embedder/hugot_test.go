package embedder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/vexcore/vexel/domain/embed"
)

func TestHugotEmbedder_PredictF32(t *testing.T) {
	if !hasEmbeddedModel {
		t.Skip("skipping: requires -tags embed_model")
	}

	emb := NewHugotEmbedder(t.TempDir())
	defer func() { require.NoError(t, emb.Close()) }()

	rows, err := emb.PredictF32(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, emb.OutputDim(), len(rows[0]))
}

func TestHugotEmbedder_PredictF32_ChunksLargeBatches(t *testing.T) {
	if !hasEmbeddedModel {
		t.Skip("skipping: requires -tags embed_model")
	}

	emb := NewHugotEmbedder(t.TempDir())
	defer func() { require.NoError(t, emb.Close()) }()

	texts := make([]string, hugotBatchMax*2+3)
	for i := range texts {
		texts[i] = "test sentence number"
	}

	rows, err := emb.PredictF32(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, rows, len(texts))
	dim := emb.OutputDim()
	for i, row := range rows {
		require.Equal(t, dim, len(row), "embedding %d has wrong dimension", i)
	}
}

func TestHugotEmbedder_PredictF16_NarrowsFromF32(t *testing.T) {
	if !hasEmbeddedModel {
		t.Skip("skipping: requires -tags embed_model")
	}

	emb := NewHugotEmbedder(t.TempDir())
	defer func() { require.NoError(t, emb.Close()) }()

	rows, err := emb.PredictF16(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, emb.OutputDim(), len(rows[0]))
}

func TestHugotEmbedder_PredictF32_Empty(t *testing.T) {
	emb := NewHugotEmbedder(t.TempDir())
	defer func() { require.NoError(t, emb.Close()) }()

	rows, err := emb.PredictF32(context.Background(), []string{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestHugotEmbedder_Close(t *testing.T) {
	emb := NewHugotEmbedder(t.TempDir())

	require.NoError(t, emb.Close())
	require.NoError(t, emb.Close())
}

func TestHugotEmbedder_OutputDtypeIsF32(t *testing.T) {
	emb := NewHugotEmbedder(t.TempDir())
	require.Equal(t, embed.DTypeF32, emb.OutputDtype())
}

func TestExtractEmbeddedModel(t *testing.T) {
	fakeFS := fstest.MapFS{
		"models/test-model/tokenizer.json":  {Data: []byte(`{"test": true}`)},
		"models/test-model/config.json":     {Data: []byte(`{"hidden_size": 768}`)},
		"models/test-model/onnx/model.onnx": {Data: []byte("fake-onnx-data")},
	}

	targetDir := t.TempDir()
	modelPath, err := extractEmbeddedModel(fakeFS, targetDir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(targetDir, "test-model"), modelPath)

	data, err := os.ReadFile(filepath.Join(modelPath, "tokenizer.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"test": true`)

	data, err = os.ReadFile(filepath.Join(modelPath, "onnx", "model.onnx"))
	require.NoError(t, err)
	require.Equal(t, "fake-onnx-data", string(data))

	modelPath2, err := extractEmbeddedModel(fakeFS, targetDir)
	require.NoError(t, err)
	require.Equal(t, modelPath, modelPath2)
}

func TestExtractEmbeddedModel_NoModelDir(t *testing.T) {
	emptyFS := fstest.MapFS{
		"models/.gitkeep": {Data: []byte("")},
	}

	targetDir := t.TempDir()
	_, err := extractEmbeddedModel(emptyFS, targetDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no model directory found")
}

func TestHugotEmbedder_DiskModelPath(t *testing.T) {
	modelDir := t.TempDir()

	emb := NewHugotEmbedder(modelDir)
	_, err := emb.diskModelPath()
	require.Error(t, err)

	subdir := filepath.Join(modelDir, "my-model")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(subdir, "tokenizer.json"), []byte(`{}`), 0o644))

	got, err := emb.diskModelPath()
	require.NoError(t, err)
	require.Equal(t, subdir, got)
}

func TestHugotEmbedder_AvailableWithDiskModel(t *testing.T) {
	modelDir := t.TempDir()
	emb := NewHugotEmbedder(modelDir)

	if !hasEmbeddedModel {
		require.False(t, emb.Available())
	}

	subdir := filepath.Join(modelDir, "test-model")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(subdir, "tokenizer.json"), []byte(`{}`), 0o644))

	require.True(t, emb.Available())
}

func TestHugotEmbedder_DiskModelPath_SkipsFiles(t *testing.T) {
	modelDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "README.md"), []byte("readme"), 0o644))

	emb := NewHugotEmbedder(modelDir)
	_, err := emb.diskModelPath()
	require.Error(t, err)
}

func TestHugotEmbedder_DiskModelPath_SkipsDirWithoutTokenizer(t *testing.T) {
	modelDir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(modelDir, "incomplete-model"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "incomplete-model", "config.json"), []byte(`{}`), 0o644))

	emb := NewHugotEmbedder(modelDir)
	_, err := emb.diskModelPath()
	require.Error(t, err)
}

func TestHugotEmbedder_CancelledContext(t *testing.T) {
	emb := NewHugotEmbedder(t.TempDir())
	defer func() { require.NoError(t, emb.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := emb.PredictF32(ctx, []string{"hello"})
	require.Error(t, err)
}
