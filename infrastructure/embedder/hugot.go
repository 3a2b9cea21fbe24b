// Package embedder provides local neural embedding backends satisfying the
// domain/embed.Embedder capability.
package embedder

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/vexcore/vexel/domain/embed"
)

// hugotBatchMax bounds the number of texts sent to the pipeline in one
// RunPipeline call; callers (Collection.embed_column) are expected to chunk
// larger batches themselves, but PredictF32/PredictF16 also chunk internally
// so a caller-chosen batch size larger than this still works.
const hugotBatchMax = 64

// ortSingleton holds the process-wide ONNX Runtime session and pipeline.
// ORT only allows one active session per process, so all HugotEmbedder
// instances must share it. The mutex serializes both initialization and
// inference (ORT is not thread-safe).
var ortSingleton struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.Mutex
	ready    bool
	dim      int
}

// HugotEmbedder embeds text locally via the hugot Go ONNX Runtime backend.
// It always produces f32 vectors natively (output_dtype is DTypeF32);
// PredictF16 truncates the f32 output rather than running a second graph.
//
// The model can come from two sources (checked in order):
//  1. Model files on disk — a subdirectory of cacheDir containing tokenizer.json.
//  2. Statically embedded in the binary (build tag embed_model), extracted to
//     cacheDir on first use.
//
// All instances share a single ONNX Runtime session because ORT only
// supports one active session per process.
type HugotEmbedder struct {
	cacheDir string
}

var _ embed.Embedder = (*HugotEmbedder)(nil)

// NewHugotEmbedder creates a HugotEmbedder that looks for model files in cacheDir.
func NewHugotEmbedder(cacheDir string) *HugotEmbedder {
	return &HugotEmbedder{cacheDir: cacheDir}
}

// Available reports whether a usable model exists — either compiled into
// the binary (embed_model build tag) or present on disk in cacheDir.
func (h *HugotEmbedder) Available() bool {
	if hasEmbeddedModel {
		return true
	}
	_, err := h.diskModelPath()
	return err == nil
}

func (h *HugotEmbedder) initialize() error {
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	if ortSingleton.ready {
		return nil
	}

	session, err := newHugotSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}

	modelPath, err := h.resolveModelPath()
	if err != nil {
		_ = session.Destroy()
		return err
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "vexel-embeddings",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	ortSingleton.session = session
	ortSingleton.pipeline = pipeline
	ortSingleton.ready = true
	return nil
}

// resolveModelPath returns the path to a usable model directory.
// It first checks for model files already on disk in cacheDir, then
// falls back to extracting the statically embedded model (if compiled in).
func (h *HugotEmbedder) resolveModelPath() (string, error) {
	if diskPath, err := h.diskModelPath(); err == nil {
		return diskPath, nil
	}

	if !hasEmbeddedModel {
		return "", fmt.Errorf("no model found in %s and no embedded model compiled in (build with -tags embed_model)", h.cacheDir)
	}

	if err := os.MkdirAll(h.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	return extractEmbeddedModel(embeddedModelFS, h.cacheDir)
}

// diskModelPath looks for a model subdirectory containing tokenizer.json
// inside cacheDir. Returns the path if found, or an error if no valid
// model directory exists on disk.
func (h *HugotEmbedder) diskModelPath() (string, error) {
	entries, err := os.ReadDir(h.cacheDir)
	if err != nil {
		return "", fmt.Errorf("read model directory %s: %w", h.cacheDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(h.cacheDir, entry.Name())
		if _, statErr := os.Stat(filepath.Join(candidate, "tokenizer.json")); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no model subdirectory with tokenizer.json found in %s", h.cacheDir)
}

// extractEmbeddedModel writes the statically embedded model files to targetDir
// and returns the path to the model subdirectory.
func extractEmbeddedModel(embedded fs.FS, targetDir string) (string, error) {
	modelsFS, err := fs.Sub(embedded, "models")
	if err != nil {
		return "", fmt.Errorf("access embedded models: %w", err)
	}

	entries, err := fs.ReadDir(modelsFS, ".")
	if err != nil {
		return "", fmt.Errorf("read embedded models: %w", err)
	}

	var modelSubdir string
	for _, entry := range entries {
		if entry.IsDir() {
			modelSubdir = entry.Name()
			break
		}
	}
	if modelSubdir == "" {
		return "", fmt.Errorf("no model directory found in embedded models")
	}

	modelPath := filepath.Join(targetDir, modelSubdir)

	if _, statErr := os.Stat(filepath.Join(modelPath, "tokenizer.json")); statErr == nil {
		return modelPath, nil
	}

	modelFS, err := fs.Sub(modelsFS, modelSubdir)
	if err != nil {
		return "", fmt.Errorf("access model subdirectory: %w", err)
	}

	err = fs.WalkDir(modelFS, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		target := filepath.Join(modelPath, path)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, readErr := fs.ReadFile(modelFS, path)
		if readErr != nil {
			return fmt.Errorf("read embedded file %s: %w", path, readErr)
		}
		if mkdirErr := os.MkdirAll(filepath.Dir(target), 0o755); mkdirErr != nil {
			return fmt.Errorf("create directory for %s: %w", path, mkdirErr)
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("extract embedded model: %w", err)
	}

	return modelPath, nil
}

// OutputDtype always reports f32: the hugot pipeline runs in single
// precision natively.
func (h *HugotEmbedder) OutputDtype() embed.DType { return embed.DTypeF32 }

// OutputDim returns the fixed embedding dimensionality, initializing the
// model and probing it with a single token if the dimension is not yet
// known. Hugot does not expose hidden_size without running the graph once.
func (h *HugotEmbedder) OutputDim() int {
	if err := h.initialize(); err != nil {
		return 0
	}
	ortSingleton.mu.Lock()
	dim := ortSingleton.dim
	ortSingleton.mu.Unlock()
	if dim > 0 {
		return dim
	}

	rows, err := h.PredictF32(context.Background(), []string{"."})
	if err != nil || len(rows) == 0 {
		return 0
	}

	ortSingleton.mu.Lock()
	ortSingleton.dim = len(rows[0])
	ortSingleton.mu.Unlock()
	return len(rows[0])
}

// PredictF32 embeds batch in single precision, chunking internally at
// hugotBatchMax texts per underlying pipeline call.
func (h *HugotEmbedder) PredictF32(ctx context.Context, batch []string) ([][]float32, error) {
	if len(batch) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := h.initialize(); err != nil {
		return nil, fmt.Errorf("initialize hugot: %w", err)
	}

	out := make([][]float32, 0, len(batch))
	for offset := 0; offset < len(batch); offset += hugotBatchMax {
		end := offset + hugotBatchMax
		if end > len(batch) {
			end = len(batch)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk, err := h.runChunk(batch[offset:end])
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (h *HugotEmbedder) runChunk(texts []string) ([][]float32, error) {
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	result, err := ortSingleton.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}

	out := make([][]float32, len(result.Embeddings))
	copy(out, result.Embeddings)
	if ortSingleton.dim == 0 && len(out) > 0 {
		ortSingleton.dim = len(out[0])
	}
	return out, nil
}

// PredictF16 embeds batch by running the native f32 pipeline then
// truncating each component to half precision.
func (h *HugotEmbedder) PredictF16(ctx context.Context, batch []string) ([][]uint16, error) {
	rows, err := h.PredictF32(ctx, batch)
	if err != nil {
		return nil, err
	}
	out := make([][]uint16, len(rows))
	for i, row := range rows {
		narrow := make([]uint16, len(row))
		for j, v := range row {
			narrow[j] = float32ToFloat16Bits(v)
		}
		out[i] = narrow
	}
	return out, nil
}

// Close is a no-op. The ONNX Runtime session is process-global and shared
// across all HugotEmbedder instances; it is cleaned up when the process exits.
func (h *HugotEmbedder) Close() error {
	return nil
}
