// Package collection implements the Collection lifecycle: the columnar
// table plus per-column vector indices, import, embed, and search
// operations described by the core contract.
package collection

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/vexcore/vexel/domain/collection"
	"github.com/vexcore/vexel/domain/embed"
	"github.com/vexcore/vexel/domain/vector"
	"github.com/vexcore/vexel/infrastructure/ann"
	"github.com/vexcore/vexel/infrastructure/storage"
	"github.com/vexcore/vexel/internal/apperr"
)

const (
	configFileName = "config.json"
	dbFileName     = "data.db"
	indexSubdir    = "index"
)

// Predictor is the subset of ModelRegistry a Collection needs, kept as an
// interface here so application/collection does not import
// application/registry (avoiding an import cycle with the facade).
type Predictor interface {
	Predict(ctx context.Context, handle uint64, batch []string) (embed.Embeddings, error)
	OutputDim(handle uint64) (int, error)
	OutputDtype(handle uint64) (embed.DType, error)
}

// Collection owns one columnar table, its row-key sequence, and a map of
// column name to VectorIndex. Read operations (Search) take the read lock;
// mutations (ImportJSONL/ImportParquet/EmbedColumn) take the write lock.
type Collection struct {
	mu sync.RWMutex

	name    string
	rootDir string
	cfg     collection.Config
	store   *storage.Store

	indexMu sync.RWMutex
	indexes map[string]vector.Index
}

func collectionDir(root, name string) string {
	return filepath.Join(root, name)
}

// New creates the on-disk directory structure for a collection, initializes
// its columnar database, and writes config.json. Fails with AlreadyExists
// if the directory exists and overwrite is false.
func New(root string, cfg collection.Config, overwrite bool) (*Collection, error) {
	dir := collectionDir(root, cfg.Name)

	if _, err := os.Stat(dir); err == nil {
		if !overwrite {
			return nil, apperr.Wrap(apperr.ErrAlreadyExists, "collection %s", cfg.Name)
		}
		if err := os.RemoveAll(dir); err != nil {
			return nil, apperr.Wrap(apperr.ErrIoError, "remove existing collection dir %s: %v", dir, err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.ErrIoError, "create collection dir %s: %v", dir, err)
	}

	cfg.DBPath = dbFileName
	cfg.IndexDir = indexSubdir

	store, err := storage.Open(filepath.Join(dir, cfg.DBPath), cfg.Name)
	if err != nil {
		return nil, err
	}

	if err := writeConfig(dir, cfg); err != nil {
		store.Close()
		return nil, err
	}

	return &Collection{
		name:    cfg.Name,
		rootDir: dir,
		cfg:     cfg,
		store:   store,
		indexes: make(map[string]vector.Index),
	}, nil
}

// Load reads config.json, opens the database, and loads the VectorIndex for
// every indexed column whose on-disk file exists. A missing index file for
// a listed column is tolerated (the column is treated as not-yet-embedded).
func Load(root, name string) (*Collection, error) {
	dir := collectionDir(root, name)

	cfg, err := readConfig(dir)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(filepath.Join(dir, cfg.DBPath), cfg.Name)
	if err != nil {
		return nil, err
	}

	c := &Collection{
		name:    cfg.Name,
		rootDir: dir,
		cfg:     cfg,
		store:   store,
		indexes: make(map[string]vector.Index),
	}

	for _, col := range cfg.IndexColumns {
		colDir := filepath.Join(dir, cfg.IndexDir, col)
		if _, statErr := os.Stat(filepath.Join(colDir, "index.bin")); statErr != nil {
			continue
		}
		idx := &ann.UsearchIndex{}
		if err := idx.Load(colDir); err != nil {
			store.Close()
			return nil, err
		}
		c.indexes[col] = idx
	}

	return c, nil
}

func writeConfig(dir string, cfg collection.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.ErrCorruptConfig, "marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFileName), data, 0o644); err != nil {
		return apperr.Wrap(apperr.ErrIoError, "write config.json: %v", err)
	}
	return nil
}

func readConfig(dir string) (collection.Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if err != nil {
		return collection.Config{}, apperr.Wrap(apperr.ErrUnknownCollection, "read config.json in %s: %v", dir, err)
	}
	var cfg collection.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return collection.Config{}, apperr.Wrap(apperr.ErrCorruptConfig, "parse config.json in %s: %v", dir, err)
	}
	return cfg, nil
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// Config returns a copy of the collection's persisted configuration.
func (c *Collection) Config() collection.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// RequestedEmbedders returns the (path, variant) pairs this collection needs
// loaded in the ModelRegistry.
func (c *Collection) RequestedEmbedders() [][2]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return [][2]string{{c.cfg.ModelName, c.cfg.ModelVariant}}
}

// ImportJSONL bulk-loads path (glob allowed) and ensures the _key column.
func (c *Collection) ImportJSONL(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.ImportJSONL(ctx, path)
}

// ImportParquet bulk-loads path (glob allowed) and ensures the _key column.
func (c *Collection) ImportParquet(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.ImportParquet(ctx, path)
}

// EmbedColumn embeds column in batches of batchSize rows, building (or
// rebuilding into) its VectorIndex, saving once all batches are applied.
// The write lock is held for the whole operation, matching the simpler,
// spec-pinned model that serializes embed_column calls for a collection.
func (c *Collection) EmbedColumn(ctx context.Context, column string, batchSize int, pred Predictor, handle uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok, err := c.store.HasColumn(ctx, column)
	if err != nil {
		return err
	}
	if !ok {
		cols, _ := c.store.Columns(ctx)
		return apperr.Wrap(apperr.ErrUnknownColumn, "column %s (available: %v)", column, cols)
	}

	rowCount, err := c.store.RowCount(ctx)
	if err != nil {
		return err
	}

	idx, err := c.indexFor(column, pred, handle, rowCount)
	if err != nil {
		return err
	}

	if batchSize <= 0 {
		batchSize = 32
	}

	for offset := 0; ; offset += batchSize {
		batch, err := c.store.FetchBatch(ctx, column, offset, batchSize)
		if err != nil {
			return err
		}
		if len(batch.Keys) == 0 {
			break
		}

		embeddings, err := pred.Predict(ctx, handle, batch.Texts)
		if err != nil {
			return apperr.Wrap(apperr.ErrModelError, "predict batch at offset %d: %v", offset, err)
		}

		vectors := embeddings.ToF32()
		dim := len(vectors[0])
		flat := make([]float32, 0, len(vectors)*dim)
		for _, v := range vectors {
			flat = append(flat, v...)
		}

		if err := idx.Add(ctx, batch.Keys, flat, dim); err != nil {
			return err
		}

		if len(batch.Keys) < batchSize {
			break
		}
	}

	return idx.Save()
}

func (c *Collection) indexFor(column string, pred Predictor, handle uint64, rowCount uint64) (vector.Index, error) {
	c.indexMu.RLock()
	idx, ok := c.indexes[column]
	c.indexMu.RUnlock()
	if ok {
		return idx, nil
	}

	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	if idx, ok := c.indexes[column]; ok {
		return idx, nil
	}

	dim, err := pred.OutputDim(handle)
	if err != nil {
		return nil, err
	}
	dtype, err := pred.OutputDtype(handle)
	if err != nil {
		return nil, err
	}

	colDir := filepath.Join(c.rootDir, c.cfg.IndexDir, column)
	built, err := ann.New(colDir, false)
	if err != nil {
		return nil, err
	}

	elem := vector.ElementF32
	if dtype == embed.DTypeF16 {
		elem = vector.ElementF16
	}

	capacity := uint(float64(rowCount) * 1.1)
	if err := built.OpenWith(vector.Options{Dimensions: dim, Metric: vector.MetricCosine, Element: elem}, capacity); err != nil {
		return nil, err
	}

	c.indexes[column] = built
	return built, nil
}

// Search embeds query, runs a k-NN search against column's index, and joins
// hits with their original content, preserving ANN rank order.
func (c *Collection) Search(ctx context.Context, column, query string, k int, pred Predictor, handle uint64) ([]collection.SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.indexMu.RLock()
	idx, ok := c.indexes[column]
	c.indexMu.RUnlock()
	if !ok {
		hasCol, _ := c.store.HasColumn(ctx, column)
		if !hasCol {
			return nil, apperr.Wrap(apperr.ErrUnknownColumn, "column %s", column)
		}
		return nil, apperr.Wrap(apperr.ErrColumnNotIndexed, "column %s", column)
	}

	if k <= 0 {
		return []collection.SearchResult{}, nil
	}

	embeddings, err := pred.Predict(ctx, handle, []string{query})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrModelError, "predict query: %v", err)
	}
	vectors := embeddings.ToF32()
	if len(vectors) == 0 {
		return []collection.SearchResult{}, nil
	}
	dim := len(vectors[0])

	hits, err := idx.Search(ctx, vectors[0], dim, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []collection.SearchResult{}, nil
	}

	keys := make([]uint64, len(hits))
	for i, h := range hits {
		keys[i] = h.Key
	}

	content, err := c.store.FetchByKeys(ctx, column, keys)
	if err != nil {
		return nil, err
	}

	results := make([]collection.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, collection.SearchResult{
			Content: content[h.Key],
			Key:     h.Key,
			Score:   h.Score,
		})
	}
	return results, nil
}

// Stats summarizes row count and per-column build status.
func (c *Collection) Stats(ctx context.Context) (collection.Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rowCount, err := c.store.RowCount(ctx)
	if err != nil {
		return collection.Stats{}, err
	}

	stats := collection.Stats{
		Name:         c.name,
		RowCount:     rowCount,
		ModelName:    c.cfg.ModelName,
		ModelVariant: c.cfg.ModelVariant,
	}

	c.indexMu.RLock()
	defer c.indexMu.RUnlock()
	for _, col := range c.cfg.IndexColumns {
		cs := collection.ColumnStats{Column: col, Status: collection.StatusNotBuilt}
		if idx, ok := c.indexes[col]; ok {
			cs.Status = collection.StatusBuilt
			if n, err := idx.Len(); err == nil {
				cs.VectorCount = n
			}
		}
		stats.Columns = append(stats.Columns, cs)
	}
	return stats, nil
}

// Columns returns the full set of column names in the underlying table.
func (c *Collection) Columns(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Columns(ctx)
}

// Close releases the collection's database handle and vector indices.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	c.indexMu.Lock()
	for _, idx := range c.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.indexMu.Unlock()

	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
