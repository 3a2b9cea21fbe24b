package registry

import (
	"context"
	"sync"

	appcollection "github.com/vexcore/vexel/application/collection"
	"github.com/vexcore/vexel/domain/collection"
	"github.com/vexcore/vexel/internal/apperr"
)

// modelKey identifies a loaded embedder by its declared (path, variant).
type modelKey struct {
	path    string
	variant string
}

// CollectionRegistry is the facade over every Collection in the process: the
// sole external entry point for mutations and queries over the core. It
// also owns the (path, variant) -> handle cache that deduplicates embedder
// loading across collections — ModelRegistry itself does not deduplicate.
type CollectionRegistry struct {
	root string

	mu          sync.RWMutex
	collections map[string]*appcollection.Collection

	models *ModelRegistry

	handleMu sync.RWMutex
	handles  map[modelKey]Handle

	backend Backend
	token   string
}

// NewCollectionRegistry creates a facade rooted at root, backed by models
// for embedder loading.
func NewCollectionRegistry(root string, models *ModelRegistry, backend Backend, token string) *CollectionRegistry {
	return &CollectionRegistry{
		root:        root,
		collections: make(map[string]*appcollection.Collection),
		models:      models,
		handles:     make(map[modelKey]Handle),
		backend:     backend,
		token:       token,
	}
}

// Create constructs a new Collection, ensures its embedders are loaded, and
// registers it under cfg.Name.
func (r *CollectionRegistry) Create(ctx context.Context, cfg collection.Config, overwrite bool) error {
	c, err := appcollection.New(r.root, cfg, overwrite)
	if err != nil {
		return err
	}
	if err := r.ensureModelsLoaded(ctx, c); err != nil {
		c.Close()
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[cfg.Name] = c
	return nil
}

// Load reads a collection from disk, ensures its embedders are loaded, and
// registers it.
func (r *CollectionRegistry) Load(ctx context.Context, name string) error {
	c, err := appcollection.Load(r.root, name)
	if err != nil {
		return err
	}
	if err := r.ensureModelsLoaded(ctx, c); err != nil {
		c.Close()
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[name] = c
	return nil
}

// ensureModelsLoaded loads (or reuses) the embedder handle for every
// (path, variant) pair c requests. This is the sole call site of
// ModelRegistry.Load and is where embedder sharing across collections is
// enforced.
func (r *CollectionRegistry) ensureModelsLoaded(ctx context.Context, c *appcollection.Collection) error {
	for _, pv := range c.RequestedEmbedders() {
		key := modelKey{path: pv[0], variant: pv[1]}

		r.handleMu.RLock()
		_, ok := r.handles[key]
		r.handleMu.RUnlock()
		if ok {
			continue
		}

		r.handleMu.Lock()
		if _, ok := r.handles[key]; !ok {
			h, err := r.models.Load(ctx, key.path, key.variant, r.backend, r.token)
			if err != nil {
				r.handleMu.Unlock()
				return err
			}
			r.handles[key] = h
		}
		r.handleMu.Unlock()
	}
	return nil
}

func (r *CollectionRegistry) lookup(name string) (*appcollection.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[name]
	if !ok {
		return nil, apperr.Wrap(apperr.ErrUnknownCollection, "collection %s", name)
	}
	return c, nil
}

func (r *CollectionRegistry) handleFor(c *appcollection.Collection) (Handle, error) {
	cfg := c.Config()
	key := modelKey{path: cfg.ModelName, variant: cfg.ModelVariant}

	r.handleMu.RLock()
	defer r.handleMu.RUnlock()
	h, ok := r.handles[key]
	if !ok {
		return 0, apperr.Wrap(apperr.ErrUnknownModel, "%s/%s", key.path, key.variant)
	}
	return h, nil
}

// ImportJSONL looks up name and delegates.
func (r *CollectionRegistry) ImportJSONL(ctx context.Context, name, path string) error {
	c, err := r.lookup(name)
	if err != nil {
		return err
	}
	return c.ImportJSONL(ctx, path)
}

// ImportParquet looks up name and delegates.
func (r *CollectionRegistry) ImportParquet(ctx context.Context, name, path string) error {
	c, err := r.lookup(name)
	if err != nil {
		return err
	}
	return c.ImportParquet(ctx, path)
}

// EmbedColumn looks up name and its model handle, then delegates.
func (r *CollectionRegistry) EmbedColumn(ctx context.Context, name, column string, batchSize int) error {
	c, err := r.lookup(name)
	if err != nil {
		return err
	}
	h, err := r.handleFor(c)
	if err != nil {
		return err
	}
	return c.EmbedColumn(ctx, column, batchSize, r.models, h)
}

// Search looks up name and its model handle, then delegates.
func (r *CollectionRegistry) Search(ctx context.Context, name, column, query string, k int) ([]collection.SearchResult, error) {
	c, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	h, err := r.handleFor(c)
	if err != nil {
		return nil, err
	}
	return c.Search(ctx, column, query, k, r.models, h)
}

// List returns a summary of every registered collection.
func (r *CollectionRegistry) List() []collection.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]collection.Summary, 0, len(r.collections))
	for name, c := range r.collections {
		cfg := c.Config()
		out = append(out, collection.Summary{Name: name, IndexColumns: cfg.IndexColumns})
	}
	return out
}

// Describe returns the full stats summary for one collection.
func (r *CollectionRegistry) Describe(ctx context.Context, name string) (collection.Stats, error) {
	c, err := r.lookup(name)
	if err != nil {
		return collection.Stats{}, err
	}
	return c.Stats(ctx)
}

// Close closes every registered collection and the model registry.
func (r *CollectionRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, c := range r.collections {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.models.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
