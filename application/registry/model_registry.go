// Package registry owns the ModelRegistry and CollectionRegistry: the
// process-wide facades that load embedders on demand, coordinate model
// sharing, and route named operations to collections.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/vexcore/vexel/domain/embed"
	"github.com/vexcore/vexel/internal/apperr"
)

// Handle is an opaque integer identifying a loaded embedder within a
// process. Stable for the process lifetime; two handles are equal iff they
// refer to the same (path, variant) pair loaded through the same
// CollectionRegistry (the ModelRegistry itself does not deduplicate).
//
// Handle is a plain alias (not a distinct named type) so that collaborators
// like application/collection.Predictor can declare methods in terms of
// uint64 without importing this package, avoiding an import cycle with
// CollectionRegistry.
type Handle = uint64

// Backend selects which concrete Embedder implementation ModelRegistry.Load
// instantiates for a (path, variant) pair.
type Backend string

const (
	BackendHugot Backend = "hugot"
)

// embedderFactory instantiates a concrete Embedder for a local model
// directory. Swappable via WithEmbedderFactory so tests can substitute a
// fake embedder instead of loading a real ONNX model.
type embedderFactory func(dir string) embed.Embedder

// ModelRegistry is a pure handle -> embedder store. It assigns the next
// sequential handle (starting at 1) on every Load call and never
// deduplicates by (path, variant); that policy belongs to CollectionRegistry.
type ModelRegistry struct {
	mu        sync.RWMutex
	next      uint64
	embedders map[Handle]embed.Embedder
	resolver  embed.HubResolver
	cacheRoot string
	factory   embedderFactory
}

// ModelRegistryOption configures a ModelRegistry at construction time.
type ModelRegistryOption func(*ModelRegistry)

// WithEmbedderFactory overrides how ModelRegistry.Load instantiates an
// embedder for the hugot backend. Used by tests to inject a fake.
func WithEmbedderFactory(f func(dir string) embed.Embedder) ModelRegistryOption {
	return func(m *ModelRegistry) { m.factory = f }
}

// NewModelRegistry creates an empty registry. resolver satisfies remote
// hf:// references. cacheRoot is stored on the registry but Load does not
// consult it: non-hub paths are used as given.
func NewModelRegistry(resolver embed.HubResolver, cacheRoot string, opts ...ModelRegistryOption) *ModelRegistry {
	m := &ModelRegistry{
		embedders: make(map[Handle]embed.Embedder),
		resolver:  resolver,
		cacheRoot: cacheRoot,
		factory:   newHugotEmbedder,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load resolves path/variant (via the hub resolver if path is a hub
// reference), instantiates the embedder for backend, assigns the next
// sequential handle, and stores it. No handle is assigned on failure.
func (m *ModelRegistry) Load(ctx context.Context, path, variant string, backend Backend, token string) (Handle, error) {
	localDir := path
	localVariant := variant

	if embed.IsHubRef(path) {
		dir, file, err := m.resolver.Resolve(ctx, path, variant, token)
		if err != nil {
			return 0, apperr.Wrap(apperr.ErrModelError, "resolve hub reference %s: %v", path, err)
		}
		localDir = dir
		localVariant = file
	}

	e, err := m.instantiate(backend, localDir, localVariant)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrModelError, "load embedder %s/%s: %v", path, variant, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	h := Handle(m.next)
	m.embedders[h] = e
	return h, nil
}

func (m *ModelRegistry) instantiate(backend Backend, dir, _ string) (embed.Embedder, error) {
	switch backend {
	case BackendHugot, "":
		return m.factory(dir), nil
	default:
		return nil, fmt.Errorf("unsupported embedder backend %q", backend)
	}
}

// Predict dispatches to the embedder's native precision and returns a
// tagged union. Fails with ErrUnknownHandle if handle is not registered.
func (m *ModelRegistry) Predict(ctx context.Context, h Handle, batch []string) (embed.Embeddings, error) {
	e, err := m.lookup(h)
	if err != nil {
		return embed.Embeddings{}, err
	}
	return embed.Predict(ctx, e, batch)
}

// OutputDim returns the embedding dimensionality for handle.
func (m *ModelRegistry) OutputDim(h Handle) (int, error) {
	e, err := m.lookup(h)
	if err != nil {
		return 0, err
	}
	return e.OutputDim(), nil
}

// OutputDtype returns the native dtype for handle.
func (m *ModelRegistry) OutputDtype(h Handle) (embed.DType, error) {
	e, err := m.lookup(h)
	if err != nil {
		return "", err
	}
	return e.OutputDtype(), nil
}

func (m *ModelRegistry) lookup(h Handle) (embed.Embedder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.embedders[h]
	if !ok {
		return nil, apperr.Wrap(apperr.ErrUnknownHandle, "handle %d", h)
	}
	return e, nil
}

// Close releases every loaded embedder.
func (m *ModelRegistry) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, e := range m.embedders {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
