// Package vector defines the ANN index capability shared by every
// per-collection, per-column vector index.
package vector

import "context"

// Metric identifies the distance function an index is built against.
type Metric string

// Supported metrics. Cosine is the default per the collection search contract.
const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2sq"
	MetricIP     Metric = "ip"
)

// ElementKind identifies the on-disk/in-memory precision of stored vectors.
type ElementKind string

// Supported element kinds.
const (
	ElementF16 ElementKind = "f16"
	ElementF32 ElementKind = "f32"
)

// Options parameterizes a VectorIndex at construction time.
type Options struct {
	Dimensions int
	Metric     Metric
	Element    ElementKind
}

// Hit is a single k-NN result: a row key and its similarity score.
// Score is 1-distance for cosine; higher is more similar.
type Hit struct {
	Key   uint64
	Score float32
}

// Index is one ANN structure for one (collection, column) pair.
//
// Call order: construct (for the usearch backend, ann.New prepares the
// on-disk directory), then either OpenWith (fresh build) or Load (reconstitute), then any number
// of Add/Search calls, then Save. An Index not yet OpenWith'd or Load'ed
// rejects Add and Search with ErrNotInitialized.
type Index interface {
	// OpenWith instantiates the ANN structure and reserves capacity for at
	// least initialCapacity vectors. Must precede any Add. Idempotent only
	// when called again with identical options.
	OpenWith(opts Options, initialCapacity uint) error

	// Load reconstitutes the index from dir. Fails with ErrCorruptIndex if
	// the on-disk file is missing or malformed.
	Load(dir string) error

	// Save flushes the current index to disk atomically. A Save of an empty,
	// never-Add'ed index is a no-op that still produces a valid empty file.
	Save() error

	// Add inserts a batch of (key, vector) pairs in parallel. vectors holds
	// len(keys)*dim contiguous elements; dim must equal the configured
	// dimensionality. An individual per-vector insertion failure aborts the
	// whole batch.
	Add(ctx context.Context, keys []uint64, vectors []float32, dim int) error

	// Search returns up to k hits ordered by descending score, ties broken
	// by ascending key.
	Search(ctx context.Context, query []float32, dim int, k int) ([]Hit, error)

	// Len returns the number of vectors currently held by the index.
	Len() (uint, error)

	// Dir returns the on-disk directory backing this index.
	Dir() string

	// Close releases any resources held by the underlying ANN structure.
	Close() error
}
