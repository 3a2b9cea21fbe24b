// Package ann provides the concrete approximate-nearest-neighbor backend
// for domain/vector.Index, built on usearch.
package ann

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	usearch "github.com/unum-cloud/usearch/golang"
	"golang.org/x/sync/errgroup"

	"github.com/vexcore/vexel/domain/vector"
)

const (
	indexFileName = "index.bin"
	optsFileName  = "opts.json"
)

// UsearchIndex is one ANN structure for one (collection, column) pair,
// backed by github.com/unum-cloud/usearch/golang.
type UsearchIndex struct {
	mu     sync.RWMutex
	dir    string
	index  *usearch.Index
	opts   vector.Options
	opened bool
}

var _ vector.Index = (*UsearchIndex)(nil)

// New prepares the on-disk directory for an index rooted at dir. It does
// not instantiate the ANN structure; call OpenWith or Load next.
func New(dir string, overwrite bool) (*UsearchIndex, error) {
	if overwrite {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("remove existing index dir %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir %s: %w", dir, err)
	}
	return &UsearchIndex{dir: dir}, nil
}

func toUsearchMetric(m vector.Metric) usearch.Metric {
	switch m {
	case vector.MetricL2:
		return usearch.L2sq
	case vector.MetricIP:
		return usearch.InnerProduct
	default:
		return usearch.Cos
	}
}

func toUsearchQuantization(e vector.ElementKind) usearch.Quantization {
	if e == vector.ElementF16 {
		return usearch.F16
	}
	return usearch.F32
}

// OpenWith instantiates the usearch index and reserves initialCapacity slots.
func (u *UsearchIndex) OpenWith(opts vector.Options, initialCapacity uint) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.opened {
		if u.opts != opts {
			return fmt.Errorf("%w: index already opened with different options", errMismatch)
		}
		return nil
	}

	conf := usearch.DefaultConfig(uint(opts.Dimensions))
	conf.Metric = toUsearchMetric(opts.Metric)
	conf.Quantization = toUsearchQuantization(opts.Element)

	idx, err := usearch.NewIndex(conf)
	if err != nil {
		return fmt.Errorf("create usearch index: %w", err)
	}
	if initialCapacity > 0 {
		if err := idx.Reserve(initialCapacity); err != nil {
			return fmt.Errorf("reserve capacity %d: %w", initialCapacity, err)
		}
	}

	u.index = idx
	u.opts = opts
	u.opened = true

	if err := writeOpts(u.dir, opts); err != nil {
		return err
	}
	return nil
}

// Load reconstitutes the index from dir/index.bin, restoring the
// dimensionality/metric/element options it was opened with from the
// opts.json sidecar written by OpenWith — required so later Add/Search
// calls on a reloaded index don't spuriously fail their dim-mismatch guard
// against a zero-value Options.
func (u *UsearchIndex) Load(dir string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	path := filepath.Join(dir, indexFileName)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %v", errCorrupt, path, err)
	}

	opts, err := readOpts(dir)
	if err != nil {
		return err
	}

	conf := usearch.DefaultConfig(uint(opts.Dimensions))
	conf.Metric = toUsearchMetric(opts.Metric)
	conf.Quantization = toUsearchQuantization(opts.Element)
	idx, err := usearch.NewIndex(conf)
	if err != nil {
		return fmt.Errorf("create usearch index: %w", err)
	}
	if err := idx.Load(path); err != nil {
		return fmt.Errorf("%w: load %s: %v", errCorrupt, path, err)
	}

	u.dir = dir
	u.index = idx
	u.opts = opts
	u.opened = true
	return nil
}

func writeOpts(dir string, opts vector.Options) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("marshal index options: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, optsFileName), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", optsFileName, err)
	}
	return nil
}

func readOpts(dir string) (vector.Options, error) {
	path := filepath.Join(dir, optsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return vector.Options{}, fmt.Errorf("%w: %s: %v", errCorrupt, path, err)
	}
	var opts vector.Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return vector.Options{}, fmt.Errorf("%w: parse %s: %v", errCorrupt, path, err)
	}
	return opts, nil
}

// Save flushes the index to dir/index.bin atomically.
func (u *UsearchIndex) Save() error {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if !u.opened {
		return fmt.Errorf("%w: save before open_with/load", errNotInitialized)
	}

	final := filepath.Join(u.dir, indexFileName)
	tmp := final + ".tmp"

	if err := u.index.Save(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save index: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename index into place: %w", err)
	}
	return nil
}

// Add inserts a batch of (key, vector) pairs in parallel. A per-vector
// insertion failure aborts the whole batch.
func (u *UsearchIndex) Add(ctx context.Context, keys []uint64, vectors []float32, dim int) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.opened {
		return fmt.Errorf("%w: add before open_with/load", errNotInitialized)
	}
	if dim != u.opts.Dimensions {
		return fmt.Errorf("%w: add dim %d != index dim %d", errDimMismatch, dim, u.opts.Dimensions)
	}
	if len(keys) == 0 {
		return nil
	}
	if len(vectors) != len(keys)*dim {
		return fmt.Errorf("%w: vectors length %d != keys(%d)*dim(%d)", errDimMismatch, len(vectors), len(keys), dim)
	}

	size, err := u.index.Len()
	if err != nil {
		return fmt.Errorf("read index size: %w", err)
	}
	required := size + uint(len(keys))
	capacity, err := u.index.Capacity()
	if err != nil {
		return fmt.Errorf("read index capacity: %w", err)
	}
	if required > capacity {
		grown := uint(math.Ceil(float64(required) * 1.1))
		if err := u.index.Reserve(grown); err != nil {
			return fmt.Errorf("grow capacity to %d: %w", grown, err)
		}
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(keys) {
		workers = len(keys)
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				slice := vectors[i*dim : (i+1)*dim]
				if err := u.index.Add(keys[i], slice); err != nil {
					return fmt.Errorf("add key %d: %w", keys[i], err)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for i := range keys {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	return g.Wait()
}

// Search returns up to k hits ordered by descending score, ties broken by
// ascending key.
func (u *UsearchIndex) Search(ctx context.Context, query []float32, dim int, k int) ([]vector.Hit, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if !u.opened {
		return nil, fmt.Errorf("%w: search before open_with/load", errNotInitialized)
	}
	if dim != u.opts.Dimensions {
		return nil, fmt.Errorf("%w: search dim %d != index dim %d", errDimMismatch, dim, u.opts.Dimensions)
	}
	if k <= 0 {
		return []vector.Hit{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys, distances, err := u.index.Search(query, uint(k))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]vector.Hit, len(keys))
	for i, key := range keys {
		dist := distances[i]
		score := 1 - dist
		if math.IsNaN(float64(score)) {
			score = 0
		}
		hits[i] = vector.Hit{Key: key, Score: score}
	}

	sortHitsByScoreDescKeyAsc(hits)
	return hits, nil
}

// Len returns the number of vectors currently held.
func (u *UsearchIndex) Len() (uint, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if !u.opened {
		return 0, nil
	}
	return u.index.Len()
}

// Dir returns the on-disk directory backing this index.
func (u *UsearchIndex) Dir() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.dir
}

// Close releases the underlying usearch structure.
func (u *UsearchIndex) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.index == nil {
		return nil
	}
	err := u.index.Destroy()
	u.index = nil
	u.opened = false
	return err
}

func sortHitsByScoreDescKeyAsc(hits []vector.Hit) {
	// insertion sort: result sets from ANN search are small (<=k<=100)
	for i := 1; i < len(hits); i++ {
		j := i
		for j > 0 && less(hits[j], hits[j-1]) {
			hits[j], hits[j-1] = hits[j-1], hits[j]
			j--
		}
	}
}

func less(a, b vector.Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Key < b.Key
}
