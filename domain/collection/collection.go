// Package collection defines the value types shared by the collection
// lifecycle: its persisted configuration, search results, and stats summary.
// The behavior that operates on these types (import, embed, search) lives in
// application/collection; the concrete storage backend lives in
// infrastructure/storage.
package collection

// Config is the persisted sidecar describing a collection. Written once at
// creation by New, re-read on Load. Round-trippable to config.json.
type Config struct {
	Name         string   `json:"name"`
	ModelName    string   `json:"model_name"`
	ModelVariant string   `json:"model_variant"`
	IndexColumns []string `json:"index_columns"`
	DBPath       string   `json:"db_path"`
	IndexDir     string   `json:"index_dir"`
}

// SearchResult is one ranked hit from a column search: the original content,
// the row key, and the similarity score (1-distance for cosine).
type SearchResult struct {
	Content string  `json:"content"`
	Key     uint64  `json:"key"`
	Score   float32 `json:"score"`
}

// BuildStatus describes whether a column's vector index has been built.
type BuildStatus string

const (
	StatusBuilt    BuildStatus = "built"
	StatusNotBuilt BuildStatus = "not_built"
)

// ColumnStats describes the build status of one indexed column.
type ColumnStats struct {
	Column     string      `json:"column"`
	Status     BuildStatus `json:"status"`
	Dimensions int         `json:"dimensions,omitempty"`
	VectorCount uint       `json:"vector_count,omitempty"`
}

// Stats summarizes a collection's current state, row count, and the build
// status of each indexed column. Supplements the core contract for the
// GET /collections/{name} endpoint.
type Stats struct {
	Name         string        `json:"name"`
	RowCount     uint64        `json:"row_count"`
	ModelName    string        `json:"model_name"`
	ModelVariant string        `json:"model_variant"`
	Columns      []ColumnStats `json:"columns"`
}

// Summary is the lightweight listing shape used by GET /collections.
type Summary struct {
	Name         string   `json:"name"`
	IndexColumns []string `json:"index_columns"`
}
