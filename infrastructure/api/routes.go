package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/vexcore/vexel/application/registry"
	"github.com/vexcore/vexel/infrastructure/api/middleware"
	"github.com/vexcore/vexel/internal/apperr"
)

// Version is stamped at build time by cmd/vexel.
var Version = "dev"

// Handlers wires the CollectionRegistry to the wire API described by the
// core contract: GET /, GET /collections, GET /collections/{name},
// POST /collections/{name}/search.
type Handlers struct {
	registry *registry.CollectionRegistry
	logger   *slog.Logger
	auth     middleware.AuthConfig
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(reg *registry.CollectionRegistry, logger *slog.Logger, auth middleware.AuthConfig) *Handlers {
	return &Handlers{registry: reg, logger: logger, auth: auth}
}

// Mount registers every route and its middleware chain on router.
func (h *Handlers) Mount(router chi.Router) {
	router.Use(middleware.Timing)
	router.Use(middleware.Logging(h.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-API-KEY"},
	}))
	router.Use(middleware.WriteProtect(h.auth))

	router.Get("/", h.handleRoot)
	router.Get("/collections", h.handleListCollections)
	router.Get("/collections/{name}", h.handleDescribeCollection)
	router.Post("/collections/{name}/search", h.handleSearch)
}

type rootResponse struct {
	Version string `json:"version"`
	Status  string `json:"status"`
}

func (h *Handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, r, http.StatusOK, rootResponse{Version: Version, Status: "ok"})
}

type listCollectionsResponse struct {
	Collections []collectionListing `json:"collections"`
}

type collectionListing struct {
	Name         string   `json:"name"`
	IndexColumns []string `json:"index_columns"`
}

func (h *Handlers) handleListCollections(w http.ResponseWriter, r *http.Request) {
	summaries := h.registry.List()
	out := make([]collectionListing, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, collectionListing{Name: s.Name, IndexColumns: s.IndexColumns})
	}
	middleware.WriteJSON(w, r, http.StatusOK, listCollectionsResponse{Collections: out})
}

func (h *Handlers) handleDescribeCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	stats, err := h.registry.Describe(r.Context(), name)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}
	middleware.WriteJSON(w, r, http.StatusOK, stats)
}

type searchRequest struct {
	ColumnName string `json:"column_name"`
	Query      string `json:"query"`
	Limit      *int   `json:"limit,omitempty"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

type searchHit struct {
	Content string  `json:"content"`
	Key     uint64  `json:"key"`
	Score   float32 `json:"score"`
}

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

func (h *Handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, apperr.Wrap(apperr.ErrBadRequest, "decode request body: %v", err), h.logger)
		return
	}
	if req.ColumnName == "" {
		middleware.WriteError(w, r, apperr.Wrap(apperr.ErrBadRequest, "column_name is required"), h.logger)
		return
	}

	limit := defaultSearchLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit < 1 || limit > maxSearchLimit {
		middleware.WriteError(w, r, apperr.Wrap(apperr.ErrBadRequest, "limit must be in [1,%d]", maxSearchLimit), h.logger)
		return
	}

	results, err := h.registry.Search(r.Context(), name, req.ColumnName, req.Query, limit)
	if err != nil {
		middleware.WriteError(w, r, err, h.logger)
		return
	}

	out := make([]searchHit, 0, len(results))
	for _, res := range results {
		out = append(out, searchHit{Content: res.Content, Key: res.Key, Score: res.Score})
	}
	middleware.WriteJSON(w, r, http.StatusOK, searchResponse{Results: out})
}
