// Package server provides HTTP handlers and server setup for the cache service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"objcache/internal/cache"
	"objcache/internal/core"
	"objcache/internal/document"
	"objcache/internal/observability"
	"objcache/internal/registry"
)

// Exporter writes tenant caches to the configured export store.
type Exporter interface {
	// Export writes the tenant's cache to the store.
	Export(ctx context.Context, tenant string) error
	// Delete drops the tenant's stored export.
	Delete(ctx context.Context, tenant string) error
}

// HandlerConfig wires the handler to the cache registry.
type HandlerConfig struct {
	// Registry holds the tenant caches (required)
	Registry *registry.Registry[document.Document]

	// Service serves cache operations (default: Registry). Pass an
	// instrumented wrapper to have operations recorded.
	Service core.CacheService[document.Document]

	// Recorder backs /v1/measurements (optional)
	Recorder *observability.Recorder

	// Exporter backs the export route and drops exports of removed
	// tenants (optional)
	Exporter Exporter
}

// Handler holds the HTTP handlers
type Handler struct {
	registry   *registry.Registry[document.Document]
	service    core.CacheService[document.Document]
	recorder   *observability.Recorder
	exporter   Exporter
	indexPaths map[string]bool
}

// NewHandler creates a new handler from cfg
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		registry:   cfg.Registry,
		service:    cfg.Service,
		recorder:   cfg.Recorder,
		exporter:   cfg.Exporter,
		indexPaths: make(map[string]bool),
	}
	if h.service == nil {
		h.service = cfg.Registry
	}
	if hasher, ok := cfg.Registry.Hasher().(document.Hasher); ok {
		for _, p := range hasher.IndexPaths {
			h.indexPaths[p] = true
		}
	}
	return h
}

// cacheStats is the JSON view of a tenant cache's metadata.
type cacheStats struct {
	Tenant      string `json:"tenant"`
	Model       string `json:"model"`
	Size        int    `json:"size"`
	Volume      int64  `json:"volume"`
	LastUpdated int64  `json:"last_updated"`
	Checksum    string `json:"checksum"`
}

type documentList struct {
	Tenant    string              `json:"tenant"`
	Count     int                 `json:"count"`
	Documents []document.Document `json:"documents"`
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListCaches handles GET /v1/caches
func (h *Handler) ListCaches(c echo.Context) error {
	keys := h.service.Keys()
	if keys == nil {
		keys = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"model": h.registry.Model(),
		"keys":  keys,
	})
}

// CreateCache handles POST /v1/caches/:tenant
func (h *Handler) CreateCache(c echo.Context) error {
	tenant, err := tenantParam(c)
	if err != nil {
		return handleError(c, err)
	}
	ic := h.registry.CreateCache(tenant)
	return c.JSON(http.StatusCreated, h.stats(tenant, ic.Metadata()))
}

// GetCache handles GET /v1/caches/:tenant
func (h *Handler) GetCache(c echo.Context) error {
	tenant, ic, err := h.lookup(c)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, h.stats(tenant, ic.Metadata()))
}

// RemoveCache handles DELETE /v1/caches/:tenant
func (h *Handler) RemoveCache(c echo.Context) error {
	tenant, _, err := h.lookup(c)
	if err != nil {
		return handleError(c, err)
	}
	h.service.Remove(tenant)

	// A stale export would bring the tenant back on the next start
	if h.exporter != nil {
		if err := h.exporter.Delete(c.Request().Context(), tenant); err != nil {
			return handleError(c, err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// FlushCache handles POST /v1/caches/:tenant/flush
func (h *Handler) FlushCache(c echo.Context) error {
	tenant, ic, err := h.lookup(c)
	if err != nil {
		return handleError(c, err)
	}
	h.service.Flush(tenant)
	return c.JSON(http.StatusOK, h.stats(tenant, ic.Metadata()))
}

// ExportCache handles POST /v1/caches/:tenant/export
func (h *Handler) ExportCache(c echo.Context) error {
	if h.exporter == nil {
		return handleError(c, core.NewInvalidRequestError("export store is not configured", nil))
	}
	tenant, _, err := h.lookup(c)
	if err != nil {
		return handleError(c, err)
	}
	if err := h.exporter.Export(c.Request().Context(), tenant); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListDocuments handles GET /v1/caches/:tenant/documents[?since=ms]
func (h *Handler) ListDocuments(c echo.Context) error {
	tenant, _, err := h.lookup(c)
	if err != nil {
		return handleError(c, err)
	}

	var docs []document.Document
	if since := c.QueryParam("since"); since != "" {
		ts, err := strconv.ParseInt(since, 10, 64)
		if err != nil {
			return handleError(c, core.NewInvalidRequestError("since must be a Unix timestamp in milliseconds", err))
		}
		docs = h.service.Since(tenant, ts)
	} else {
		docs = h.service.All(tenant)
	}
	return c.JSON(http.StatusOK, newDocumentList(tenant, docs))
}

// UpdateDocuments handles PUT /v1/caches/:tenant/documents
func (h *Handler) UpdateDocuments(c echo.Context) error {
	tenant, ic, err := h.lookup(c)
	if err != nil {
		return handleError(c, err)
	}
	docs, err := decodeDocuments(c)
	if err != nil {
		return handleError(c, err)
	}
	h.service.Update(tenant, docs)
	return c.JSON(http.StatusOK, h.stats(tenant, ic.Metadata()))
}

// AddDocuments handles POST /v1/caches/:tenant/documents
func (h *Handler) AddDocuments(c echo.Context) error {
	tenant, ic, err := h.lookup(c)
	if err != nil {
		return handleError(c, err)
	}
	docs, err := decodeDocuments(c)
	if err != nil {
		return handleError(c, err)
	}
	h.service.Add(tenant, docs)
	return c.JSON(http.StatusOK, h.stats(tenant, ic.Metadata()))
}

// SearchDocuments handles GET /v1/caches/:tenant/documents/search?path=&value=
// Paths configured for indexing are answered from the hash index, other
// paths by a full scan.
func (h *Handler) SearchDocuments(c echo.Context) error {
	tenant, ic, err := h.lookup(c)
	if err != nil {
		return handleError(c, err)
	}
	path, value := c.QueryParam("path"), c.QueryParam("value")
	if path == "" {
		return handleError(c, core.NewInvalidRequestError("path query parameter is required", nil))
	}

	if h.recorder != nil {
		defer h.recorder.Time(observability.OpSearch, time.Now())
	}
	var docs []document.Document
	if h.indexPaths[path] {
		docs = ic.FilterIndexed(document.Key(path, value), document.Match(path, value))
	} else {
		docs = ic.Filter(document.Match(path, value))
	}
	return c.JSON(http.StatusOK, newDocumentList(tenant, docs))
}

// Measurements handles GET /v1/measurements
func (h *Handler) Measurements(c echo.Context) error {
	if h.recorder == nil {
		return c.JSON(http.StatusOK, map[string]observability.Stats{})
	}
	return c.JSON(http.StatusOK, h.recorder.Snapshot())
}

func (h *Handler) lookup(c echo.Context) (string, *cache.IndexedCache[document.Document], error) {
	tenant, err := tenantParam(c)
	if err != nil {
		return "", nil, err
	}
	ic, ok := h.registry.Cache(tenant)
	if !ok {
		return tenant, nil, core.NewNotFoundError(tenant, "no "+h.registry.Model()+" cache registered for tenant")
	}
	return tenant, ic, nil
}

func (h *Handler) stats(tenant string, meta cache.Metadata) cacheStats {
	return cacheStats{
		Tenant:      tenant,
		Model:       h.registry.Model(),
		Size:        meta.Count,
		Volume:      meta.Volume,
		LastUpdated: meta.LastUpdated,
		Checksum:    strconv.FormatUint(meta.Checksum, 16),
	}
}

func tenantParam(c echo.Context) (string, error) {
	tenant, err := url.PathUnescape(c.Param("tenant"))
	if err != nil || tenant == "" {
		return "", core.NewInvalidRequestError("invalid tenant", err)
	}
	return tenant, nil
}

func decodeDocuments(c echo.Context) ([]document.Document, error) {
	var docs []document.Document
	if err := json.NewDecoder(c.Request().Body).Decode(&docs); err != nil {
		return nil, core.NewInvalidRequestError("request body must be a JSON array of documents: "+err.Error(), err)
	}
	return docs, nil
}

func newDocumentList(tenant string, docs []document.Document) documentList {
	if docs == nil {
		docs = []document.Document{}
	}
	return documentList{Tenant: tenant, Count: len(docs), Documents: docs}
}

// handleError converts cache errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var cacheErr *core.CacheError
	if errors.As(err, &cacheErr) {
		return c.JSON(cacheErr.HTTPStatusCode(), cacheErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
