// Package registry routes tenant-scoped cache operations to per-tenant indexed caches.
package registry

import (
	"log/slog"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"

	"objcache/internal/cache"
	"objcache/internal/core"
)

// Registry maps (tenant, model) to the tenant's IndexedCache.
// Operations on an unregistered tenant degrade gracefully, except LastUpdated.
// Registry is safe for concurrent use.
type Registry[T any] struct {
	model  string
	hasher cache.ContentHasher[T]
	opts   []cache.Option
	caches *xsync.MapOf[string, *cache.IndexedCache[T]]
}

// New creates an empty registry for caches of the given model.
// Caches created by the registry use hasher and opts.
func New[T any](model string, hasher cache.ContentHasher[T], opts ...cache.Option) *Registry[T] {
	return &Registry[T]{
		model:  model,
		hasher: hasher,
		opts:   opts,
		caches: xsync.NewMapOf[string, *cache.IndexedCache[T]](),
	}
}

// Model returns the model name this registry serves.
func (r *Registry[T]) Model() string {
	return r.model
}

// Hasher returns the content hasher used for caches created by this registry.
func (r *Registry[T]) Hasher() cache.ContentHasher[T] {
	return r.hasher
}

// NewCache returns an unregistered empty cache configured like registry-created ones.
func (r *Registry[T]) NewCache() *cache.IndexedCache[T] {
	return cache.New(r.hasher, r.opts...)
}

// CreateCache registers a new empty cache for tenant, replacing any existing one.
func (r *Registry[T]) CreateCache(tenant string) *cache.IndexedCache[T] {
	c := r.NewCache()
	if _, replaced := r.caches.LoadAndStore(r.key(tenant), c); replaced {
		slog.Info("replaced tenant cache", "tenant", tenant, "model", r.model)
	} else {
		slog.Info("created tenant cache", "tenant", tenant, "model", r.model)
	}
	return c
}

// Put registers c for tenant, replacing any existing cache.
// A nil cache is ignored.
func (r *Registry[T]) Put(tenant string, c *cache.IndexedCache[T]) {
	if c == nil {
		slog.Warn("ignoring nil cache for tenant", "tenant", tenant, "model", r.model)
		return
	}
	r.caches.Store(r.key(tenant), c)
	slog.Debug("stored tenant cache", "tenant", tenant, "model", r.model, "size", c.Size())
}

// Cache returns the cache registered for tenant.
func (r *Registry[T]) Cache(tenant string) (*cache.IndexedCache[T], bool) {
	return r.caches.Load(r.key(tenant))
}

// Keys returns every registered composite key in sorted order.
func (r *Registry[T]) Keys() []string {
	keys := make([]string, 0, r.caches.Size())
	r.caches.Range(func(key string, _ *cache.IndexedCache[T]) bool {
		keys = append(keys, key)
		return true
	})
	slices.Sort(keys)
	return keys
}

// Tenants returns the tenants with a registered cache, in sorted order.
func (r *Registry[T]) Tenants() []string {
	var tenants []string
	for _, key := range r.Keys() {
		if tenant, model, ok := ParseKey(key); ok && model == r.model {
			tenants = append(tenants, tenant)
		}
	}
	// keys sort by their escaped form
	slices.Sort(tenants)
	return tenants
}

// All returns every object cached for tenant, or nil if tenant is unregistered.
func (r *Registry[T]) All(tenant string) []T {
	if c, ok := r.Cache(tenant); ok {
		return c.All()
	}
	return nil
}

// Since returns the objects cached for tenant that changed strictly after timestamp.
func (r *Registry[T]) Since(tenant string, timestamp int64) []T {
	if c, ok := r.Cache(tenant); ok {
		return c.Since(timestamp)
	}
	return nil
}

// Update reconciles the tenant's cache against objects.
// Nothing happens, and no cache is created, if tenant is unregistered.
func (r *Registry[T]) Update(tenant string, objects []T) {
	if c, ok := r.Cache(tenant); ok {
		c.Update(objects)
		return
	}
	slog.Debug("update for unregistered tenant ignored", "tenant", tenant, "model", r.model)
}

// Add merges objects into the tenant's cache.
// Nothing happens, and no cache is created, if tenant is unregistered.
func (r *Registry[T]) Add(tenant string, objects []T) {
	if c, ok := r.Cache(tenant); ok {
		c.Add(objects)
		return
	}
	slog.Debug("add for unregistered tenant ignored", "tenant", tenant, "model", r.model)
}

// Flush empties the tenant's cache if it is registered.
func (r *Registry[T]) Flush(tenant string) {
	if c, ok := r.Cache(tenant); ok {
		c.Flush()
	}
}

// Remove flushes the tenant's cache and unregisters it.
func (r *Registry[T]) Remove(tenant string) {
	c, ok := r.caches.LoadAndDelete(r.key(tenant))
	if !ok {
		return
	}
	c.Flush()
	slog.Info("removed tenant cache", "tenant", tenant, "model", r.model)
}

// Size returns the number of objects cached for tenant, or 0 if unregistered.
func (r *Registry[T]) Size(tenant string) int {
	if c, ok := r.Cache(tenant); ok {
		return c.Size()
	}
	return 0
}

// Volume returns the summed object size cached for tenant, or 0 if unregistered.
func (r *Registry[T]) Volume(tenant string) int64 {
	if c, ok := r.Cache(tenant); ok {
		return c.Volume()
	}
	return 0
}

// LastUpdated returns the last mutation time of the tenant's cache.
// Unlike the other operations it fails for an unregistered tenant.
func (r *Registry[T]) LastUpdated(tenant string) (int64, error) {
	c, ok := r.Cache(tenant)
	if !ok {
		return 0, core.NewNotFoundError(tenant, "no "+r.model+" cache registered for tenant")
	}
	return c.LastUpdated(), nil
}

// Metadata returns the aggregate statistics of the tenant's cache.
func (r *Registry[T]) Metadata(tenant string) (cache.Metadata, bool) {
	if c, ok := r.Cache(tenant); ok {
		return c.Metadata(), true
	}
	return cache.Metadata{}, false
}

func (r *Registry[T]) key(tenant string) string {
	return Key(tenant, r.model)
}

var _ core.CacheService[struct{}] = (*Registry[struct{}])(nil)
