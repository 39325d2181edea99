package core

// CacheService is the tenant-scoped operation set consumed by the hosting layer.
// The model name is implicit in the implementation.
//
// Every operation except LastUpdated degrades gracefully for an unregistered
// tenant: reads return empty results and writes do nothing.
type CacheService[T any] interface {
	// Keys returns all registered composite cache keys.
	Keys() []string

	// All returns every object cached for tenant.
	All(tenant string) []T

	// Since returns the objects cached for tenant whose last update is
	// strictly after timestamp (Unix milliseconds).
	Since(tenant string, timestamp int64) []T

	// Update reconciles the tenant cache against objects, which become the whole truth.
	Update(tenant string, objects []T)

	// Add merges objects into the tenant cache without removing anything.
	Add(tenant string, objects []T)

	// Flush empties the tenant cache but keeps it registered.
	Flush(tenant string)

	// Remove flushes the tenant cache and unregisters it.
	Remove(tenant string)

	// Size returns the number of cached objects for tenant.
	Size(tenant string) int

	// Volume returns the summed size in bytes of the cached objects for tenant.
	Volume(tenant string) int64

	// LastUpdated returns the time of the last mutation of the tenant cache.
	// Returns a not-found *CacheError when the tenant is not registered.
	LastUpdated(tenant string) (int64, error)
}
