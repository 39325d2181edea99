package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"objcache/internal/cache"
	"objcache/internal/core"
	"objcache/internal/registry"
)

// Exporter moves tenant caches of one registry to and from a Store.
type Exporter[T any] struct {
	registry *registry.Registry[T]
	store    Store
	compress bool
	now      func() time.Time

	done    chan struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// NewExporter creates an exporter for caches held by reg.
func NewExporter[T any](reg *registry.Registry[T], store Store, compress bool) *Exporter[T] {
	return &Exporter[T]{
		registry: reg,
		store:    store,
		compress: compress,
		now:      func() time.Time { return time.Now().UTC() },
		done:     make(chan struct{}),
	}
}

// Export writes the tenant's current cache contents to the store.
func (e *Exporter[T]) Export(ctx context.Context, tenant string) error {
	c, ok := e.registry.Cache(tenant)
	if !ok {
		return core.NewNotFoundError(tenant, "no "+e.registry.Model()+" cache registered for tenant")
	}

	snap := &Snapshot[T]{
		Version:    SnapshotVersion,
		Model:      e.registry.Model(),
		Tenant:     tenant,
		ExportedAt: e.now(),
		Metadata:   c.Metadata(),
		Entries:    c.Entries(),
	}
	data, err := Encode(snap, e.compress)
	if err != nil {
		return core.NewStorageError(tenant, "failed to encode export", err)
	}
	if err := e.store.Save(ctx, e.key(tenant), data); err != nil {
		return core.NewStorageError(tenant, "failed to save export", err)
	}

	slog.Debug("exported tenant cache",
		"tenant", tenant,
		"model", snap.Model,
		"entries", len(snap.Entries),
		"bytes", len(data),
	)
	return nil
}

// ExportAll exports every registered tenant, continuing past failures.
func (e *Exporter[T]) ExportAll(ctx context.Context) error {
	var errs []error
	for _, tenant := range e.registry.Tenants() {
		if err := e.Export(ctx, tenant); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Import seeds a fresh cache for tenant from the store and registers it,
// replacing any cache already registered. It reports false when the store
// holds no export for tenant, in which case the registry is left untouched.
func (e *Exporter[T]) Import(ctx context.Context, tenant string) (bool, error) {
	data, err := e.store.Load(ctx, e.key(tenant))
	if err != nil {
		return false, core.NewStorageError(tenant, "failed to load export", err)
	}
	if data == nil {
		return false, nil
	}

	snap, err := Decode[T](data)
	if err != nil {
		return false, core.NewStorageError(tenant, "failed to decode export", err)
	}
	if snap.Model != e.registry.Model() {
		return false, core.NewStorageError(tenant,
			fmt.Sprintf("export holds model %q, expected %q", snap.Model, e.registry.Model()), nil)
	}

	c := e.registry.NewCache()
	c.UpdateCache(reindex(snap.Entries, e.registry.Hasher()))
	e.registry.Put(tenant, c)

	slog.Info("imported tenant cache",
		"tenant", tenant,
		"model", snap.Model,
		"entries", c.Size(),
		"exported_at", snap.ExportedAt,
	)
	return true, nil
}

// Delete removes the tenant's export from the store.
func (e *Exporter[T]) Delete(ctx context.Context, tenant string) error {
	if err := e.store.Delete(ctx, e.key(tenant)); err != nil {
		return core.NewStorageError(tenant, "failed to delete export", err)
	}
	return nil
}

// Start exports every tenant each interval until Stop is called.
func (e *Exporter[T]) Start(interval time.Duration) {
	if interval <= 0 || e.stopped.Load() {
		return
	}
	e.wg.Add(1)
	go e.exportLoop(interval)
}

// Stop ends the export loop started by Start. It is idempotent.
func (e *Exporter[T]) Stop() {
	if e.stopped.Swap(true) {
		return
	}
	close(e.done)
	e.wg.Wait()
}

func (e *Exporter[T]) exportLoop(interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if err := e.ExportAll(ctx); err != nil {
				slog.Error("periodic export failed", "error", err)
			}
			cancel()
		case <-e.done:
			return
		}
	}
}

// reindex recomputes index keys and size of imported entries with hasher,
// since the index configuration may have changed since the export.
// Checksum and LastUpdated are kept as exported.
func reindex[T any](entries []cache.Entry[T], hasher cache.ContentHasher[T]) []cache.Entry[T] {
	out := make([]cache.Entry[T], len(entries))
	for i, en := range entries {
		out[i] = cache.Entry[T]{
			Object:      en.Object,
			Checksum:    en.Checksum,
			IndexKeys:   hasher.IndexKeys(en.Object),
			Size:        hasher.Size(en.Object),
			LastUpdated: en.LastUpdated,
		}
	}
	return out
}

func (e *Exporter[T]) key(tenant string) string {
	return registry.Key(tenant, e.registry.Model())
}
