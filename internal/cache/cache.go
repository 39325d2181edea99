// Package cache provides an in-memory, content-addressed object cache with a hash index
// for key-accelerated filtering and a time index for "changed since" queries.
//
// Each mutation builds a new checksum-sorted snapshot, indexes it and publishes snapshot,
// indices and metadata together through one atomic pointer swap. Readers never block and
// always observe a self-consistent version.
package cache

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// parallelThreshold is the batch size from which candidate entries are built concurrently.
const parallelThreshold = 512

// Option configures an IndexedCache.
type Option func(*options)

type options struct {
	clock   func() int64
	workers int
}

// WithClock sets the source of timestamps (Unix milliseconds) used for new entries
// and for the cache's last-updated time.
func WithClock(clock func() int64) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithWorkers limits the number of goroutines used to hash large batches.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// IndexedCache holds one tenant's snapshot of objects.
// It is safe for concurrent use; writers are serialized, readers never block.
type IndexedCache[T any] struct {
	hasher  ContentHasher[T]
	clock   func() int64
	workers int

	mu      sync.Mutex // serializes writers
	current atomic.Pointer[version[T]]
}

// New creates an empty cache that derives entry identity with hasher.
func New[T any](hasher ContentHasher[T], opts ...Option) *IndexedCache[T] {
	o := options{
		clock:   func() int64 { return time.Now().UnixMilli() },
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &IndexedCache[T]{
		hasher:  hasher,
		clock:   o.clock,
		workers: o.workers,
	}
	c.current.Store(emptyVersion[T]())
	return c
}

// Update reconciles the cache against objects, which are taken as the complete
// current state. Entries whose checksum is still present are kept untouched,
// entries whose checksum is absent are dropped and new checksums are added.
// An empty list is a no-op.
func (c *IndexedCache[T]) Update(objects []T) {
	if len(objects) == 0 {
		slog.Debug("empty list sent in, will not update cache")
		return
	}
	c.UpdateCache(c.wrap(objects))
}

// UpdateCache is Update for entries that were already built, for example
// when seeding from another cache's exported contents.
func (c *IndexedCache[T]) UpdateCache(entries []Entry[T]) {
	if len(entries) == 0 {
		return
	}
	candidates := byChecksum(entries)

	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.current.Load()
	next := make([]Entry[T], 0, len(candidates))
	var retained, dropped int
	for _, e := range cur.entries {
		if _, ok := candidates[e.Checksum]; ok {
			next = append(next, e)
			delete(candidates, e.Checksum)
			retained++
		} else {
			dropped++
		}
	}
	for _, e := range candidates {
		next = append(next, e)
	}

	c.publish(sortByChecksum(next))
	slog.Debug("cache reconciled",
		"retained", retained,
		"dropped", dropped,
		"added", len(candidates),
	)
}

// Add merges objects into the cache without removing anything.
// An object whose checksum is already cached replaces the cached entry.
// An empty list is a no-op.
func (c *IndexedCache[T]) Add(objects []T) {
	if len(objects) == 0 {
		slog.Debug("empty list sent in, will not add to cache")
		return
	}
	c.AddCache(c.wrap(objects))
}

// AddCache is Add for entries that were already built.
func (c *IndexedCache[T]) AddCache(entries []Entry[T]) {
	if len(entries) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.current.Load()
	merged := make(map[string]Entry[T], len(cur.entries)+len(entries))
	for _, e := range cur.entries {
		merged[e.Checksum] = e
	}
	for _, e := range entries {
		merged[e.Checksum] = e
	}

	next := make([]Entry[T], 0, len(merged))
	for _, e := range merged {
		next = append(next, e)
	}
	c.publish(sortByChecksum(next))
}

// Flush empties the cache and resets its metadata.
func (c *IndexedCache[T]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Store(emptyVersion[T]())
}

// All returns every cached object in checksum order.
func (c *IndexedCache[T]) All() []T {
	v := c.current.Load()
	out := make([]T, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.Object
	}
	return out
}

// Since returns the objects last updated strictly after timestamp,
// ordered by update time.
func (c *IndexedCache[T]) Since(timestamp int64) []T {
	v := c.current.Load()
	var out []T
	for pos := range v.times.Since(timestamp) {
		out = append(out, v.entries[pos].Object)
	}
	return out
}

// Entries returns a copy of the current snapshot.
func (c *IndexedCache[T]) Entries() []Entry[T] {
	v := c.current.Load()
	out := make([]Entry[T], len(v.entries))
	copy(out, v.entries)
	return out
}

// EntriesSince returns the entries last updated strictly after timestamp.
func (c *IndexedCache[T]) EntriesSince(timestamp int64) []Entry[T] {
	v := c.current.Load()
	var out []Entry[T]
	for pos := range v.times.Since(timestamp) {
		out = append(out, v.entries[pos])
	}
	return out
}

// Filter scans the whole snapshot and returns the objects matching pred.
func (c *IndexedCache[T]) Filter(pred func(T) bool) []T {
	return filterAll(c.current.Load(), pred)
}

// FilterIndexed returns the objects matching pred, scanning only the entries
// indexed under key. If key was never observed, it falls back to a full scan.
func (c *IndexedCache[T]) FilterIndexed(key uint64, pred func(T) bool) []T {
	v := c.current.Load()
	bucket, ok := v.hash.Lookup(key)
	if !ok {
		return filterAll(v, pred)
	}
	var out []T
	for pos := range bucket.All() {
		if obj := v.entries[pos].Object; pred(obj) {
			out = append(out, obj)
		}
	}
	return out
}

// Size returns the number of cached objects.
func (c *IndexedCache[T]) Size() int {
	return c.current.Load().meta.Count
}

// Volume returns the summed size of the cached objects.
func (c *IndexedCache[T]) Volume() int64 {
	return c.current.Load().meta.Volume
}

// LastUpdated returns the time of the last mutation, or 0 for a flushed cache.
func (c *IndexedCache[T]) LastUpdated() int64 {
	return c.current.Load().meta.LastUpdated
}

// Metadata returns the aggregate statistics of the current snapshot.
func (c *IndexedCache[T]) Metadata() Metadata {
	return c.current.Load().meta
}

// publish indexes entries and makes them the current version. Callers hold c.mu.
func (c *IndexedCache[T]) publish(entries []Entry[T]) {
	c.current.Store(buildVersion(entries, c.clock()))
}

// wrap builds candidate entries for objects, hashing large batches concurrently.
func (c *IndexedCache[T]) wrap(objects []T) []Entry[T] {
	now := c.clock()
	out := make([]Entry[T], len(objects))

	if len(objects) < parallelThreshold || c.workers < 2 {
		for i, obj := range objects {
			out[i] = NewEntry(obj, c.hasher, now)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	chunk := (len(objects) + c.workers - 1) / c.workers
	for start := 0; start < len(objects); start += chunk {
		end := min(start+chunk, len(objects))
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = NewEntry(objects[i], c.hasher, now)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never fail
	return out
}

func filterAll[T any](v *version[T], pred func(T) bool) []T {
	var out []T
	for _, e := range v.entries {
		if pred(e.Object) {
			out = append(out, e.Object)
		}
	}
	return out
}
