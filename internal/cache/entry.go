package cache

import (
	"cmp"
	"slices"
)

// Entry pairs a cached object with its content checksum, derived index keys,
// size in bytes and last update time (Unix milliseconds).
// Entries are treated as immutable once built.
type Entry[T any] struct {
	Object      T        `json:"object"`
	Checksum    string   `json:"checksum"`
	IndexKeys   []uint64 `json:"index_keys,omitempty"`
	Size        int64    `json:"size"`
	LastUpdated int64    `json:"last_updated"`
}

// ContentHasher is the capability a payload type supplies to be cached.
// All methods must be pure functions of the object's content.
type ContentHasher[T any] interface {
	// Checksum returns the content identity of obj.
	Checksum(obj T) string
	// IndexKeys returns the secondary-index keys obj should be found under.
	IndexKeys(obj T) []uint64
	// Size returns the number of bytes obj accounts for in the cache volume.
	Size(obj T) int64
}

// HasherFuncs adapts plain functions to ContentHasher.
// IndexKeysFunc and SizeFunc may be nil.
type HasherFuncs[T any] struct {
	ChecksumFunc  func(T) string
	IndexKeysFunc func(T) []uint64
	SizeFunc      func(T) int64
}

func (h HasherFuncs[T]) Checksum(obj T) string { return h.ChecksumFunc(obj) }

func (h HasherFuncs[T]) IndexKeys(obj T) []uint64 {
	if h.IndexKeysFunc == nil {
		return nil
	}
	return h.IndexKeysFunc(obj)
}

func (h HasherFuncs[T]) Size(obj T) int64 {
	if h.SizeFunc == nil {
		return 0
	}
	return h.SizeFunc(obj)
}

// NewEntry wraps obj using hasher, stamped with lastUpdated.
func NewEntry[T any](obj T, hasher ContentHasher[T], lastUpdated int64) Entry[T] {
	return Entry[T]{
		Object:      obj,
		Checksum:    hasher.Checksum(obj),
		IndexKeys:   hasher.IndexKeys(obj),
		Size:        hasher.Size(obj),
		LastUpdated: lastUpdated,
	}
}

// byChecksum keys entries by checksum; a later entry replaces an earlier one.
func byChecksum[T any](entries []Entry[T]) map[string]Entry[T] {
	m := make(map[string]Entry[T], len(entries))
	for _, e := range entries {
		m[e.Checksum] = e
	}
	return m
}

// sortByChecksum sorts entries in place and returns them.
func sortByChecksum[T any](entries []Entry[T]) []Entry[T] {
	slices.SortFunc(entries, func(a, b Entry[T]) int {
		return cmp.Compare(a.Checksum, b.Checksum)
	})
	return entries
}
