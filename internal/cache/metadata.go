package cache

import (
	"github.com/cespare/xxhash/v2"

	"objcache/internal/index"
)

// Metadata holds aggregate statistics of one published snapshot.
// The zero value describes a flushed cache.
type Metadata struct {
	Count       int    `json:"count"`
	Volume      int64  `json:"volume"`
	LastUpdated int64  `json:"last_updated"`
	Checksum    uint64 `json:"checksum"`
}

var separator = []byte{0}

// version is one self-consistent snapshot together with the indices and
// metadata built from it. Readers load a *version once and use only that.
type version[T any] struct {
	entries []Entry[T]
	hash    *index.Hash
	times   *index.Time
	meta    Metadata
}

func emptyVersion[T any]() *version[T] {
	return &version[T]{
		hash:  index.NewHash(0),
		times: index.NewTimeBuilder().Build(),
	}
}

// buildVersion indexes a sorted, deduplicated snapshot in a single pass.
func buildVersion[T any](entries []Entry[T], now int64) *version[T] {
	hash := index.NewHash(len(entries))
	times := index.NewTimeBuilder()
	digest := xxhash.New()
	var volume int64

	for i, e := range entries {
		for _, key := range e.IndexKeys {
			hash.Add(key, i)
		}
		times.Add(e.LastUpdated, i)
		volume += e.Size
		_, _ = digest.WriteString(e.Checksum)
		_, _ = digest.Write(separator)
	}

	return &version[T]{
		entries: entries,
		hash:    hash,
		times:   times.Build(),
		meta: Metadata{
			Count:       len(entries),
			Volume:      volume,
			LastUpdated: now,
			Checksum:    digest.Sum64(),
		},
	}
}
