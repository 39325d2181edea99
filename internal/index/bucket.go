// Package index provides the secondary indices rebuilt alongside every cache snapshot:
// a hash index from lookup key to snapshot positions and a time index from update
// timestamp to snapshot positions.
package index

import (
	"iter"

	"github.com/bits-and-blooms/bitset"
)

// Bucket is the set of snapshot positions sharing one index key.
// A bucket starts as Single and escalates to Multiple once a second
// distinct position is added.
type Bucket interface {
	// Add returns the bucket that results from adding pos.
	// The receiver must not be used afterwards.
	Add(pos int) Bucket
	// Len returns the number of positions held.
	Len() int
	// All yields positions in ascending order.
	All() iter.Seq[int]

	sealed()
}

// Single holds exactly one position.
type Single int

// Add escalates to Multiple unless pos is already held.
func (s Single) Add(pos int) Bucket {
	if int(s) == pos {
		return s
	}
	m := Multiple{set: bitset.New(0)}
	m.set.Set(uint(s)).Set(uint(pos))
	return m
}

// Len is always 1.
func (s Single) Len() int { return 1 }

// All yields the single position.
func (s Single) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		yield(int(s))
	}
}

func (Single) sealed() {}

// Multiple holds two or more positions.
type Multiple struct {
	set *bitset.BitSet
}

// Add sets pos in place and returns the same bucket.
func (m Multiple) Add(pos int) Bucket {
	m.set.Set(uint(pos))
	return m
}

// Len returns the number of positions held.
func (m Multiple) Len() int { return int(m.set.Count()) }

// All yields positions in ascending order.
func (m Multiple) All() iter.Seq[int] {
	return eachSet(m.set)
}

func (Multiple) sealed() {}

// eachSet yields the set bits of b in ascending order.
func eachSet(b *bitset.BitSet) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
			if !yield(int(i)) {
				return
			}
		}
	}
}
