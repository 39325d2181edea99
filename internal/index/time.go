package index

import (
	"iter"
	"slices"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Time is an ordered mapping from update timestamp to the snapshot positions
// updated at exactly that timestamp. It is immutable once built.
type Time struct {
	stamps []int64
	sets   []*bitset.BitSet
}

// TimeBuilder accumulates positions per timestamp before freezing them into a Time.
type TimeBuilder struct {
	sets map[int64]*bitset.BitSet
}

// NewTimeBuilder returns an empty builder.
func NewTimeBuilder() *TimeBuilder {
	return &TimeBuilder{sets: make(map[int64]*bitset.BitSet)}
}

// Add records that the entry at pos was last updated at ts.
func (b *TimeBuilder) Add(ts int64, pos int) {
	set, ok := b.sets[ts]
	if !ok {
		set = bitset.New(0)
		b.sets[ts] = set
	}
	set.Set(uint(pos))
}

// Build freezes the builder into a Time sorted by timestamp.
func (b *TimeBuilder) Build() *Time {
	stamps := make([]int64, 0, len(b.sets))
	for ts := range b.sets {
		stamps = append(stamps, ts)
	}
	slices.Sort(stamps)

	sets := make([]*bitset.BitSet, len(stamps))
	for i, ts := range stamps {
		sets[i] = b.sets[ts]
	}
	return &Time{stamps: stamps, sets: sets}
}

// Since yields the positions of every entry updated strictly after ts,
// in timestamp order and ascending position order within one timestamp.
func (t *Time) Since(ts int64) iter.Seq[int] {
	return func(yield func(int) bool) {
		if t == nil {
			return
		}
		start := sort.Search(len(t.stamps), func(i int) bool { return t.stamps[i] > ts })
		for _, set := range t.sets[start:] {
			for pos := range eachSet(set) {
				if !yield(pos) {
					return
				}
			}
		}
	}
}

// Len returns the number of distinct timestamps.
func (t *Time) Len() int {
	if t == nil {
		return 0
	}
	return len(t.stamps)
}
