package index

// Hash maps a secondary-index key to the snapshot positions carrying that key.
// A Hash is only meaningful against the snapshot it was built from.
type Hash struct {
	buckets map[uint64]Bucket
}

// NewHash returns an empty hash index sized for n keys.
func NewHash(n int) *Hash {
	return &Hash{buckets: make(map[uint64]Bucket, n)}
}

// Add records that the entry at pos carries key.
func (h *Hash) Add(key uint64, pos int) {
	if b, ok := h.buckets[key]; ok {
		h.buckets[key] = b.Add(pos)
		return
	}
	h.buckets[key] = Single(pos)
}

// Lookup returns the bucket for key, if the key was observed at build time.
func (h *Hash) Lookup(key uint64) (Bucket, bool) {
	if h == nil {
		return nil, false
	}
	b, ok := h.buckets[key]
	return b, ok
}

// Len returns the number of distinct keys.
func (h *Hash) Len() int {
	if h == nil {
		return 0
	}
	return len(h.buckets)
}
