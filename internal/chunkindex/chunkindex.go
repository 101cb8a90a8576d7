// Package chunkindex provides a small int64-keyed lookup accelerator used
// to back point lookups into an otherwise order-canonical slice of
// entries, without taking on the burden of keeping the map itself in
// sorted order.
package chunkindex

import "github.com/brentp/intintmap"

// Index maps a packed int64 key (typically two packed int32 coordinates)
// to an int position in some caller-owned slice. It carries no ordering
// guarantees of its own: callers that need sorted iteration keep their own
// slice and use Index purely to accelerate Get.
type Index struct {
	m *intintmap.Map
}

// New constructs an Index sized for roughly capacity entries.
func New(capacity int) *Index {
	if capacity <= 0 {
		capacity = 1
	}
	return &Index{m: intintmap.New(capacity*2, 0.6)}
}

// Get returns the position stored under key, if any.
func (x *Index) Get(key int64) (int, bool) {
	v, ok := x.m.Get(key)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// Put records that key now maps to position.
func (x *Index) Put(key int64, position int) {
	x.m.Put(key, int64(position))
}

// Reset discards all entries and resizes the backing map for capacity new
// ones, for use after a bulk structural change (e.g. a slice delete that
// shifted every subsequent position).
func (x *Index) Reset(capacity int) {
	x.m = intintmap.New(capacity*2+1, 0.6)
}
