//go:build goexperiment.arenas

// Package offheap provides a thin wrapper around Go's experimental `arena`
// package, used to allocate the backing byte arrays of cached Block payloads
// outside the GC-scanned heap.
//
// Blocks are read at very high rate and are immutable once constructed, which
// is exactly the allocation pattern arenas are good at: many same-shaped
// buffers, freed in bulk rather than one at a time.
//
// Concurrency: Arena is not thread-safe. Each ClockBlockCacheTable stripe
// owns one Arena and only ever allocates from it while holding its own
// stripe lock, so no additional synchronization is required here.
//
// © 2025 dfsblockcache authors. MIT License.
package offheap

import "arena"

// Arena is a new-type wrapper preventing callers from depending directly on
// the experimental arena.Arena, so the allocator can be swapped later.
type Arena struct{ ar arena.Arena }

// New constructs an empty arena ready for allocations.
func New() *Arena {
	return &Arena{}
}

// Free releases all memory allocated in the arena. Pointers and slices
// previously returned by this Arena become invalid.
func (a *Arena) Free() {
	a.ar.Free()
	a.ar = arena.Arena{}
}

// AllocBytes copies buf into the arena and returns the new, arena-owned
// slice. Used to give a freshly read block its permanent backing storage.
// A nil Arena falls back to a plain heap copy, for callers (tests,
// benchmarks) that don't own one.
func AllocBytes(a *Arena, buf []byte) []byte {
	if a == nil {
		dst := make([]byte, len(buf))
		copy(dst, buf)
		return dst
	}
	dst := arena.MakeSlice[byte](&a.ar, len(buf), len(buf))
	copy(dst, buf)
	return dst
}
