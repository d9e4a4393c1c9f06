package dfsblockcache

// ref.go defines Ref[V], the cache entry wrapper: identity, the bytes it is
// charged for, the value itself (which may be cleared to evict while the
// slot remains for accounting until it is removed from the table), and the
// CLOCK hot bit.
//
// Ref.value is published with release semantics (atomic.Pointer.Store) and
// observed with acquire semantics (atomic.Pointer.Load), so a Ref already
// handed out can be read while the evictor clears it, without a lock. Table
// lookups walk a bucket chain under the stripe's read lock and treat a nil
// (cleared) value as a miss.
//
// © 2025 dfsblockcache authors. MIT License.

import "sync/atomic"

// Ref is a cache entry: the identity of the cached region, its charged
// size, and a value slot that can be atomically cleared by the clock
// evictor without removing the slot from the table.
type Ref[V any] struct {
	Key      StreamKey
	Position int64
	Size     int

	value atomic.Pointer[V]
	hot   atomic.Bool
}

// newRef constructs a live Ref holding val, already marked hot: a
// freshly-loaded entry is, by definition, the thing that was just
// referenced.
func newRef[V any](key StreamKey, pos int64, size int, val *V) *Ref[V] {
	r := &Ref[V]{Key: key, Position: pos, Size: size}
	r.value.Store(val)
	r.hot.Store(true)
	return r
}

// Get returns the current value, or nil if the entry has been cleared
// (ghosted) by eviction.
func (r *Ref[V]) Get() *V {
	return r.value.Load()
}

// Has reports whether the entry currently holds a live value.
func (r *Ref[V]) Has() bool {
	return r.value.Load() != nil
}

// Clear evicts the value, turning the entry into a ghost. The slot itself
// (Key, Position, Size) is left intact for accounting until a subsequent
// Table mutation removes it from the bucket chain.
func (r *Ref[V]) Clear() {
	r.value.Store(nil)
}

// MarkHot sets the CLOCK reference bit; called on every successful hit.
func (r *Ref[V]) MarkHot() {
	r.hot.Store(true)
}

// ClearHot clears the CLOCK reference bit and returns its previous value;
// called by the clock evictor's sweep.
func (r *Ref[V]) ClearHot() bool {
	return r.hot.Swap(false)
}

// IsHot reports the current state of the reference bit without clearing it.
func (r *Ref[V]) IsHot() bool {
	return r.hot.Load()
}
