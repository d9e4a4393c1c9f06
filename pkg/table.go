package dfsblockcache

// table.go implements ClockBlockCacheTable: a striped, single-flight,
// clock-evicted block cache. A table is split into a fixed number of
// independent stripes to bound lock contention; each stripe owns its own
// bucket map, its own CLOCK ring, and its own single-flight bookkeeping, so
// eviction always runs inside the inserting goroutine's own stripe lock and
// never crosses stripes.
//
// Lookups walk a stripe's bucket chain under a read lock and compare keys by
// value; a Ref's value is published with release semantics (atomic.Pointer
// store) and observed with acquire semantics (atomic.Pointer load), so a hit
// never blocks behind an in-flight load in another stripe.
//
// Single-flight is hand-rolled rather than delegated wholesale to
// golang.org/x/sync/singleflight: exactly one concurrent caller must record
// the miss and exactly one waiter must retry after a failed load, which
// needs the sentinel installed atomically with leadership election under
// the stripe lock.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/voskan/dfsblockcache/internal/bitutil"
)

// refID identifies one (stream, aligned position) slot inside a stripe's
// bucket chain. Buckets may still collide on refID in theory (two distinct
// keys hashing to the same value); chain entries are always re-checked by
// full key equality before being treated as a match.
type refID struct {
	h   uint64
	pos int64
}

// loadCall is the sentinel installed while a load for one refID is
// in-flight. Waiters block on done; the leader publishes ref/err and closes
// it exactly once.
type loadCall struct {
	done    chan struct{}
	pos     int64
	ref     *Ref[Block]
	err     error
	retried bool // guarded by the owning stripe's mu
}

type clockNode struct {
	prev, next *clockNode
	ref        *Ref[Block]
}

// stripe owns one slice of the table's key space: its bucket chains, its
// own CLOCK ring, and its own in-flight load registry.
type stripe struct {
	mu sync.RWMutex

	items    map[refID][]*clockNode
	inflight map[refID]*loadCall

	// CLOCK ring: circular doubly-linked list of every live+ghost node in
	// this stripe, with hand pointing at the next eviction candidate.
	head *clockNode
	hand *clockNode
	size int // number of nodes currently in the ring
}

func newStripe() *stripe {
	return &stripe{
		items:    make(map[refID][]*clockNode),
		inflight: make(map[refID]*loadCall),
	}
}

// ClockBlockCacheTable is the shared, concurrent block cache: a striped hash
// table of Refs, a clock eviction list per stripe, and single-flight
// loading per (stream, position).
type ClockBlockCacheTable struct {
	name    string
	cfg     *Config
	stripes []*stripe
	stats   *Stats
	metrics metricsSink
	logger  *zap.Logger
}

// NewClockBlockCacheTable constructs a table named name (used in metric
// labels and multi-table reporting) with the given options applied over
// the package defaults.
func NewClockBlockCacheTable(name string, opts ...Option) (*ClockBlockCacheTable, error) {
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	t := &ClockBlockCacheTable{
		name:    name,
		cfg:     cfg,
		stripes: make([]*stripe, cfg.ConcurrencyLevel),
		stats:   newStats(name),
		metrics: newMetricsSink(cfg.registry),
		logger:  cfg.logger,
	}
	for i := range t.stripes {
		t.stripes[i] = newStripe()
	}
	return t, nil
}

// Name returns the table's name, used for partitioned/aggregated reporting.
func (t *ClockBlockCacheTable) Name() string { return t.name }

func (t *ClockBlockCacheTable) stripeFor(key StreamKey, pos int64) *stripe {
	h := positionHash(key, pos)
	idx := h & uint64(len(t.stripes)-1)
	return t.stripes[idx]
}

func refIDFor(key StreamKey, pos int64) refID {
	return refID{h: positionHash(key, pos), pos: pos}
}

// lookupLive scans the bucket chain for (key, pos) under the stripe's read
// lock: it runs alongside other lookups in the stripe but waits while a
// writer holds the stripe lock. It is not lock-free.
func (s *stripe) lookupLive(key StreamKey, pos int64) (*Ref[Block], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(key, pos)
}

func (s *stripe) lookupLocked(key StreamKey, pos int64) (*Ref[Block], bool) {
	id := refIDFor(key, pos)
	for _, n := range s.items[id] {
		if n.ref.Position == pos && n.ref.Key.Equal(key) && n.ref.Has() {
			return n.ref, true
		}
	}
	return nil, false
}

// HasBlockZero reports whether the first block of key's stream (position 0)
// is currently live, without affecting hit/miss counters.
func (t *ClockBlockCacheTable) HasBlockZero(key StreamKey) bool {
	s := t.stripeFor(key, 0)
	_, ok := s.lookupLive(key, 0)
	return ok
}

// Contains reports whether (key, pos) is currently live. Does not affect
// statistics.
func (t *ClockBlockCacheTable) Contains(key StreamKey, pos int64) bool {
	s := t.stripeFor(key, pos)
	_, ok := s.lookupLive(key, pos)
	return ok
}

// Get looks up (key, pos), counting the access as a hit or miss.
func (t *ClockBlockCacheTable) Get(key StreamKey, pos int64) (*Block, bool) {
	s := t.stripeFor(key, pos)
	ref, ok := s.lookupLive(key, pos)
	if !ok {
		t.stats.recordMiss(key.ExtIndex())
		t.metrics.incMiss(t.name, key.Ext)
		return nil, false
	}
	ref.MarkHot()
	t.stats.recordHit(key.ExtIndex())
	t.metrics.incHit(t.name, key.Ext)
	return ref.Get(), true
}

// Stats returns a point-in-time snapshot of this table's counters.
func (t *ClockBlockCacheTable) Stats() Snapshot {
	return t.stats.Snapshot()
}

// Put installs an externally-loaded block. No-op if an entry already lives
// at (block.Key, block.Start).
func (t *ClockBlockCacheTable) Put(block *Block) {
	s := t.stripeFor(block.Key, block.Start)
	s.mu.Lock()
	if _, ok := s.lookupLocked(block.Key, block.Start); ok {
		s.mu.Unlock()
		return
	}
	ref := newRef(block.Key, block.Start, block.Size(), block)
	t.publishLocked(s, ref)
	s.mu.Unlock()
}

// PutRef installs value under (key, pos) charged at size bytes, returning
// the live Ref. Same single-flight-free install path as Put; if an entry is
// already live it is returned unchanged.
func (t *ClockBlockCacheTable) PutRef(key StreamKey, pos int64, size int, value *Block) *Ref[Block] {
	s := t.stripeFor(key, pos)
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.lookupLocked(key, pos); ok {
		return ref
	}
	ref := newRef(key, pos, size, value)
	t.publishLocked(s, ref)
	return ref
}

// PutVal installs value under (key, 0) charged at size bytes; a convenience
// for non-positional caching (e.g. small whole-file objects).
func (t *ClockBlockCacheTable) PutVal(key StreamKey, size int, value *Block) *Ref[Block] {
	return t.PutRef(key, 0, size, value)
}

// findNodeLocked returns the existing node for (key, pos) regardless of
// whether it is still live or has been ghosted by eviction. Caller must
// hold s.mu.
func (s *stripe) findNodeLocked(key StreamKey, pos int64) (*clockNode, bool) {
	id := refIDFor(key, pos)
	for _, n := range s.items[id] {
		if n.ref.Position == pos && n.ref.Key.Equal(key) {
			return n, true
		}
	}
	return nil, false
}

// publishLocked installs ref into the stripe's bucket chain and clock ring,
// running eviction first to keep the table's total live bytes close to
// budget. If a ghost entry already occupies (ref.Key, ref.Position) it is
// superseded in place (state diagram: ghost --overwrite(put)--> loading)
// rather than leaking a second node for the same slot. Caller must hold
// s.mu.
func (t *ClockBlockCacheTable) publishLocked(s *stripe, ref *Ref[Block]) {
	t.reserveSpaceLocked(s, int64(ref.Size))

	if node, ok := s.findNodeLocked(ref.Key, ref.Position); ok {
		node.ref = ref
	} else {
		node := &clockNode{ref: ref}
		s.appendNode(node)
		id := refIDFor(ref.Key, ref.Position)
		s.items[id] = append(s.items[id], node)
	}

	ext := ref.Key.ExtIndex()
	t.stats.addLiveBytes(ext, int64(ref.Size))
	t.metrics.setLiveBytes(t.name, ref.Key.Ext, t.stats.totalLiveBytes())
}

func (s *stripe) appendNode(n *clockNode) {
	if s.head == nil {
		n.next, n.prev = n, n
		s.head = n
		s.hand = n
	} else {
		tail := s.head.prev
		tail.next = n
		n.prev = tail
		n.next = s.head
		s.head.prev = n
	}
	s.size++
}

// removeNode unlinks n from the ring, maintaining the hand pointer.
func (s *stripe) removeNode(n *clockNode) {
	if s.size <= 1 {
		s.head, s.hand = nil, nil
		s.size = 0
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	if s.head == n {
		s.head = n.next
	}
	if s.hand == n {
		s.hand = n.next
	}
	s.size--
}

// reserveSpaceLocked runs the clock eviction sweep until the table's total
// live bytes plus need fits under BlockLimit, or the bounded number of
// steps is exhausted. Caller must hold s.mu; eviction only ever inspects
// nodes belonging to this stripe, so it never needs to coordinate with any
// other stripe's lock.
func (t *ClockBlockCacheTable) reserveSpaceLocked(s *stripe, need int64) {
	if t.stats.totalLiveBytes()+need <= t.cfg.BlockLimit {
		return
	}
	maxSteps := 2 * bitutil.NextPow2(maxInt(s.size, 1))
	steps := 0
	for t.stats.totalLiveBytes()+need > t.cfg.BlockLimit && s.size > 0 && steps < maxSteps {
		n := s.hand
		ref := n.ref
		switch {
		case !ref.Has():
			// Already ghosted by a previous sweep or never live (shouldn't
			// normally happen); advance past it.
		case ref.ClearHot():
			// Referenced since last sweep: give it a second chance, clear
			// the bit, keep it live.
		default:
			ext := ref.Key.ExtIndex()
			size := int64(ref.Size)
			ref.Clear()
			t.stats.addLiveBytes(ext, -size)
			t.stats.recordEvict(ext)
			t.metrics.incEvict(t.name, ref.Key.Ext)
		}
		s.hand = n.next
		steps++
	}
	if t.stats.totalLiveBytes()+need > t.cfg.BlockLimit {
		t.logger.Warn("clock sweep exhausted its step budget without reaching the byte budget",
			zap.String("table", t.name),
			zap.Int("steps", steps),
			zap.Int64("live_bytes", t.stats.totalLiveBytes()),
			zap.Int64("block_limit", t.cfg.BlockLimit),
		)
	}
}

// GetOrLoadRef is the single-flight primitive behind GetOrLoad, also
// callable directly by a caller that wants to install a value under a
// custom loader without going through a BlockBasedFile. Exactly one
// concurrent caller per (key, pos) executes loader; all others block on the
// same result. On failure, exactly one waiter re-enters as the new leader;
// the rest observe the error.
func (t *ClockBlockCacheTable) GetOrLoadRef(key StreamKey, pos int64, loader func() (*Block, int, error)) (*Ref[Block], error) {
	s := t.stripeFor(key, pos)

	if ref, ok := s.lookupLive(key, pos); ok {
		ref.MarkHot()
		t.stats.recordHit(key.ExtIndex())
		t.metrics.incHit(t.name, key.Ext)
		return ref, nil
	}

	id := refIDFor(key, pos)

	s.mu.Lock()
	if ref, ok := s.lookupLocked(key, pos); ok {
		s.mu.Unlock()
		ref.MarkHot()
		t.stats.recordHit(key.ExtIndex())
		t.metrics.incHit(t.name, key.Ext)
		return ref, nil
	}
	if call, inflight := s.inflight[id]; inflight {
		s.mu.Unlock()
		return t.awaitCall(s, id, key, loader, call)
	}

	call := &loadCall{done: make(chan struct{}), pos: pos}
	s.inflight[id] = call
	s.mu.Unlock()

	t.runLoad(s, id, key, pos, loader, call)

	t.stats.recordMiss(key.ExtIndex())
	t.metrics.incMiss(t.name, key.Ext)
	if call.err != nil {
		return nil, call.err
	}
	return call.ref, nil
}

// runLoad executes loader outside any lock, then re-acquires the stripe
// lock to install the result (or remove the sentinel on failure) and wakes
// every waiter.
func (t *ClockBlockCacheTable) runLoad(s *stripe, id refID, key StreamKey, pos int64, loader func() (*Block, int, error), call *loadCall) {
	val, size, err := loader()

	s.mu.Lock()
	delete(s.inflight, id)
	if err != nil {
		call.err = fmt.Errorf("%w: %w", ErrLoadFailed, err)
		s.mu.Unlock()
		t.logger.Error("block load failed",
			zap.String("table", t.name),
			zap.String("stream", key.String()),
			zap.Int64("pos", pos),
			zap.Error(err),
		)
		close(call.done)
		return
	}
	ref := newRef(key, pos, size, val)
	t.publishLocked(s, ref)
	call.ref = ref
	s.mu.Unlock()
	close(call.done)
}

// awaitCall blocks until the in-flight call for id completes. On success it
// is a hit; on failure, exactly one waiter (the first to win the retry
// race) re-enters GetOrLoadRef as the new leader, and the rest propagate
// the failure.
func (t *ClockBlockCacheTable) awaitCall(s *stripe, id refID, key StreamKey, loader func() (*Block, int, error), call *loadCall) (*Ref[Block], error) {
	<-call.done
	if call.err == nil {
		call.ref.MarkHot()
		t.stats.recordHit(key.ExtIndex())
		t.metrics.incHit(t.name, key.Ext)
		return call.ref, nil
	}

	s.mu.Lock()
	shouldRetry := !call.retried
	if shouldRetry {
		call.retried = true
	}
	s.mu.Unlock()

	if shouldRetry {
		return t.GetOrLoadRef(key, call.pos, loader)
	}
	return nil, call.err
}

// GetOrLoad is the block-cache read path: translate an already
// block-size-aligned position into a cached Block, loading one block via
// file's channel supplier on miss.
func (t *ClockBlockCacheTable) GetOrLoad(file *BlockBasedFile, pos int64, supplier ChannelSupplier) (*Block, error) {
	if file.invalidCause != nil {
		return nil, newInvalidError(file.invalidCause)
	}
	aligned := file.Align(pos)
	ref, err := t.GetOrLoadRef(file.Key, aligned, func() (*Block, int, error) {
		blk, err := file.readOneBlock(aligned, supplier)
		if err != nil {
			return nil, 0, err
		}
		return blk, blk.Size(), nil
	})
	if err != nil {
		return nil, err
	}
	blk := ref.Get()
	if blk == nil {
		// Ghosted between publish and our read: treat as a fresh miss for
		// the caller to retry: no entry survives, nothing else to clean up.
		return nil, ErrLoadFailed
	}
	return blk, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
