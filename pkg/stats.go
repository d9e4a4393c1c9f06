package dfsblockcache

// stats.go implements per-extension counters with lock-free increments:
// counters live in a slice reached through an atomic.Pointer; an increment
// for an ext-index beyond the current length grows a fresh, larger slice
// via compare-and-swap rather than taking a lock on the hit path.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"sync/atomic"
)

// counterVec is a growable vector of atomic counters, indexed by ext-index.
type counterVec struct {
	vec atomic.Pointer[[]*atomic.Uint64]
}

func newCounterVec(n int) *counterVec {
	cv := &counterVec{}
	v := make([]*atomic.Uint64, n)
	for i := range v {
		v[i] = new(atomic.Uint64)
	}
	cv.vec.Store(&v)
	return cv
}

// cell returns the counter for idx, growing the vector first if needed.
func (cv *counterVec) cell(idx int) *atomic.Uint64 {
	for {
		p := cv.vec.Load()
		v := *p
		if idx < len(v) {
			return v[idx]
		}
		grown := make([]*atomic.Uint64, idx+1)
		copy(grown, v)
		for i := len(v); i < len(grown); i++ {
			grown[i] = new(atomic.Uint64)
		}
		if cv.vec.CompareAndSwap(p, &grown) {
			return grown[idx]
		}
		// Lost the race to another grower; retry against whatever is
		// current now (it will already be large enough or we loop again).
	}
}

func (cv *counterVec) add(idx int, delta uint64) {
	cv.cell(idx).Add(delta)
}

func (cv *counterVec) sub(idx int, delta int64) {
	cv.cell(idx).Add(uint64(-delta))
}

// snapshot returns a defensive copy of current values, length equal to the
// live vector at the time of the call.
func (cv *counterVec) snapshot() []uint64 {
	v := *cv.vec.Load()
	out := make([]uint64, len(v))
	for i, c := range v {
		out[i] = c.Load()
	}
	return out
}

// Stats holds the per-extension hit/miss/eviction/live-bytes counters for
// one table. All increments are atomic; reads are eventually consistent.
type Stats struct {
	name string

	hit      *counterVec
	miss     *counterVec
	evict    *counterVec
	liveByte *counterVec
}

// newStats constructs a Stats pre-sized for the well-known extension
// catalogue; it grows transparently if an unexpected ext-index arrives.
func newStats(name string) *Stats {
	return &Stats{
		name:     name,
		hit:      newCounterVec(extCatalogSize),
		miss:     newCounterVec(extCatalogSize),
		evict:    newCounterVec(extCatalogSize),
		liveByte: newCounterVec(extCatalogSize),
	}
}

func (s *Stats) recordHit(ext int)   { s.hit.add(ext, 1) }
func (s *Stats) recordMiss(ext int)  { s.miss.add(ext, 1) }
func (s *Stats) recordEvict(ext int) { s.evict.add(ext, 1) }

func (s *Stats) addLiveBytes(ext int, delta int64) {
	if delta >= 0 {
		s.liveByte.add(ext, uint64(delta))
	} else {
		s.liveByte.sub(ext, -delta)
	}
}

// totalLiveBytes sums live-bytes across all known extensions; used by the
// table's budget check.
func (s *Stats) totalLiveBytes() int64 {
	var total int64
	for _, v := range s.liveByte.snapshot() {
		total += int64(v)
	}
	return total
}

// Snapshot is a point-in-time, immutable view of a table's statistics,
// suitable for JSON export (see pkg/snapshot.go) or Prometheus scraping.
type Snapshot struct {
	Name string `json:"name"`

	CurrentSize  []int64 `json:"current_size"`
	HitCount     []int64 `json:"hit_count"`
	MissCount    []int64 `json:"miss_count"`
	TotalRequest []int64 `json:"total_request_count"`
	EvictCount   []int64 `json:"eviction_count"`
	HitRatio     []int64 `json:"hit_ratio"` // integer percent
}

// Snapshot produces an immutable view of the current counters.
func (s *Stats) Snapshot() Snapshot {
	hit := s.hit.snapshot()
	miss := s.miss.snapshot()
	evict := s.evict.snapshot()
	live := s.liveByte.snapshot()

	n := maxLen(hit, miss, evict, live)
	out := Snapshot{
		Name:         s.name,
		CurrentSize:  make([]int64, n),
		HitCount:     make([]int64, n),
		MissCount:    make([]int64, n),
		TotalRequest: make([]int64, n),
		EvictCount:   make([]int64, n),
		HitRatio:     make([]int64, n),
	}
	for i := 0; i < n; i++ {
		h := at(hit, i)
		m := at(miss, i)
		out.HitCount[i] = int64(h)
		out.MissCount[i] = int64(m)
		out.EvictCount[i] = int64(at(evict, i))
		out.CurrentSize[i] = int64(at(live, i))
		out.TotalRequest[i] = int64(h + m)
		out.HitRatio[i] = hitRatio(h, m)
	}
	return out
}

// hitRatio computes the integer percent hit ratio for one extension:
// 0 when there were no requests, 100 when only hits occurred, otherwise
// hit*100/(hit+miss), truncated toward zero.
func hitRatio(hit, miss uint64) int64 {
	total := hit + miss
	if total == 0 {
		return 0
	}
	return int64(hit * 100 / total)
}

func at(v []uint64, i int) uint64 {
	if i >= len(v) {
		return 0
	}
	return v[i]
}

func maxLen(vs ...[]uint64) int {
	n := 0
	for _, v := range vs {
		if len(v) > n {
			n = len(v)
		}
	}
	return n
}

// AggregateSnapshots combines multiple per-table snapshots into one,
// summing counters index-wise. Snapshots with fewer extensions than the
// widest one in the set are zero-extended rather than having their last
// element replicated across the missing tail.
func AggregateSnapshots(name string, snaps ...Snapshot) Snapshot {
	n := 0
	for _, s := range snaps {
		if len(s.HitCount) > n {
			n = len(s.HitCount)
		}
	}
	out := Snapshot{
		Name:         name,
		CurrentSize:  make([]int64, n),
		HitCount:     make([]int64, n),
		MissCount:    make([]int64, n),
		TotalRequest: make([]int64, n),
		EvictCount:   make([]int64, n),
		HitRatio:     make([]int64, n),
	}
	for _, s := range snaps {
		for i := 0; i < n; i++ {
			out.CurrentSize[i] += at64(s.CurrentSize, i)
			out.HitCount[i] += at64(s.HitCount, i)
			out.MissCount[i] += at64(s.MissCount, i)
			out.EvictCount[i] += at64(s.EvictCount, i)
		}
	}
	for i := 0; i < n; i++ {
		out.TotalRequest[i] = out.HitCount[i] + out.MissCount[i]
		out.HitRatio[i] = hitRatio(uint64(out.HitCount[i]), uint64(out.MissCount[i]))
	}
	return out
}

func at64(v []int64, i int) int64 {
	if i >= len(v) {
		return 0
	}
	return v[i]
}
