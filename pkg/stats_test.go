package dfsblockcache

import "testing"

func TestCounterVecGrowsOnDemand(t *testing.T) {
	cv := newCounterVec(2)
	cv.add(0, 5)
	cv.add(5, 3) // beyond initial length: must grow transparently
	snap := cv.snapshot()
	if len(snap) < 6 {
		t.Fatalf("expected vector to grow to at least 6 cells, got %d", len(snap))
	}
	if snap[0] != 5 || snap[5] != 3 {
		t.Fatalf("unexpected snapshot values: %v", snap)
	}
}

func TestStatsHitRatio(t *testing.T) {
	s := newStats("t")
	ext := int(ExtPack)
	for i := 0; i < 75; i++ {
		s.recordHit(ext)
	}
	for i := 0; i < 25; i++ {
		s.recordMiss(ext)
	}
	snap := s.Snapshot()
	if snap.HitRatio[ext] != 75 {
		t.Fatalf("expected hit ratio 75, got %d", snap.HitRatio[ext])
	}
	if snap.TotalRequest[ext] != 100 {
		t.Fatalf("expected total request count 100, got %d", snap.TotalRequest[ext])
	}
}

func TestStatsLiveBytesRoundTrip(t *testing.T) {
	s := newStats("t")
	ext := int(ExtPack)
	s.addLiveBytes(ext, 4096)
	s.addLiveBytes(ext, -1024)
	if got := s.totalLiveBytes(); got != 3072 {
		t.Fatalf("expected 3072 live bytes, got %d", got)
	}
}

func TestAggregateSnapshotsZeroExtendsShorterVectors(t *testing.T) {
	short := Snapshot{
		Name:         "a",
		HitCount:     []int64{10},
		MissCount:    []int64{2},
		EvictCount:   []int64{0},
		CurrentSize:  []int64{100},
		TotalRequest: []int64{12},
		HitRatio:     []int64{83},
	}
	long := Snapshot{
		Name:         "b",
		HitCount:     []int64{5, 7},
		MissCount:    []int64{1, 3},
		EvictCount:   []int64{0, 1},
		CurrentSize:  []int64{50, 60},
		TotalRequest: []int64{6, 10},
		HitRatio:     []int64{83, 70},
	}
	agg := AggregateSnapshots("combined", short, long)

	if len(agg.HitCount) != 2 {
		t.Fatalf("expected aggregate length 2, got %d", len(agg.HitCount))
	}
	// Index 0: 10(short)+5(long) = 15 hits, 2+1 = 3 misses.
	if agg.HitCount[0] != 15 || agg.MissCount[0] != 3 {
		t.Fatalf("unexpected index-0 aggregate: hits=%d misses=%d", agg.HitCount[0], agg.MissCount[0])
	}
	// Index 1: short contributes zero (zero-extended), long contributes 7/3.
	if agg.HitCount[1] != 7 || agg.MissCount[1] != 3 {
		t.Fatalf("unexpected index-1 aggregate: hits=%d misses=%d (short vector should zero-extend, not replicate its last element)", agg.HitCount[1], agg.MissCount[1])
	}
}
