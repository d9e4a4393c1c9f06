package bitutil

import "testing"

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 20: 32, 1024: 1024, 1025: 2048}
	for in, want := range cases {
		if got := NextPow2(in); got != want {
			t.Errorf("NextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	yes := []uint64{1, 2, 4, 8, 1024, 1 << 20}
	no := []uint64{0, 3, 5, 6, 1023, 1<<20 + 1}
	for _, v := range yes {
		if !IsPowerOfTwo(v) {
			t.Errorf("expected %d to be a power of two", v)
		}
	}
	for _, v := range no {
		if IsPowerOfTwo(v) {
			t.Errorf("expected %d not to be a power of two", v)
		}
	}
}

func TestAlignDownUp(t *testing.T) {
	if got := AlignDown(1500, 1024); got != 1024 {
		t.Errorf("AlignDown(1500, 1024) = %d, want 1024", got)
	}
	if got := AlignDown(1024, 1024); got != 1024 {
		t.Errorf("AlignDown(1024, 1024) = %d, want 1024", got)
	}
	if got := AlignUp(1500, 1024); got != 2048 {
		t.Errorf("AlignUp(1500, 1024) = %d, want 2048", got)
	}
	if got := AlignUp(1024, 1024); got != 1024 {
		t.Errorf("AlignUp(1024, 1024) = %d, want 1024", got)
	}
}

