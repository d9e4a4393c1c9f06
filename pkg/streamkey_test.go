package dfsblockcache

import "testing"

func TestStreamKeyEqual(t *testing.T) {
	a := NewStreamKey("repo1", "objects.pack", ExtPack)
	b := NewStreamKey("repo1", "objects.pack", ExtPack)
	if !a.Equal(b) {
		t.Fatalf("expected equal keys, got %+v vs %+v", a, b)
	}
	if a.Hash() != b.Hash() {
		t.Fatalf("expected equal hashes for equal keys")
	}
}

func TestStreamKeyDistinctOnAnyField(t *testing.T) {
	base := NewStreamKey("repo1", "objects.pack", ExtPack)
	cases := []StreamKey{
		NewStreamKey("repo2", "objects.pack", ExtPack),
		NewStreamKey("repo1", "other.pack", ExtPack),
		NewStreamKey("repo1", "objects.pack", ExtIndex),
	}
	for _, c := range cases {
		if base.Equal(c) {
			t.Fatalf("expected %+v to differ from %+v", base, c)
		}
	}
}

func TestForReverseIndexDistinctFromForward(t *testing.T) {
	fwd := NewStreamKey("repo1", "objects.idx", ExtIndex)
	rev := ForReverseIndex(fwd)
	if fwd.Equal(rev) {
		t.Fatalf("reverse-index key should not equal forward key")
	}
	if rev.Ext != ExtReverseIndex {
		t.Fatalf("expected ExtReverseIndex, got %v", rev.Ext)
	}
	if rev.Hash() == fwd.Hash() {
		t.Fatalf("expected distinct hash for reverse-index key")
	}
}

func TestExtIndexMatchesTagValue(t *testing.T) {
	k := NewStreamKey("repo1", "objects.pack", ExtBitmap)
	if k.ExtIndex() != int(ExtBitmap) {
		t.Fatalf("expected ExtIndex %d, got %d", ExtBitmap, k.ExtIndex())
	}
}

func TestStreamKeyString(t *testing.T) {
	k := NewStreamKey("repo1", "objects.pack", ExtPack)
	if got, want := k.String(), "repo1/objects.pack.pack"; got != want {
		t.Fatalf("StreamKey.String() = %q, want %q", got, want)
	}
}

func TestExtTagString(t *testing.T) {
	cases := map[ExtTag]string{
		ExtUnknown:        "unknown",
		ExtPack:           "pack",
		ExtIndex:          "index",
		ExtReverseIndex:   "reverse_index",
		ExtBitmap:         "bitmap",
		ExtCommitGraph:    "commit_graph",
		ExtMultiPackIndex: "multi_pack_index",
		ExtReftable:       "reftable",
	}
	for tag, want := range cases {
		if got := tag.String(); got != want {
			t.Errorf("ExtTag(%d).String() = %q, want %q", tag, got, want)
		}
	}
}
