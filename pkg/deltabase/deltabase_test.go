package deltabase

import "testing"

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New(1024)
	if _, _, ok := c.Get(Key{StreamHash: 1, Offset: 0}); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestPutThenGetHits(t *testing.T) {
	c := New(1024)
	k := Key{StreamHash: 1, Offset: 100}
	c.Put(k, ObjectBlob, []byte("base-object-bytes"))
	typ, v, ok := c.Get(k)
	if !ok {
		t.Fatalf("expected hit after put")
	}
	if string(v) != "base-object-bytes" {
		t.Fatalf("unexpected value: %q", v)
	}
	if typ != ObjectBlob {
		t.Fatalf("expected ObjectBlob, got %v", typ)
	}
}

func TestZeroOrNegativeBudgetNeverStores(t *testing.T) {
	c := New(0)
	k := Key{StreamHash: 1, Offset: 0}
	c.Put(k, ObjectBlob, []byte("x"))
	if _, _, ok := c.Get(k); ok {
		t.Fatalf("a cache with budget <= 0 must never store anything")
	}
	if c.Len() != 0 {
		t.Fatalf("expected Len() == 0, got %d", c.Len())
	}
}

func TestEntryLargerThanBudgetNeverStored(t *testing.T) {
	c := New(10)
	k := Key{StreamHash: 1, Offset: 0}
	c.Put(k, ObjectBlob, make([]byte, 11))
	if _, _, ok := c.Get(k); ok {
		t.Fatalf("an entry larger than the whole budget must never be stored")
	}
}

// TestLRUEvictsLeastRecentlyUsed mirrors the canonical scenario: a 1024-byte
// budget, five 300-byte entries inserted in order a,b,c,d,e (budget holds at
// most 3 at once), with an intervening Get(a) after c is inserted. The
// expected survivors are a, d, e; b and c are evicted.
func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(1024)
	mk := func(tag byte) []byte {
		buf := make([]byte, 300)
		for i := range buf {
			buf[i] = tag
		}
		return buf
	}
	a := Key{StreamHash: 1, Offset: 1}
	b := Key{StreamHash: 1, Offset: 2}
	cc := Key{StreamHash: 1, Offset: 3}
	d := Key{StreamHash: 1, Offset: 4}
	e := Key{StreamHash: 1, Offset: 5}

	c.Put(a, ObjectCommit, mk('a'))
	c.Put(b, ObjectTree, mk('b'))
	c.Put(cc, ObjectBlob, mk('c'))
	// budget now holds a,b,c = 900 bytes, under 1024.

	if _, _, ok := c.Get(a); !ok {
		t.Fatalf("expected a to still be live before d is inserted")
	}
	// a is now most-recently-used; LRU order (oldest first) is b, c, a.

	c.Put(d, ObjectTag, mk('d'))
	// 900+300=1200 > 1024: evict b (oldest). Now holds c, a, d = 900 bytes,
	// LRU order (oldest first) c, a, d.

	c.Put(e, ObjectBlob, mk('e'))
	// 900+300=1200 > 1024: evict c (oldest). Now holds a, d, e = 900 bytes.

	if _, _, ok := c.Get(b); ok {
		t.Fatalf("expected b to have been evicted")
	}
	if _, _, ok := c.Get(cc); ok {
		t.Fatalf("expected c to have been evicted")
	}
	typ, _, ok := c.Get(a)
	if !ok {
		t.Fatalf("expected a to still be live")
	}
	if typ != ObjectCommit {
		t.Fatalf("expected a's object type to survive eviction, got %v", typ)
	}
	if _, _, ok := c.Get(d); !ok {
		t.Fatalf("expected d to still be live")
	}
	if _, _, ok := c.Get(e); !ok {
		t.Fatalf("expected e to still be live")
	}
}

func TestPutReplacesExistingEntry(t *testing.T) {
	c := New(1024)
	k := Key{StreamHash: 1, Offset: 0}
	c.Put(k, ObjectBlob, []byte("first"))
	c.Put(k, ObjectTree, []byte("second"))
	typ, v, ok := c.Get(k)
	if !ok || string(v) != "second" {
		t.Fatalf("expected replaced value \"second\", got %q ok=%v", v, ok)
	}
	if typ != ObjectTree {
		t.Fatalf("expected replaced entry's type to also be replaced, got %v", typ)
	}
	if c.Len() != 1 {
		t.Fatalf("expected exactly 1 entry after replacing the same key, got %d", c.Len())
	}
}
