package dfsblockcache

// streamkey.go defines StreamKey, the stable identity of a cacheable DFS
// stream: a (repository, file name, extension) triple. The hash is
// precomputed at construction so bucket/stripe routing never re-hashes on
// the lookup hot path.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"hash/maphash"
)

// ExtTag categorizes the kind of file a StreamKey names. Values double as
// array indices into per-extension Stats vectors, so ExtUnknown must stay 0.
type ExtTag uint8

const (
	ExtUnknown ExtTag = iota
	ExtPack
	ExtIndex
	ExtReverseIndex
	ExtBitmap
	ExtCommitGraph
	ExtMultiPackIndex
	ExtReftable

	extTagCount // sentinel, not a valid tag
)

// String renders the tag for logs and metric labels.
func (e ExtTag) String() string {
	switch e {
	case ExtPack:
		return "pack"
	case ExtIndex:
		return "index"
	case ExtReverseIndex:
		return "reverse_index"
	case ExtBitmap:
		return "bitmap"
	case ExtCommitGraph:
		return "commit_graph"
	case ExtMultiPackIndex:
		return "multi_pack_index"
	case ExtReftable:
		return "reftable"
	default:
		return "unknown"
	}
}

var streamSeed = maphash.MakeSeed()

// StreamKey identifies a single cacheable file: a repository, a file name
// within it, and the file's extension tag. Two StreamKeys are equal iff all
// three components are equal; Hash is precomputed from all three.
type StreamKey struct {
	RepoID string
	Name   string
	Ext    ExtTag

	hash uint64
}

// NewStreamKey builds a StreamKey and precomputes its hash.
func NewStreamKey(repoID, name string, ext ExtTag) StreamKey {
	var h maphash.Hash
	h.SetSeed(streamSeed)
	h.WriteString(repoID)
	h.WriteByte(0)
	h.WriteString(name)
	h.WriteByte(byte(ext))
	return StreamKey{RepoID: repoID, Name: name, Ext: ext, hash: h.Sum64()*31 + uint64(ext)}
}

// Hash returns the precomputed hash. O(1), never recomputes.
func (k StreamKey) Hash() uint64 { return k.hash }

// String renders the key for logs and metric labels as "repo/name.ext".
func (k StreamKey) String() string {
	return k.RepoID + "/" + k.Name + "." + k.Ext.String()
}

// ExtIndex returns the small positive index used for stats/partition
// routing. Ext zero value (ExtUnknown) maps to index 0.
func (k StreamKey) ExtIndex() int { return int(k.Ext) }

// Equal reports whether two keys name the same stream.
func (k StreamKey) Equal(o StreamKey) bool {
	return k.Ext == o.Ext && k.Name == o.Name && k.RepoID == o.RepoID
}

// ForReverseIndex wraps an existing key to disambiguate reverse-index
// caching of the same physical file from its forward-index caching. The
// hash is offset by one so it routes to a distinct stripe/bucket slot
// without needing a distinct ext tag to already be present on the key.
func ForReverseIndex(k StreamKey) StreamKey {
	rk := k
	rk.Ext = ExtReverseIndex
	rk.hash = k.hash + 1
	return rk
}

// positionHash combines a key's hash with an aligned byte position, used to
// route (key, position) pairs to stripes/buckets and as the singleflight
// dedup key.
func positionHash(k StreamKey, pos int64) uint64 {
	h := k.hash ^ (uint64(pos) * 0x9E3779B97F4A7C15)
	return h
}

// extCatalogSize is the number of well-known extension tags, used to
// pre-size Stats vectors; it grows via the swap-on-overflow path in stats.go
// if a caller ever constructs a StreamKey with a tag beyond this catalogue.
var extCatalogSize = int(extTagCount)
