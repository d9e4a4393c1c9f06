package dfsblockcache

// block.go defines Block: an immutable, fixed-size byte slice read from a
// pack file or pack-index object, tagged with the StreamKey and byte range
// it covers. Blocks are pure data — no I/O, no locks — so they can be shared
// freely across goroutines once published into the cache.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"compress/flate"
	"hash/crc32"
	"io"

	"github.com/voskan/dfsblockcache/internal/offheap"
)

// Block is an immutable slice of a cacheable stream.
type Block struct {
	Key   StreamKey
	Start int64
	bytes []byte
}

// NewBlock constructs a Block from key, start offset and payload. The
// backing array is copied into an off-heap arena-owned buffer so repeated
// reads never share mutable storage with the caller's read buffer.
func NewBlock(a *offheap.Arena, key StreamKey, start int64, payload []byte) *Block {
	return &Block{Key: key, Start: start, bytes: offheap.AllocBytes(a, payload)}
}

// newBlockNoCopy is used by tests and internal call sites that already own
// an immutable buffer and don't want the arena indirection.
func newBlockNoCopy(key StreamKey, start int64, payload []byte) *Block {
	return &Block{Key: key, Start: start, bytes: payload}
}

// End returns the exclusive end offset of the block.
func (b *Block) End() int64 { return b.Start + int64(len(b.bytes)) }

// Size returns the number of bytes the block occupies; this is the value
// charged against the cache's byte budget.
func (b *Block) Size() int { return len(b.bytes) }

// Contains reports whether position p of stream key falls within this
// block's covered range.
func (b *Block) Contains(key StreamKey, p int64) bool {
	return key.Equal(b.Key) && p >= b.Start && p < b.End()
}

// Bytes returns the block's underlying payload. Callers must treat it as
// read-only; Block never mutates it after construction.
func (b *Block) Bytes() []byte { return b.bytes }

// Copy copies up to n bytes starting at absolute position pos into dst at
// dstOff, bounded by what remains in the block. Returns the actual number of
// bytes copied.
func (b *Block) Copy(pos int64, dst []byte, dstOff, n int) int {
	rel := int(pos - b.Start)
	if rel < 0 || rel >= len(b.bytes) {
		return 0
	}
	avail := len(b.bytes) - rel
	if n > avail {
		n = avail
	}
	if dstOff+n > len(dst) {
		n = len(dst) - dstOff
	}
	if n <= 0 {
		return 0
	}
	copy(dst[dstOff:dstOff+n], b.bytes[rel:rel+n])
	return n
}

// CRC32Update folds n bytes starting at pos into the running CRC32 value
// crc and returns the updated checksum.
func (b *Block) CRC32Update(crc uint32, pos int64, n int) uint32 {
	rel := int(pos - b.Start)
	if rel < 0 || rel >= len(b.bytes) {
		return crc
	}
	if rel+n > len(b.bytes) {
		n = len(b.bytes) - rel
	}
	return crc32.Update(crc, crc32.IEEETable, b.bytes[rel:rel+n])
}

// InflateInput feeds the block's bytes starting at pos into a flate reader
// as its next input chunk, returning how many bytes were made available.
// Used when a caller is streaming a zlib/deflate compressed object whose
// compressed bytes span one or more cached blocks.
func (b *Block) InflateInput(setInput func([]byte), pos int64) int {
	rel := int(pos - b.Start)
	if rel < 0 || rel >= len(b.bytes) {
		return 0
	}
	chunk := b.bytes[rel:]
	setInput(chunk)
	return len(chunk)
}

// Write copies n bytes starting at pos to out.
func (b *Block) Write(out io.Writer, pos int64, n int) (int, error) {
	rel := int(pos - b.Start)
	if rel < 0 || rel >= len(b.bytes) {
		return 0, nil
	}
	if rel+n > len(b.bytes) {
		n = len(b.bytes) - rel
	}
	return out.Write(b.bytes[rel : rel+n])
}

// Check decompresses the deflate stream read from r, using tmp as scratch
// space, and returns the number of decompressed bytes produced. It is used
// by callers validating pack object integrity without retaining the
// inflated payload.
func Check(r io.Reader, tmp []byte) (int, error) {
	fr := flate.NewReader(r)
	defer fr.Close()
	total := 0
	for {
		n, err := fr.Read(tmp)
		total += n
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}
