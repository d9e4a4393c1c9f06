package dfsblockcache

// blockfile.go implements BlockBasedFile, the thin per-file helper a reader
// passes to the table: it negotiates block size against the channel's
// native granularity, aligns offsets to it, and performs the single-block
// read that GetOrLoad delegates to on a miss.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"fmt"
	"io"

	"github.com/voskan/dfsblockcache/internal/offheap"
)

// BlockBasedFile is the cache-facing contract a reader presents for one
// logical file: its identity, negotiated block size, known length (if any),
// and an off-heap arena used to back blocks it reads.
type BlockBasedFile struct {
	Key       StreamKey
	blockSize int
	length    int64 // -1 if unknown

	arena *offheap.Arena

	invalidCause error
}

// NewBlockBasedFile constructs a façade for key. length may be -1 if the
// stream's total size is not yet known; defaultBlockSize is the cache's
// configured block size, used until DiscoverBlockSize negotiates a final
// value against an opened channel.
func NewBlockBasedFile(key StreamKey, length int64, defaultBlockSize int) *BlockBasedFile {
	return &BlockBasedFile{
		Key:       key,
		blockSize: defaultBlockSize,
		length:    length,
		arena:     offheap.New(),
	}
}

// Invalidate marks the file as invalid with cause; all subsequent reads
// through this façade fail with ErrPackInvalid wrapping cause.
func (f *BlockBasedFile) Invalidate(cause error) {
	if cause == nil {
		cause = ErrPackInvalid
	}
	f.invalidCause = cause
}

// Invalid reports whether the façade has been marked invalid.
func (f *BlockBasedFile) Invalid() bool { return f.invalidCause != nil }

// BlockSize returns the currently negotiated block size.
func (f *BlockBasedFile) BlockSize() int { return f.blockSize }

// Align rounds pos down to the file's block size boundary.
func (f *BlockBasedFile) Align(pos int64) int64 {
	bs := int64(f.blockSize)
	return pos - pos%bs
}

// DiscoverBlockSize negotiates the file's effective block size between the
// cache's default and the channel's reported native size: a channel
// reporting <=0 defers entirely to the cache default; a channel reporting a
// smaller size than the default yields the largest multiple of the
// channel's size that does not exceed the default.
func (f *BlockBasedFile) DiscoverBlockSize(ch ReadableChannel, cacheDefault int) int {
	native := ch.BlockSize()
	if native <= 0 {
		f.blockSize = cacheDefault
		return f.blockSize
	}
	if native >= cacheDefault {
		f.blockSize = cacheDefault
		return f.blockSize
	}
	f.blockSize = (cacheDefault / native) * native
	if f.blockSize == 0 {
		f.blockSize = native
	}
	return f.blockSize
}

// BlockCount returns the number of cache-sized blocks the file spans at its
// currently negotiated block size, or -1 if the stream's length is not yet
// known.
func (f *BlockBasedFile) BlockCount() int64 {
	if f.length < 0 {
		return -1
	}
	bs := int64(f.blockSize)
	return (f.length + bs - 1) / bs
}

// readOneBlock opens a channel via supplier, positions it at pos, and reads
// exactly one block's worth of bytes (clamped to the file's known length),
// closing the channel before returning.
func (f *BlockBasedFile) readOneBlock(pos int64, supplier ChannelSupplier) (*Block, error) {
	if f.invalidCause != nil {
		return nil, newInvalidError(f.invalidCause)
	}

	ch, err := supplier()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelIO, err)
	}
	defer ch.Close()

	if f.length < 0 {
		if sz := ch.Size(); sz >= 0 {
			f.length = sz
		}
	}
	f.DiscoverBlockSize(ch, f.blockSize)

	want := f.blockSize
	knownLength := f.length >= 0
	if knownLength {
		if pos >= f.length {
			return nil, fmt.Errorf("%w: position %d at or past length %d", ErrChannelIO, pos, f.length)
		}
		if remaining := f.length - pos; int64(want) > remaining {
			want = int(remaining)
		}
	}

	if err := ch.Position(pos); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelIO, err)
	}

	buf := make([]byte, want)
	n, err := io.ReadFull(ch, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrChannelIO, err)
	}
	if n < want {
		if knownLength {
			return nil, fmt.Errorf("%w: wanted %d bytes at %d, got %d", ErrShortRead, want, pos, n)
		}
		// Unknown length: a short read here means we just found EOF;
		// compact the buffer and treat it as the final block.
		buf = buf[:n]
	}

	return NewBlock(f.arena, f.Key, pos, buf), nil
}
