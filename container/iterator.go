package container

import (
	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
	"github.com/fcb-io/fcb/internal/pool"
)

// iterMode distinguishes a full sequential scan of the feature section from
// a random-access walk over a pre-computed, ascending set of feature
// offsets (the result of a spatial or attribute query).
type iterMode int

const (
	iterSequential iterMode = iota
	iterOffsets
)

// iterState is the iterator's own state machine: Init has not yet touched
// the source; Reading has a valid current feature and may advance;
// Finished is terminal, reached either by exhaustion or by any read error.
type iterState int

const (
	iterInit iterState = iota
	iterReading
	iterFinished
)

// Iterator walks a single-pass sequence of feature bodies. It owns no
// source of its own — reads go through the Reader's io.ReaderAt — so it
// holds no file descriptor, but it does own a pooled scratch buffer that
// Close returns. The body slice returned by Next is a borrowed view,
// valid only until the following Next or Close call: the iterator owns
// the buffer behind it, not the caller.
type Iterator struct {
	r *Reader

	mode  iterMode
	state iterState

	// iterSequential cursor
	pos       int64
	remaining uint64

	// iterOffsets cursor
	offsets []uint64
	next    int

	buf *pool.ByteBuffer
}

// Next advances to the next feature and returns its body. ok is false once
// the sequence is exhausted, at which point err is nil and the iterator is
// Finished. A non-nil err also finalizes the iterator into Finished; no
// automatic retry is attempted.
func (it *Iterator) Next() (body []byte, ok bool, err error) {
	if it.state == iterFinished {
		return nil, false, nil
	}

	absOffset, hasNext := it.currentOffset()
	if !hasNext {
		it.finish()

		return nil, false, nil
	}

	if it.buf == nil {
		it.buf = pool.GetFeatureBuffer()
	}

	it.buf.Reset()

	var sizeBuf [4]byte
	if _, err := it.r.src.ReadAt(sizeBuf[:], absOffset); err != nil {
		it.finish()

		return nil, false, errs.IOError(err)
	}

	size := endian.LE.Uint32(sizeBuf[:])
	if size > MaxFeatureRecordSize {
		it.finish()

		return nil, false, errs.ErrInvalidFeature
	}

	it.buf.ExtendOrGrow(int(size))
	dst := it.buf.Slice(0, int(size))

	if size > 0 {
		if _, err := it.r.src.ReadAt(dst, absOffset+4); err != nil {
			it.finish()

			return nil, false, errs.IOError(err)
		}
	}

	it.state = iterReading
	it.advance(size)

	return dst, true, nil
}

// currentOffset returns the absolute source offset of the next feature
// record's size prefix, or false once the underlying sequence (sequential
// count or offsets slice) is exhausted. It does not consume the cursor;
// advance does that once the record's size is known.
func (it *Iterator) currentOffset() (int64, bool) {
	switch it.mode {
	case iterSequential:
		if it.remaining == 0 {
			return 0, false
		}

		return it.pos, true
	case iterOffsets:
		if it.next >= len(it.offsets) {
			return 0, false
		}

		return it.r.featureSectionBase + int64(it.offsets[it.next]), true
	default:
		return 0, false
	}
}

// advance consumes the cursor after a record of the given declared size has
// been read.
func (it *Iterator) advance(recordSize uint32) {
	switch it.mode {
	case iterSequential:
		it.pos += 4 + int64(recordSize)
		it.remaining--
	case iterOffsets:
		it.next++
	}
}

func (it *Iterator) finish() {
	it.state = iterFinished

	if it.buf != nil {
		pool.PutFeatureBuffer(it.buf)
		it.buf = nil
	}
}

// Close releases the iterator's pooled scratch buffer. Safe to call more
// than once, and safe to call without having exhausted the sequence.
func (it *Iterator) Close() {
	it.finish()
}
