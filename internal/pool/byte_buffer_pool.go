// Package pool provides reusable byte buffers for the two hot per-record
// read paths that would otherwise allocate on every call: the container
// reader's feature iterator, which yields borrowed views into an internal
// buffer rather than allocating a fresh slice per feature, and a streaming
// attribute index's entry reads, which re-read one variable-length entry
// per binary-search probe and per range-scan step.
package pool

import (
	"io"
	"sync"
)

// Default and max-retained sizes for the two record pools. Feature bodies
// and index entries have different size profiles, so each pool is tuned
// separately rather than sharing one set of thresholds:
//   - A feature body is typically a few KiB of encoded geometry and
//     attributes; FeatureBufferDefaultSize covers that in one allocation,
//     and FeatureBufferMaxThreshold discards the rare oversized body
//     instead of pinning it in the pool for every future Get.
//   - A single sorted-index entry is a key plus its feature-offset list;
//     most fields carry few duplicate values, so entries are usually well
//     under a KiB. IndexEntryBufferDefaultSize is sized for that common
//     case, while IndexEntryBufferMaxThreshold bounds the outlier entry
//     whose offset list fans out to a large share of the dataset (e.g. a
//     low-cardinality boolean or category field).
const (
	FeatureBufferDefaultSize  = 1024 * 16  // 16KiB, covers a typical single feature body
	FeatureBufferMaxThreshold = 1024 * 128 // 128KiB

	IndexEntryBufferDefaultSize  = 1024 * 4  // 4KiB, covers a typical single index entry
	IndexEntryBufferMaxThreshold = 1024 * 64 // 64KiB, bounds a high-fan-out entry's offset list
)

type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes() returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite writes data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Slice returns a slice of the buffer from start to end.
// Panics if the indices are out of bounds.
func (bb *ByteBuffer) Slice(start, end int) []byte {
	if start < 0 || end < start || end > cap(bb.B) {
		panic("Slice: invalid indices")
	}

	return bb.B[start:end]
}

// SetLength sets the length of the buffer to n.
// Panics if n is negative or greater than the capacity.
func (bb *ByteBuffer) SetLength(n int) {
	if n < 0 || n > cap(bb.B) {
		panic("SetLength: invalid length")
	}
	bb.B = bb.B[:n]
}

// Extend extends the buffer by n bytes if there is sufficient capacity.
func (bb *ByteBuffer) Extend(n int) bool {
	curLen := len(bb.B)
	if cap(bb.B)-curLen < n {
		return false
	}

	bb.B = bb.B[:curLen+n]

	return true
}

// ExtendOrGrow extends the buffer by n bytes, growing it if necessary.
func (bb *ByteBuffer) ExtendOrGrow(n int) {
	if bb.Extend(n) {
		return
	}

	start := len(bb.B)
	bb.Grow(n)
	bb.B = bb.B[:start+n]
}

// Grow grows the buffer to ensure it can hold requiredBytes more bytes without reallocating.
// If the buffer has sufficient capacity, Grow does nothing.
//
// The growth strategy is as follows:
//   - For small buffers (capacity up to 4*FeatureBufferDefaultSize, 64KiB), grow by FeatureBufferDefaultSize to minimize reallocations.
//   - For larger buffers, grow by 25% of current capacity to balance memory usage and reallocation cost.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return // Sufficient capacity
	}

	// Calculate growth size based on current buffer size
	growBy := FeatureBufferDefaultSize
	if cap(bb.B) > 4*FeatureBufferDefaultSize {
		// For larger buffers, grow by 25% to balance memory and reallocation cost
		growBy = cap(bb.B) / 4
	}

	// Ensure we grow enough for at least the required bytes
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	// Allocate new buffer with increased capacity
	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a pool of ByteBuffers to minimize allocations.
//
// It uses sync.Pool internally to manage the buffers.
// The pool can be configured with a maximum size threshold to avoid retaining
// overly large buffers that could lead to memory bloat.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int // Optional maximum size threshold for buffers
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		// Discard overly large buffers to prevent memory bloat
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	featureDefaultPool    = NewByteBufferPool(FeatureBufferDefaultSize, FeatureBufferMaxThreshold)
	indexEntryDefaultPool = NewByteBufferPool(IndexEntryBufferDefaultSize, IndexEntryBufferMaxThreshold)
)

// GetFeatureBuffer retrieves a ByteBuffer from the default feature-body
// pool used by the container reader's iterator.
func GetFeatureBuffer() *ByteBuffer {
	return featureDefaultPool.Get()
}

// PutFeatureBuffer returns a ByteBuffer to the default feature-body pool.
func PutFeatureBuffer(bb *ByteBuffer) {
	featureDefaultPool.Put(bb)
}

// GetIndexEntryBuffer retrieves a ByteBuffer from the default index-entry
// pool, used by a streaming sorted index to hold one entry's raw bytes
// during a binary-search probe or range-scan step.
func GetIndexEntryBuffer() *ByteBuffer {
	return indexEntryDefaultPool.Get()
}

// PutIndexEntryBuffer returns a ByteBuffer to the default index-entry pool.
func PutIndexEntryBuffer(bb *ByteBuffer) {
	indexEntryDefaultPool.Put(bb)
}
