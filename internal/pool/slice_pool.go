package pool

import "sync"

// Slice pools for transient scratch slices whose lifetime never escapes
// the function that requested them (the caller must call cleanup before
// the slice is used again by anyone else).
var (
	uint32SlicePool = sync.Pool{
		New: func() any { return &[]uint32{} },
	}
	float64SlicePool = sync.Pool{
		New: func() any { return &[]float64{} },
	}
)

// GetUint32Slice retrieves a uint32 scratch slice of the given length
// from the pool, e.g. for the Hilbert-code array computed once per
// rtree.Build call.
func GetUint32Slice(size int) ([]uint32, func()) {
	ptr, _ := uint32SlicePool.Get().(*[]uint32)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]uint32, size)
	} else {
		slice = slice[:size]
	}

	*ptr = slice

	return slice, func() { uint32SlicePool.Put(ptr) }
}

// GetFloat64Slice retrieves a float64 scratch slice of the given length
// from the pool, e.g. for the three-value point decoded while parsing a
// container header's transform or extent fields.
func GetFloat64Slice(size int) ([]float64, func()) {
	ptr, _ := float64SlicePool.Get().(*[]float64)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]float64, size)
	} else {
		slice = slice[:size]
	}

	*ptr = slice

	return slice, func() { float64SlicePool.Put(ptr) }
}
