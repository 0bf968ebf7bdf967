package index

import (
	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
)

// byteReader sequentially decodes fixed-width fields out of an in-memory
// buffer, failing with ErrFlatBufferVerify on short reads.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errs.ErrFlatBufferVerify
	}

	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b, nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}

	return endian.LE.Uint32(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}

	return endian.LE.Uint64(b), nil
}

func errInvalidType() error {
	return errs.ErrInvalidType
}
