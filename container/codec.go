package container

import (
	"math"

	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
	"github.com/fcb-io/fcb/internal/pool"
)

// byteWriter accumulates a header's fixed-width and length-prefixed fields
// in encoding order, mirroring index.byteReader's counterpart on the
// decode side.
type byteWriter struct {
	buf []byte
}

func newByteWriter() *byteWriter {
	return &byteWriter{}
}

func (w *byteWriter) bytes() []byte { return w.buf }

func (w *byteWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *byteWriter) u16(v uint16) {
	var b [2]byte
	endian.LE.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *byteWriter) u32(v uint32) {
	var b [4]byte
	endian.LE.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *byteWriter) u64(v uint64) {
	var b [8]byte
	endian.LE.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *byteWriter) f64(v float64) {
	w.u64(math.Float64bits(v))
}

func (w *byteWriter) point3D(p Point3D) {
	w.f64(p.X)
	w.f64(p.Y)
	w.f64(p.Z)
}

func (w *byteWriter) string(s string) {
	w.u32(uint32(len(s))) //nolint: gosec
	w.buf = append(w.buf, s...)
}

// byteReader sequentially decodes a header's fields out of an in-memory
// buffer, failing with ErrFlatBufferVerify on any short read.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errs.ErrFlatBufferVerify
	}

	b := r.data[r.pos : r.pos+n]
	r.pos += n

	return b, nil
}

func (r *byteReader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (r *byteReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}

	return endian.LE.Uint16(b), nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return endian.LE.Uint32(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}

	return endian.LE.Uint64(b), nil
}

func (r *byteReader) f64() (float64, error) {
	bits, err := r.u64()
	if err != nil {
		return 0, err
	}

	return math.Float64frombits(bits), nil
}

// point3D decodes one 3D point (24 bytes) through a pooled three-float
// scratch slice. Transform and Extent each carry two of these.
func (r *byteReader) point3D() (Point3D, error) {
	scratch, release := pool.GetFloat64Slice(3)
	defer release()

	var err error
	for i := range scratch {
		if scratch[i], err = r.f64(); err != nil {
			return Point3D{}, err
		}
	}

	return Point3D{X: scratch[0], Y: scratch[1], Z: scratch[2]}, nil
}

func (r *byteReader) string() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}

	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}

	return string(b), nil
}
