// Package key implements the byte-serializable key codec shared by every
// attribute index: fixed little-endian encodings for each supported
// primitive key type, a stable 32-bit type id per variant, and a total
// order over each type (including IEEE-754 floats, where NaN compares
// greater than every finite value and -0 sorts below +0).
package key

import (
	"math"
	"time"

	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
)

// Type is the 32-bit little-endian tag identifying a key's primitive type.
type Type uint32

// Type ids, stable across versions of the format.
const (
	I64 Type = iota
	I32
	I16
	I8
	U64
	U32
	U16
	U8
	F64
	F32
	Bool
	String
	NaiveDateTime
	NaiveDate
	DateTime
)

// String returns a human-readable name for the type, used in error messages
// and debug output.
func (t Type) String() string {
	switch t {
	case I64:
		return "i64"
	case I32:
		return "i32"
	case I16:
		return "i16"
	case I8:
		return "i8"
	case U64:
		return "u64"
	case U32:
		return "u32"
	case U16:
		return "u16"
	case U8:
		return "u8"
	case F64:
		return "f64"
	case F32:
		return "f32"
	case Bool:
		return "bool"
	case String:
		return "string"
	case NaiveDateTime:
		return "naive_datetime"
	case NaiveDate:
		return "naive_date"
	case DateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a known type id.
func (t Type) Valid() bool {
	return t <= DateTime
}

// Key is a tagged primitive value used as an attribute index's key. Exactly
// one of the payload fields is meaningful, selected by Type.
type Key struct {
	Type Type

	i int64
	u uint64
	f float64

	s string

	sec  int64  // naive-datetime / datetime: seconds since epoch
	nsec uint32 // naive-datetime / datetime: nanoseconds

	year  int32 // naive-date
	month uint32
	day   uint32
}

// NewI64, NewI32, ... construct a Key of the matching type.
func NewI64(v int64) Key { return Key{Type: I64, i: v} }
func NewI32(v int32) Key { return Key{Type: I32, i: int64(v)} }
func NewI16(v int16) Key { return Key{Type: I16, i: int64(v)} }
func NewI8(v int8) Key   { return Key{Type: I8, i: int64(v)} }

func NewU64(v uint64) Key { return Key{Type: U64, u: v} }
func NewU32(v uint32) Key { return Key{Type: U32, u: uint64(v)} }
func NewU16(v uint16) Key { return Key{Type: U16, u: uint64(v)} }
func NewU8(v uint8) Key   { return Key{Type: U8, u: uint64(v)} }

func NewF64(v float64) Key { return Key{Type: F64, f: v} }
func NewF32(v float32) Key { return Key{Type: F32, f: float64(v)} }

// NewBool constructs a boolean key.
func NewBool(v bool) Key {
	k := Key{Type: Bool}
	if v {
		k.u = 1
	}

	return k
}

// NewString constructs a UTF-8 string key. The byte sequence is preserved
// exactly, including embedded zero bytes.
func NewString(s string) Key { return Key{Type: String, s: s} }

// NewNaiveDateTime constructs a naive (zone-less) datetime key from seconds
// and nanoseconds since the epoch.
func NewNaiveDateTime(sec int64, nsec uint32) Key {
	return Key{Type: NaiveDateTime, sec: sec, nsec: nsec}
}

// NewDateTime constructs a UTC datetime key from seconds and nanoseconds
// since the epoch.
func NewDateTime(sec int64, nsec uint32) Key {
	return Key{Type: DateTime, sec: sec, nsec: nsec}
}

// NewNaiveDate constructs a naive calendar date key.
func NewNaiveDate(year int32, month, day uint32) Key {
	return Key{Type: NaiveDate, year: year, month: month, day: day}
}

// FromTime builds a DateTime key from a time.Time, normalizing it to UTC.
func FromTime(t time.Time) Key {
	u := t.UTC()

	return NewDateTime(u.Unix(), uint32(u.Nanosecond())) //nolint: gosec
}

// Accessors. None of them checks k.Type: a Key read back through another
// type's accessor yields a meaningless value rather than a panic, so a Key
// is only ever read back through its own type.

func (k Key) I64() int64    { return k.i }
func (k Key) I32() int32    { return int32(k.i) }
func (k Key) I16() int16    { return int16(k.i) }
func (k Key) I8() int8      { return int8(k.i) }
func (k Key) U64() uint64   { return k.u }
func (k Key) U32() uint32   { return uint32(k.u) }
func (k Key) U16() uint16   { return uint16(k.u) }
func (k Key) U8() uint8     { return uint8(k.u) }
func (k Key) F64() float64  { return k.f }
func (k Key) F32() float32  { return float32(k.f) }
func (k Key) Bool() bool    { return k.u != 0 }
func (k Key) String() string { return k.s }

// NaiveDateParts returns the year, month and day of a NaiveDate key.
func (k Key) NaiveDateParts() (year int32, month, day uint32) {
	return k.year, k.month, k.day
}

// DateTimeParts returns the epoch seconds and nanosecond remainder of a
// NaiveDateTime or DateTime key.
func (k Key) DateTimeParts() (sec int64, nsec uint32) {
	return k.sec, k.nsec
}

// Encode serializes the key to its on-disk byte form.
func (k Key) Encode() []byte {
	switch k.Type {
	case I8:
		return []byte{byte(k.i)}
	case U8:
		return []byte{byte(k.u)}
	case Bool:
		b := byte(0)
		if k.u != 0 {
			b = 1
		}

		return []byte{b}
	case I16:
		b := make([]byte, 2)
		endian.LE.PutUint16(b, uint16(k.i))

		return b
	case U16:
		b := make([]byte, 2)
		endian.LE.PutUint16(b, uint16(k.u))

		return b
	case I32:
		b := make([]byte, 4)
		endian.LE.PutUint32(b, uint32(k.i))

		return b
	case U32:
		b := make([]byte, 4)
		endian.LE.PutUint32(b, uint32(k.u))

		return b
	case F32:
		b := make([]byte, 4)
		endian.LE.PutUint32(b, math.Float32bits(float32(k.f)))

		return b
	case I64:
		b := make([]byte, 8)
		endian.LE.PutUint64(b, uint64(k.i))

		return b
	case U64:
		b := make([]byte, 8)
		endian.LE.PutUint64(b, k.u)

		return b
	case F64:
		b := make([]byte, 8)
		endian.LE.PutUint64(b, math.Float64bits(k.f))

		return b
	case String:
		return []byte(k.s)
	case NaiveDateTime, DateTime:
		b := make([]byte, 12)
		endian.LE.PutUint64(b[0:8], uint64(k.sec))
		endian.LE.PutUint32(b[8:12], k.nsec)

		return b
	case NaiveDate:
		b := make([]byte, 12)
		endian.LE.PutUint32(b[0:4], uint32(k.year))
		endian.LE.PutUint32(b[4:8], k.month)
		endian.LE.PutUint32(b[8:12], k.day)

		return b
	default:
		return nil
	}
}

// Decode parses a Key of the given type from its on-disk byte form.
func Decode(t Type, data []byte) (Key, error) {
	switch t {
	case I8:
		if len(data) < 1 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewI8(int8(data[0])), nil
	case U8:
		if len(data) < 1 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewU8(data[0]), nil
	case Bool:
		if len(data) < 1 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewBool(data[0] != 0), nil
	case I16:
		if len(data) < 2 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewI16(int16(endian.LE.Uint16(data))), nil
	case U16:
		if len(data) < 2 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewU16(endian.LE.Uint16(data)), nil
	case I32:
		if len(data) < 4 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewI32(int32(endian.LE.Uint32(data))), nil
	case U32:
		if len(data) < 4 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewU32(endian.LE.Uint32(data)), nil
	case F32:
		if len(data) < 4 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewF32(math.Float32frombits(endian.LE.Uint32(data))), nil
	case I64:
		if len(data) < 8 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewI64(int64(endian.LE.Uint64(data))), nil
	case U64:
		if len(data) < 8 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewU64(endian.LE.Uint64(data)), nil
	case F64:
		if len(data) < 8 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		return NewF64(math.Float64frombits(endian.LE.Uint64(data))), nil
	case String:
		return NewString(string(data)), nil
	case NaiveDateTime, DateTime:
		if len(data) < 12 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		sec := int64(endian.LE.Uint64(data[0:8]))
		nsec := endian.LE.Uint32(data[8:12])
		if t == DateTime {
			return NewDateTime(sec, nsec), nil
		}

		return NewNaiveDateTime(sec, nsec), nil
	case NaiveDate:
		if len(data) < 12 {
			return Key{}, errs.ErrFlatBufferVerify
		}

		year := int32(endian.LE.Uint32(data[0:4])) //nolint: gosec
		month := endian.LE.Uint32(data[4:8])
		day := endian.LE.Uint32(data[8:12])

		return NewNaiveDate(year, month, day), nil
	default:
		return Key{}, errs.ErrInvalidType
	}
}

// FixedWidth returns the encoded byte length of type t, or 0 if the type is
// variable-width (String).
func FixedWidth(t Type) int {
	switch t {
	case I8, U8, Bool:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	case NaiveDateTime, NaiveDate, DateTime:
		return 12
	default:
		return 0
	}
}

// Compare returns -1, 0 or 1 comparing a and b, which must share Type t.
// Integer and boolean types compare numerically, strings compare
// byte-wise (equivalent to lexicographic UTF-8), and floats compare under
// the type's total order: NaN is greater than every finite value and equal
// to any other NaN, and -0 sorts below +0.
func Compare(t Type, a, b Key) int {
	switch t {
	case I64, I32, I16, I8:
		return compareInt(a.i, b.i)
	case U64, U32, U16, U8:
		return compareUint(a.u, b.u)
	case Bool:
		return compareUint(a.u, b.u)
	case F64:
		return compareFloatBits(totalOrderF64(a.f), totalOrderF64(b.f), math.IsNaN(a.f), math.IsNaN(b.f))
	case F32:
		return compareFloatBits32(totalOrderF32(float32(a.f)), totalOrderF32(float32(b.f)), isNaN32(float32(a.f)), isNaN32(float32(b.f)))
	case String:
		return compareBytes([]byte(a.s), []byte(b.s))
	case NaiveDateTime, DateTime:
		if c := compareInt(a.sec, b.sec); c != 0 {
			return c
		}

		return compareUint(uint64(a.nsec), uint64(b.nsec))
	case NaiveDate:
		if c := compareInt(int64(a.year), int64(b.year)); c != 0 {
			return c
		}
		if c := compareUint(uint64(a.month), uint64(b.month)); c != 0 {
			return c
		}

		return compareUint(uint64(a.day), uint64(b.day))
	default:
		return 0
	}
}

// CompareEncoded decodes a and b as type t and compares them. The codec
// contract forbids comparing the raw little-endian bytes of multi-byte
// types directly (little-endian byte order does not preserve numeric
// order); callers that only have encoded bytes must go through this
// function (or Decode then Compare) instead.
func CompareEncoded(t Type, a, b []byte) (int, error) {
	ka, err := Decode(t, a)
	if err != nil {
		return 0, err
	}

	kb, err := Decode(t, b)
	if err != nil {
		return 0, err
	}

	return Compare(t, ka, kb), nil
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	switch {
	case string(a) < string(b):
		return -1
	case string(a) > string(b):
		return 1
	default:
		return 0
	}
}

// totalOrderF64 maps an f64 bit pattern onto a uint64 whose unsigned order
// matches the type's total order for every non-NaN value: sign bit set
// (negative) flips all bits, sign bit clear (non-negative, including +0 and
// -0 which differ only in their bit pattern) sets the sign bit. This makes
// -0 sort strictly below +0, the defined total order for floating-point
// attribute keys.
func totalOrderF64(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}

	return bits | (1 << 63)
}

func totalOrderF32(f float32) uint32 {
	bits := math.Float32bits(f)
	if bits&(1<<31) != 0 {
		return ^bits
	}

	return bits | (1 << 31)
}

func isNaN32(f float32) bool {
	return f != f //nolint: staticcheck
}

// compareFloatBits compares two f64 total-order keys, special-casing NaN so
// it always compares greater than any finite value and equal to any other
// NaN, overriding what the raw bit transform would otherwise produce.
func compareFloatBits(ta, tb uint64, aNaN, bNaN bool) int {
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	default:
		return 0
	}
}

func compareFloatBits32(ta, tb uint32, aNaN, bNaN bool) int {
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	default:
		return 0
	}
}
