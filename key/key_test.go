package key

import (
	"math"
	"sort"
	"testing"

	"github.com/fcb-io/fcb/errs"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Key{
		NewI64(-1234567890123),
		NewI32(-12345),
		NewI16(-1234),
		NewI8(-12),
		NewU64(1234567890123),
		NewU32(12345),
		NewU16(1234),
		NewU8(12),
		NewF64(3.14159),
		NewF32(2.5),
		NewBool(true),
		NewBool(false),
		NewString("hello\x00world"),
		NewNaiveDateTime(1700000000, 123456789),
		NewDateTime(1700000000, 123456789),
		NewNaiveDate(2024, 2, 29),
	}

	for _, k := range cases {
		encoded := k.Encode()
		decoded, err := Decode(k.Type, encoded)
		require.NoError(t, err)
		require.Equal(t, encoded, decoded.Encode(), "encode(decode(bytes)) == bytes for %s", k.Type)
	}
}

func TestTypeIDTable(t *testing.T) {
	require.Equal(t, Type(0), I64)
	require.Equal(t, Type(1), I32)
	require.Equal(t, Type(2), I16)
	require.Equal(t, Type(3), I8)
	require.Equal(t, Type(4), U64)
	require.Equal(t, Type(5), U32)
	require.Equal(t, Type(6), U16)
	require.Equal(t, Type(7), U8)
	require.Equal(t, Type(8), F64)
	require.Equal(t, Type(9), F32)
	require.Equal(t, Type(10), Bool)
	require.Equal(t, Type(11), String)
	require.Equal(t, Type(12), NaiveDateTime)
	require.Equal(t, Type(13), NaiveDate)
	require.Equal(t, Type(14), DateTime)
}

func TestDecodeInvalidType(t *testing.T) {
	_, err := Decode(Type(999), []byte{0})
	require.ErrorIs(t, err, errs.ErrInvalidType)
}

func TestStringEmbeddedZeroBytes(t *testing.T) {
	k := NewString("a\x00b\x00c")
	encoded := k.Encode()
	require.Equal(t, []byte("a\x00b\x00c"), encoded)

	decoded, err := Decode(String, encoded)
	require.NoError(t, err)
	require.Equal(t, k.String(), decoded.String())
}

func TestCompareIntegerTypes(t *testing.T) {
	require.Equal(t, -1, Compare(I32, NewI32(-5), NewI32(5)))
	require.Equal(t, 1, Compare(U32, NewU32(10), NewU32(3)))
	require.Equal(t, 0, Compare(I64, NewI64(7), NewI64(7)))
}

func TestCompareStringBytewise(t *testing.T) {
	require.Equal(t, -1, Compare(String, NewString("abc"), NewString("abd")))
	require.Equal(t, 0, Compare(String, NewString("x"), NewString("x")))
}

func TestFloatTotalOrderNaNGreatestAndEqual(t *testing.T) {
	nan1 := NewF64(math.NaN())
	nan2 := NewF64(math.NaN())
	inf := NewF64(math.Inf(1))

	require.Equal(t, 0, Compare(F64, nan1, nan2), "NaN must equal NaN under total order")
	require.Equal(t, 1, Compare(F64, nan1, inf), "NaN must be greater than +Inf")
	require.Equal(t, -1, Compare(F64, inf, nan1))
}

func TestFloatTotalOrderSignedZero(t *testing.T) {
	negZero := NewF64(math.Copysign(0, -1))
	posZero := NewF64(0)

	require.Equal(t, -1, Compare(F64, negZero, posZero), "-0 must sort below +0")
	require.Equal(t, 1, Compare(F64, posZero, negZero))
}

func TestFloatTotalOrderFullSort(t *testing.T) {
	values := []float64{
		math.NaN(), math.Inf(1), 100, 1, 0,
		math.Copysign(0, -1), -1, -100, math.Inf(-1),
	}
	keys := make([]Key, len(values))
	for i, v := range values {
		keys[i] = NewF64(v)
	}

	sort.Slice(keys, func(i, j int) bool {
		return Compare(F64, keys[i], keys[j]) < 0
	})

	// Ascending: -Inf, -100, -1, -0, +0, 1, 100, +Inf, NaN
	require.True(t, math.IsInf(keys[0].F64(), -1))
	require.True(t, math.Signbit(keys[3].F64()) && keys[3].F64() == 0, "slot 3 should be -0")
	require.True(t, !math.Signbit(keys[4].F64()) && keys[4].F64() == 0, "slot 4 should be +0")
	require.True(t, math.IsInf(keys[7].F64(), 1))
	require.True(t, math.IsNaN(keys[8].F64()))
}

func TestFixedWidth(t *testing.T) {
	require.Equal(t, 1, FixedWidth(I8))
	require.Equal(t, 2, FixedWidth(I16))
	require.Equal(t, 4, FixedWidth(I32))
	require.Equal(t, 8, FixedWidth(I64))
	require.Equal(t, 12, FixedWidth(NaiveDateTime))
	require.Equal(t, 12, FixedWidth(NaiveDate))
	require.Equal(t, 0, FixedWidth(String))
}

func TestCompareEncoded(t *testing.T) {
	a := NewU32(3).Encode()
	b := NewU32(9).Encode()

	c, err := CompareEncoded(U32, a, b)
	require.NoError(t, err)
	require.Equal(t, -1, c)
}
