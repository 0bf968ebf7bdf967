package index

import (
	"bytes"
	"io"
	"testing"

	"github.com/fcb-io/fcb/key"
	"github.com/stretchr/testify/require"
)

// readerAt adapts a byte slice to io.ReaderAt for tests.
type readerAt struct{ b []byte }

func (r readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, io.EOF
	}

	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}

	return n, nil
}

func buildSource(t *testing.T, idx SortedIndex, prefix []byte) (io.ReaderAt, int64, int64) {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(prefix)
	base := int64(buf.Len())
	idx.WriteTo(&buf)
	length := int64(buf.Len()) - base

	return readerAt{b: buf.Bytes()}, base, length
}

func TestStreamIndexExactAndRange(t *testing.T) {
	idx := Build(key.U32, []Entry{
		{Key: key.NewU32(100), Offsets: []uint64{0}},
		{Key: key.NewU32(101), Offsets: []uint64{1}},
		{Key: key.NewU32(105), Offsets: []uint64{5}},
		{Key: key.NewU32(109), Offsets: []uint64{9}},
	})

	src, base, length := buildSource(t, idx, []byte("garbage-prefix"))

	si, err := Open(src, base, length)
	require.NoError(t, err)
	require.Equal(t, key.U32, si.Type())
	require.EqualValues(t, 4, si.Count())

	got, err := si.QueryExact(key.NewU32(105))
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, got)

	missing, err := si.QueryExact(key.NewU32(999))
	require.NoError(t, err)
	require.Nil(t, missing)

	lower := key.NewU32(101)
	upper := key.NewU32(109)
	rangeGot, err := si.QueryRange(&lower, &upper)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 5}, rangeGot)
}

func TestStreamIndexPositionInvariant(t *testing.T) {
	// Exercising the index through io.ReaderAt means every query is
	// inherently stateless: no position is ever advanced on the source,
	// so repeated queries against the same StreamIndex must be
	// idempotent regardless of call order.
	idx := Build(key.I64, []Entry{
		{Key: key.NewI64(-5), Offsets: []uint64{1}},
		{Key: key.NewI64(0), Offsets: []uint64{2}},
		{Key: key.NewI64(5), Offsets: []uint64{3}},
	})

	src, base, length := buildSource(t, idx, nil)
	si, err := Open(src, base, length)
	require.NoError(t, err)

	first, err := si.QueryExact(key.NewI64(0))
	require.NoError(t, err)
	second, err := si.QueryExact(key.NewI64(-5))
	require.NoError(t, err)
	third, err := si.QueryExact(key.NewI64(0))
	require.NoError(t, err)

	require.Equal(t, []uint64{2}, first)
	require.Equal(t, []uint64{1}, second)
	require.Equal(t, first, third)
}

func TestStreamIndexEmpty(t *testing.T) {
	idx := Build(key.String, nil)
	src, base, length := buildSource(t, idx, nil)

	si, err := Open(src, base, length)
	require.NoError(t, err)
	require.EqualValues(t, 0, si.Count())

	got, err := si.QueryRange(nil, nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStreamIndexEntryAtOutOfBounds(t *testing.T) {
	idx := Build(key.U8, []Entry{{Key: key.NewU8(1), Offsets: []uint64{1}}})
	src, base, length := buildSource(t, idx, nil)

	si, err := Open(src, base, length)
	require.NoError(t, err)

	_, err = si.EntryAt(5)
	require.Error(t, err)
}

// TestStreamIndexStringKeys_SurviveBufferReuse guards against a reused
// scratch buffer aliasing a decoded key: every QueryExact call round-trips
// through the same pooled buffer, so a string key that isn't copied out
// before the buffer is returned to the pool would come back corrupted by
// the next probe.
func TestStreamIndexStringKeys_SurviveBufferReuse(t *testing.T) {
	entries := []Entry{
		{Key: key.NewString("alpha"), Offsets: []uint64{1}},
		{Key: key.NewString("bravo"), Offsets: []uint64{2}},
		{Key: key.NewString("charlie"), Offsets: []uint64{3}},
		{Key: key.NewString("delta"), Offsets: []uint64{4}},
	}
	idx := Build(key.String, entries)
	src, base, length := buildSource(t, idx, nil)

	si, err := Open(src, base, length)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		for _, e := range entries {
			got, err := si.QueryExact(e.Key)
			require.NoError(t, err)
			require.Equal(t, e.Offsets, got)
		}
	}
}

// TestStreamIndexQueryRange_HighFanOutEntry exercises an entry whose offset
// list is large enough to push the pooled scratch buffer past its default
// size, forcing at least one Grow while the entry is read.
func TestStreamIndexQueryExact_HighFanOutEntry(t *testing.T) {
	offsets := make([]uint64, 2000)
	for i := range offsets {
		offsets[i] = uint64(i)
	}

	idx := Build(key.Bool, []Entry{
		{Key: key.NewBool(false), Offsets: offsets},
		{Key: key.NewBool(true), Offsets: []uint64{9999}},
	})
	src, base, length := buildSource(t, idx, nil)

	si, err := Open(src, base, length)
	require.NoError(t, err)

	got, err := si.QueryExact(key.NewBool(false))
	require.NoError(t, err)
	require.Equal(t, offsets, got)
}
