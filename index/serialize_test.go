package index

import (
	"testing"

	"github.com/fcb-io/fcb/key"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	idx := Build(key.U32, []Entry{
		{Key: key.NewU32(100), Offsets: []uint64{0}},
		{Key: key.NewU32(105), Offsets: []uint64{5}},
		{Key: key.NewU32(109), Offsets: []uint64{9, 10}},
	})

	data := idx.Bytes()
	require.Equal(t, idx.Size(), len(data))

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, idx.Type, parsed.Type)
	require.Equal(t, idx.Entries(), parsed.Entries())
}

func TestSerializeEmptyIndex(t *testing.T) {
	idx := Build(key.String, nil)
	data := idx.Bytes()
	require.Equal(t, 12, len(data), "empty index is header only")

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, 0, parsed.Len())
}

func TestSerializeStringKeysWithZeroBytes(t *testing.T) {
	idx := Build(key.String, []Entry{
		{Key: key.NewString("a\x00b"), Offsets: []uint64{1}},
		{Key: key.NewString("z"), Offsets: []uint64{2}},
	})

	data := idx.Bytes()
	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, "a\x00b", parsed.Entries()[0].Key.String())
}

func TestParseInvalidTypeID(t *testing.T) {
	data := make([]byte, 12)
	data[0] = 0xFF
	data[1] = 0xFF
	data[2] = 0xFF
	data[3] = 0xFF

	_, err := Parse(data)
	require.Error(t, err)
}
