package opaquebody

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecsRoundTrip(t *testing.T) {
	data := []byte("a city feature body, repeated repeated repeated repeated for compressibility")

	codecs := []Codec{NoOp{}, LZ4{}, ZstdPure{}, S2{}}

	for _, c := range codecs {
		c := c
		t.Run(c.Name(), func(t *testing.T) {
			compressed, err := c.Compress(data)
			require.NoError(t, err)

			decompressed, err := c.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, data, decompressed)
		})
	}
}

func TestCodecsHandleEmptyInput(t *testing.T) {
	for _, c := range []Codec{NoOp{}, LZ4{}, ZstdPure{}, S2{}} {
		out, err := c.Compress(nil)
		require.NoError(t, err)

		back, err := c.Decompress(out)
		require.NoError(t, err)
		require.Empty(t, back)
	}
}

func TestByNameResolvesKnownCodecs(t *testing.T) {
	for _, name := range []string{"noop", "lz4", "zstd-cgo", "zstd-pure", "s2"} {
		c, ok := ByName(name)
		require.True(t, ok)
		require.Equal(t, name, c.Name())
	}

	_, ok := ByName("unknown")
	require.False(t, ok)
}
