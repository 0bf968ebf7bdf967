package fcb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fcb-io/fcb/container"
	"github.com/fcb-io/fcb/key"
	"github.com/fcb-io/fcb/rtree"
)

func TestWriteFileAndOpen_RoundTrip(t *testing.T) {
	header := container.Header{
		Version:   "1.0",
		Transform: container.Transform{Scale: container.Point3D{X: 1, Y: 1, Z: 1}},
		Title:     "test city",
	}

	schema := []container.AttrField{{Name: "height", Type: key.F64}}

	features := []Feature{
		{
			Box:    rtree.Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
			Body:   []byte("building-a"),
			Values: map[string]key.Key{"height": key.NewF64(12.5)},
		},
		{
			Box:    rtree.Box{MinX: 10, MinY: 10, MaxX: 11, MaxY: 11},
			Body:   []byte("building-b"),
			Values: map[string]key.Key{"height": key.NewF64(30)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFile(header, schema, features, &buf))

	r, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, uint64(2), r.Header().FeaturesCount)
	require.True(t, r.Header().HasSpatialIndex())

	it := r.SelectAll()
	defer it.Close()

	var bodies []string
	for {
		body, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}

		bodies = append(bodies, string(body))
	}

	require.ElementsMatch(t, []string{"building-a", "building-b"}, bodies)
}

func TestNewWriter_DefaultsApply(t *testing.T) {
	w, err := NewWriter(container.Header{Version: "1.0"}, nil)
	require.NoError(t, err)
	require.NotNil(t, w)
}
