package container

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcb-io/fcb/errs"
	"github.com/fcb-io/fcb/key"
	"github.com/fcb-io/fcb/rtree"
)

func testHeader() Header {
	return Header{Version: "1.0", Transform: Transform{Scale: Point3D{X: 1, Y: 1, Z: 1}}}
}

func TestWriter_AddFeature_RejectsAfterFinalize(t *testing.T) {
	w, err := NewWriter(testHeader(), nil)
	require.NoError(t, err)

	require.NoError(t, w.AddFeature(rtree.Box{}, []byte("a"), nil))

	var buf bytes.Buffer
	require.NoError(t, w.Finalize(&buf))

	err = w.AddFeature(rtree.Box{}, []byte("b"), nil)
	require.ErrorIs(t, err, errs.ErrInvalidFeature)
}

func TestWriter_Finalize_EmptyDataset(t *testing.T) {
	w, err := NewWriter(testHeader(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Finalize(&buf))

	r, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.Header().FeaturesCount)
	assert.False(t, r.Header().HasSpatialIndex())
}

func TestWriter_WithSpatialIndexDisabled(t *testing.T) {
	w, err := NewWriter(testHeader(), nil, WithSpatialIndex(false))
	require.NoError(t, err)

	require.NoError(t, w.AddFeature(rtree.Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}, []byte("a"), nil))

	var buf bytes.Buffer
	require.NoError(t, w.Finalize(&buf))

	r, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.False(t, r.Header().HasSpatialIndex())

	_, err = r.SelectBBox(rtree.Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})
	require.ErrorIs(t, err, errs.ErrNoIndex)
}

func TestWithNodeSize_RejectsTooSmall(t *testing.T) {
	_, err := NewWriter(testHeader(), nil, WithNodeSize(1))
	require.ErrorIs(t, err, errs.ErrQueryError)
}

func TestWriter_FeatureOffsetsAreFeatureSectionRelative(t *testing.T) {
	w, err := NewWriter(testHeader(), nil, WithNodeSize(2))
	require.NoError(t, err)

	boxes := []rtree.Box{
		{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
		{MinX: 5, MinY: 5, MaxX: 6, MaxY: 6},
		{MinX: 9, MinY: 9, MaxX: 10, MaxY: 10},
	}

	for i, b := range boxes {
		require.NoError(t, w.AddFeature(b, []byte{byte('a' + i)}, nil))
	}

	var buf bytes.Buffer
	require.NoError(t, w.Finalize(&buf))

	r, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	// SelectBBox resolves every stored leaf offset against the feature
	// section's base, so each record only reads back correctly if the
	// offsets are feature-section relative.
	it, err := r.SelectBBox(rtree.Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10})
	require.NoError(t, err)
	defer it.Close()

	var seen int
	for {
		body, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}

		require.Len(t, body, 1)
		seen++
	}

	assert.Equal(t, 3, seen)
}

func TestWriter_BuildAttributeIndices_OneDescriptorPerField(t *testing.T) {
	w, err := NewWriter(testHeader(), []AttrField{{Name: "h", Type: key.F64}})
	require.NoError(t, err)

	require.NoError(t, w.AddFeature(rtree.Box{}, []byte("a"), map[string]key.Key{"h": key.NewF64(1)}))

	descriptors, sections, err := w.buildAttributeIndices([]uint64{0})
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	require.Len(t, sections, 1)
}
