package container

import (
	"io"

	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
	"github.com/fcb-io/fcb/query"
	"github.com/fcb-io/fcb/rtree"
)

// Source is the seekable, random-access byte source a Reader opens: a
// local file or an internal/httprange.Client both satisfy io.ReaderAt.
type Source = io.ReaderAt

// Reader opens a container and exposes its header plus the three iterator
// kinds (all, spatial, attribute). A Reader owns src exclusively for the
// duration of iteration; it holds no other state across calls beyond the
// header and section offsets computed once at Open.
type Reader struct {
	src Source

	header *Header

	rtreeBase          int64
	featureSectionBase int64

	multiIndex *query.MultiIndex
}

// Open verifies the magic prefix, reads the declared header size, decodes
// the header, and computes every downstream section's absolute byte
// offset from the header fields: header_end + rtree_size (if present) +
// the sum of every preceding attribute index's byte length.
func Open(src Source) (*Reader, error) {
	var magic [8]byte
	if _, err := src.ReadAt(magic[:], 0); err != nil {
		return nil, errs.IOError(err)
	}

	if magic != Magic {
		return nil, errs.ErrMissingMagicBytes
	}

	var sizeBuf [4]byte
	if _, err := src.ReadAt(sizeBuf[:], 8); err != nil {
		return nil, errs.IOError(err)
	}

	headerSize := endian.LE.Uint32(sizeBuf[:])
	if headerSize < MinHeaderSize || headerSize > MaxHeaderSize {
		return nil, errs.ErrIllegalHeaderSize
	}

	headerBytes := make([]byte, headerSize)
	if _, err := src.ReadAt(headerBytes, 12); err != nil {
		return nil, errs.IOError(err)
	}

	header, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	headerEnd := int64(12) + int64(headerSize)

	var rtreeSize int64
	if header.HasSpatialIndex() {
		rtreeSize = rtree.Size(int(header.FeaturesCount), header.IndexNodeSize)
	}

	rtreeBase := headerEnd
	attrBase := headerEnd + rtreeSize

	columnName := make(map[uint16]string, len(header.Columns))
	for _, c := range header.Columns {
		columnName[c.Index] = c.Name
	}

	fields := make(map[string]query.FieldMeta, len(header.AttributeIndex))

	cursor := attrBase
	for _, d := range header.AttributeIndex {
		name, ok := columnName[d.FieldIndex]
		if !ok {
			cursor += int64(d.ByteLength)

			continue
		}

		col := findColumn(header.Columns, d.FieldIndex)

		fields[name] = query.FieldMeta{
			Type:       col.Type,
			ByteOffset: cursor,
			ByteLength: int64(d.ByteLength),
		}

		cursor += int64(d.ByteLength)
	}

	return &Reader{
		src:                src,
		header:             header,
		rtreeBase:          rtreeBase,
		featureSectionBase: cursor,
		multiIndex:         query.NewMultiIndex(fields),
	}, nil
}

func findColumn(columns []Column, index uint16) Column {
	for _, c := range columns {
		if c.Index == index {
			return c
		}
	}

	return Column{}
}

// Header returns the container's decoded header.
func (r *Reader) Header() *Header { return r.header }

// SelectAll returns an iterator over every feature in on-disk order.
func (r *Reader) SelectAll() *Iterator {
	return &Iterator{
		r:         r,
		mode:      iterSequential,
		pos:       r.featureSectionBase,
		remaining: r.header.FeaturesCount,
	}
}

// SelectBBox returns an iterator over every feature whose bbox intersects
// query, in ascending feature-offset order. Fails with ErrNoIndex if the
// container has no R-tree section.
func (r *Reader) SelectBBox(box rtree.Box) (*Iterator, error) {
	if !r.header.HasSpatialIndex() {
		return nil, errs.ErrNoIndex
	}

	tree := rtree.OpenStream(r.src, r.rtreeBase, int(r.header.FeaturesCount), r.header.IndexNodeSize)

	results, err := tree.Search(box)
	if err != nil {
		return nil, err
	}

	return r.offsetIterator(resultOffsets(results)), nil
}

// SelectAttrQuery returns an iterator over the multi-index AND-intersection
// of conditions, in ascending feature-offset order. Fails with
// ErrAttributeIndexNotFound if no condition names an indexed field, and
// with ErrQueryError if conditions is empty.
func (r *Reader) SelectAttrQuery(conditions []query.Condition) (*Iterator, error) {
	if err := r.multiIndex.Validate(conditions); err != nil {
		return nil, err
	}

	offsets, err := r.multiIndex.Evaluate(r.src, conditions)
	if err != nil {
		return nil, err
	}

	return r.offsetIterator(offsets), nil
}

// SelectBBoxAndAttr computes the spatial hit set and the attribute-query
// hit set independently, intersects them client-side, and returns an
// iterator over the result. No feature bytes are fetched until the
// intersection is known.
func (r *Reader) SelectBBoxAndAttr(box rtree.Box, conditions []query.Condition) (*Iterator, error) {
	if !r.header.HasSpatialIndex() {
		return nil, errs.ErrNoIndex
	}

	if err := r.multiIndex.Validate(conditions); err != nil {
		return nil, err
	}

	tree := rtree.OpenStream(r.src, r.rtreeBase, int(r.header.FeaturesCount), r.header.IndexNodeSize)

	spatialResults, err := tree.Search(box)
	if err != nil {
		return nil, err
	}

	attrOffsets, err := r.multiIndex.Evaluate(r.src, conditions)
	if err != nil {
		return nil, err
	}

	attrSet := make(map[uint64]struct{}, len(attrOffsets))
	for _, o := range attrOffsets {
		attrSet[o] = struct{}{}
	}

	var combined []uint64
	for _, res := range spatialResults {
		if _, ok := attrSet[res.Offset]; ok {
			combined = append(combined, res.Offset)
		}
	}

	return r.offsetIterator(combined), nil
}

func resultOffsets(results []rtree.Result) []uint64 {
	out := make([]uint64, len(results))
	for i, r := range results {
		out[i] = r.Offset
	}

	return out
}

func (r *Reader) offsetIterator(offsets []uint64) *Iterator {
	return &Iterator{
		r:       r,
		mode:    iterOffsets,
		offsets: offsets,
	}
}
