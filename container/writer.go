package container

import (
	"bytes"
	"io"
	"math"

	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
	"github.com/fcb-io/fcb/index"
	"github.com/fcb-io/fcb/internal/config"
	"github.com/fcb-io/fcb/key"
	"github.com/fcb-io/fcb/rtree"
)

// writerState is the writer's finalize-once state machine.
type writerState int

const (
	stateInit writerState = iota
	stateHeaderStaged
	stateFeaturesBuffered
	stateFinalized
)

// stagedFeature is one buffered add_feature call: the feature's bbox, its
// encoded body, and the indexed attribute values extracted by the caller.
type stagedFeature struct {
	box    rtree.Box
	body   []byte
	values map[string]key.Key // field name -> indexed value, for fields declared in the schema
}

// AttrField declares one attribute the writer indexes: its field name
// (matching a Header.Columns entry) and key type.
type AttrField struct {
	Name string
	Type key.Type
}

// WriterOption configures a Writer at construction time.
type WriterOption = config.Option[*Writer]

// WithNodeSize overrides the R-tree branching factor (default 16).
// Ignored if WithSpatialIndex(false) is also given.
func WithNodeSize(n uint16) WriterOption {
	return config.New(func(w *Writer) error {
		if n < 2 {
			return errs.ErrQueryError
		}

		w.nodeSize = n

		return nil
	})
}

// WithSpatialIndex controls whether Finalize builds and emits an R-tree
// section. Default true.
func WithSpatialIndex(enabled bool) WriterOption {
	return config.NoError(func(w *Writer) { w.buildSpatialIndex = enabled })
}

// Writer builds a container in a single pass: AddFeature buffers features
// in memory, then Finalize computes the R-tree and attribute indices and
// writes the complete byte stream in one call. Partial flushes are not a
// valid output.
type Writer struct {
	state writerState

	header Header
	schema []AttrField

	nodeSize          uint16
	buildSpatialIndex bool

	features []stagedFeature
}

// NewWriter creates a Writer in the HeaderStaged state from the given
// header metadata and indexed-attribute schema. header.Version and
// header.Transform must already be set by the caller; FeaturesCount,
// IndexNodeSize, Columns and AttributeIndex are overwritten by Finalize.
func NewWriter(header Header, schema []AttrField, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		state:             stateHeaderStaged,
		header:            header,
		schema:            schema,
		nodeSize:          16,
		buildSpatialIndex: true,
	}

	if err := config.Apply(w, opts...); err != nil {
		return nil, err
	}

	return w, nil
}

// AddFeature buffers one feature: its 2D bounding box, its already-encoded
// opaque body, and the values of any attributes declared in the writer's
// schema. The core never encodes geometry or feature semantics itself;
// callers supply bbox and body already computed by the external feature
// encoder.
func (w *Writer) AddFeature(box rtree.Box, body []byte, values map[string]key.Key) error {
	if w.state != stateHeaderStaged && w.state != stateFeaturesBuffered {
		return errs.ErrInvalidFeature
	}

	w.state = stateFeaturesBuffered

	cp := make([]byte, len(body))
	copy(cp, body)

	w.features = append(w.features, stagedFeature{box: box, body: cp, values: values})

	return nil
}

// Finalize composes the complete container and writes it to sink in a
// single pass: magic, header, optional R-tree, attribute indices in
// descriptor order, then feature bodies in R-tree (Hilbert) order, each
// prefixed with a u32 size.
//
// Every feature offset recorded in the R-tree or an attribute index is
// relative to the start of the feature section; Finalize itself performs
// no offset correction, it simply records offsets in writer-local terms
// as it lays out the feature section.
func (w *Writer) Finalize(sink io.Writer) error {
	if w.state != stateHeaderStaged && w.state != stateFeaturesBuffered {
		return errs.ErrInvalidFeature
	}

	order := make([]int, len(w.features))
	for i := range order {
		order[i] = i
	}

	var tree *rtree.RTree
	if w.buildSpatialIndex && len(w.features) > 0 {
		items := make([]rtree.Item, len(w.features))
		for i, f := range w.features {
			items[i] = rtree.Item{Box: f.box, Offset: uint64(i)} // Offset temporarily holds the pre-sort feature index
		}

		tree = rtree.Build(items, w.nodeSize)

		// Build's leaf order is the Hilbert/write order; each leaf's
		// Offset field still holds the pre-sort index set above, so
		// LeafOffsets() recovers the write-order permutation directly.
		order = make([]int, 0, len(w.features))
		for _, idx := range tree.LeafOffsets() {
			order = append(order, int(idx))
		}
	}

	featureOffsets := make([]uint64, len(w.features))

	var featureSection bytes.Buffer

	var sizeBuf [4]byte
	for _, origIdx := range order {
		featureOffsets[origIdx] = uint64(featureSection.Len()) //nolint: gosec

		body := w.features[origIdx].body
		endian.LE.PutUint32(sizeBuf[:], uint32(len(body))) //nolint: gosec
		featureSection.Write(sizeBuf[:])
		featureSection.Write(body)
	}

	// Rebuild the R-tree a second time with real, feature-section-relative
	// leaf offsets now that featureOffsets is known: the tree is sorted
	// once by Hilbert code, so re-running Build over the same boxes
	// reproduces the identical leaf order deterministically.
	if w.buildSpatialIndex && len(w.features) > 0 {
		items := make([]rtree.Item, len(w.features))
		for i, f := range w.features {
			items[i] = rtree.Item{Box: f.box, Offset: featureOffsets[i]}
		}

		tree = rtree.Build(items, w.nodeSize)
	}

	// Columns are derived from the indexed-attribute schema, in schema
	// order, so every attribute index descriptor names a declared column.
	w.header.Columns = make([]Column, len(w.schema))
	for i, field := range w.schema {
		w.header.Columns[i] = Column{Index: uint16(i), Name: field.Name, Type: field.Type} //nolint: gosec
	}

	attrDescriptors, attrSections, err := w.buildAttributeIndices(featureOffsets)
	if err != nil {
		return err
	}

	h := w.header
	h.FeaturesCount = uint64(len(w.features))
	h.IndexNodeSize = w.nodeSize
	if !w.buildSpatialIndex || len(w.features) == 0 {
		h.IndexNodeSize = 0
	}
	h.AttributeIndex = attrDescriptors

	headerBytes := EncodeHeader(&h)
	if len(headerBytes) < MinHeaderSize || len(headerBytes) > MaxHeaderSize {
		return errs.ErrIllegalHeaderSize
	}

	if _, err := sink.Write(Magic[:]); err != nil {
		return errs.IOError(err)
	}

	var headerSizeBuf [4]byte
	endian.LE.PutUint32(headerSizeBuf[:], uint32(len(headerBytes))) //nolint: gosec
	if _, err := sink.Write(headerSizeBuf[:]); err != nil {
		return errs.IOError(err)
	}

	if _, err := sink.Write(headerBytes); err != nil {
		return errs.IOError(err)
	}

	if tree != nil {
		if _, err := sink.Write(tree.Bytes()); err != nil {
			return errs.IOError(err)
		}
	}

	for _, sec := range attrSections {
		if _, err := sink.Write(sec); err != nil {
			return errs.IOError(err)
		}
	}

	if _, err := sink.Write(featureSection.Bytes()); err != nil {
		return errs.IOError(err)
	}

	w.state = stateFinalized

	return nil
}

// buildAttributeIndices builds one SortedIndex per schema field, in schema
// declaration order, using the already-resolved feature-section-relative
// offsets. It returns the header descriptors (column index + serialized
// byte length) alongside each index's serialized bytes, and fails with
// ErrAttributeIndexSizeOverflow if the summed byte length would not fit a
// uint32 header field.
func (w *Writer) buildAttributeIndices(featureOffsets []uint64) ([]AttrIndexDescriptor, [][]byte, error) {
	if len(w.schema) == 0 {
		return nil, nil, nil
	}

	columnIndex := make(map[string]uint16, len(w.header.Columns))
	for _, c := range w.header.Columns {
		columnIndex[c.Name] = c.Index
	}

	descriptors := make([]AttrIndexDescriptor, 0, len(w.schema))
	sections := make([][]byte, 0, len(w.schema))

	var totalSize uint64

	for _, field := range w.schema {
		entries := make([]index.Entry, 0, len(w.features))
		for i, f := range w.features {
			v, ok := f.values[field.Name]
			if !ok {
				continue
			}

			entries = append(entries, index.Entry{Key: v, Offsets: []uint64{featureOffsets[i]}})
		}

		built := index.Build(field.Type, entries)
		encoded := built.Bytes()

		totalSize += uint64(len(encoded))
		if totalSize > math.MaxUint32 {
			return nil, nil, errs.ErrAttributeIndexSizeOverflow
		}

		descriptors = append(descriptors, AttrIndexDescriptor{
			FieldIndex: columnIndex[field.Name],
			ByteLength: uint32(len(encoded)), //nolint: gosec
		})
		sections = append(sections, encoded)
	}

	return descriptors, sections, nil
}
