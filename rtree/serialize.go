package rtree

import (
	"bytes"
	"math"

	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
)

// Bytes serializes the tree's nodes breadth-first, root first, as
// node_count × 40-byte records (four little-endian f64 bbox fields
// followed by a little-endian u64 offset).
func (t *RTree) Bytes() []byte {
	buf := make([]byte, 0, len(t.nodes)*nodeByteSize)

	var rec [nodeByteSize]byte
	for _, n := range t.nodes {
		endian.LE.PutUint64(rec[0:8], math.Float64bits(n.Box.MinX))
		endian.LE.PutUint64(rec[8:16], math.Float64bits(n.Box.MinY))
		endian.LE.PutUint64(rec[16:24], math.Float64bits(n.Box.MaxX))
		endian.LE.PutUint64(rec[24:32], math.Float64bits(n.Box.MaxY))
		endian.LE.PutUint64(rec[32:40], n.Offset)
		buf = append(buf, rec[:]...)
	}

	return buf
}

// WriteTo appends the tree's serialized form to buf.
func (t *RTree) WriteTo(buf *bytes.Buffer) {
	buf.Write(t.Bytes())
}

// Parse reconstructs an RTree from a byte-exact serialized node buffer,
// given the original leaf count and node size (both of which are carried
// in the container header, not in the R-tree section itself).
func Parse(data []byte, numItems int, nodeSize uint16) (*RTree, error) {
	if numItems == 0 {
		return &RTree{nodeSize: nodeSize}, nil
	}

	levels := levelify(numItems, int(nodeSize))
	total := levels[len(levels)-1].end

	if len(data) != total*nodeByteSize {
		return nil, errs.ErrFlatBufferVerify
	}

	nodes := make([]Node, total)
	for i := range nodes {
		rec := data[i*nodeByteSize : (i+1)*nodeByteSize]
		nodes[i] = Node{
			Box: Box{
				MinX: math.Float64frombits(endian.LE.Uint64(rec[0:8])),
				MinY: math.Float64frombits(endian.LE.Uint64(rec[8:16])),
				MaxX: math.Float64frombits(endian.LE.Uint64(rec[16:24])),
				MaxY: math.Float64frombits(endian.LE.Uint64(rec[24:32])),
			},
			Offset: endian.LE.Uint64(rec[32:40]),
		}
	}

	return &RTree{
		nodeSize: nodeSize,
		numItems: uint64(numItems),
		levels:   levels,
		nodes:    nodes,
	}, nil
}
