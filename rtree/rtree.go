// Package rtree implements a static, disk-resident packed Hilbert R-tree:
// a breadth-first, bottom-up-sized, top-down-offset spatial index built
// once from a Hilbert-sorted set of feature bounding boxes and never
// mutated afterward.
package rtree

import (
	"sort"

	"github.com/fcb-io/fcb/internal/pool"
)

// nodeByteSize is the fixed on-disk size of one node record: four f64
// bbox fields plus one u64 offset.
const nodeByteSize = 40

// Item is one leaf-level input to Build: a feature's bounding box and its
// byte offset within the feature section.
type Item struct {
	Box    Box
	Offset uint64
}

// Node is one record of the packed tree, in either its in-memory or
// on-disk form. For leaf nodes Offset is the feature's byte offset within
// the feature section. For internal nodes Offset is the byte offset of
// the node's first child within the R-tree section.
type Node struct {
	Box    Box
	Offset uint64
}

// levelRange is the half-open range of node indices [Start, End) that
// make up one level of the tree, level 0 being the leaves.
type levelRange struct {
	start, end int
}

// RTree is a built, in-memory packed Hilbert R-tree ready for Search or
// serialization.
type RTree struct {
	nodeSize uint16
	numItems uint64
	levels   []levelRange
	nodes    []Node
}

// NodeSize returns the tree's configured branching factor.
func (t *RTree) NodeSize() uint16 { return t.nodeSize }

// NumItems returns the number of leaf items in the tree.
func (t *RTree) NumItems() uint64 { return t.numItems }

// Bounds returns the bounding box of the entire tree (the root node's
// box), or the zero Box if the tree has no items.
func (t *RTree) Bounds() Box {
	if len(t.nodes) == 0 {
		return Box{}
	}

	return t.nodes[0].Box
}

// LeafOffsets returns the Offset field of every leaf, in Hilbert (write)
// order. A container writer uses this to recover the permutation Build
// chose before it has resolved final feature-section offsets: pass the
// pre-sort feature index as each Item's Offset, build once to learn the
// order, then build again with real offsets once they're known.
func (t *RTree) LeafOffsets() []uint64 {
	if len(t.levels) == 0 {
		return nil
	}

	leaves := t.levels[0]
	out := make([]uint64, 0, leaves.end-leaves.start)
	for i := leaves.start; i < leaves.end; i++ {
		out = append(out, t.nodes[i].Offset)
	}

	return out
}

// levelify computes, bottom-up, the node-index range of each level of a
// tree with numItems leaves and the given branching factor, then assigns
// level start offsets top-down so the root lands at index 0.
func levelify(numItems int, nodeSize int) []levelRange {
	var countsPerLevel []int

	n := numItems
	countsPerLevel = append(countsPerLevel, n)

	for n > 1 {
		n = (n + nodeSize - 1) / nodeSize
		countsPerLevel = append(countsPerLevel, n)
	}

	total := 0
	for _, c := range countsPerLevel {
		total += c
	}

	levels := make([]levelRange, len(countsPerLevel))
	remaining := total

	for i, c := range countsPerLevel {
		remaining -= c
		levels[i] = levelRange{start: remaining, end: remaining + c}
	}

	return levels
}

// Size computes the on-disk byte size of a packed R-tree covering numItems
// leaves with the given node size, without building the tree.
func Size(numItems int, nodeSize uint16) int64 {
	if numItems == 0 {
		return 0
	}

	levels := levelify(numItems, int(nodeSize))

	return int64(levels[len(levels)-1].end) * nodeByteSize
}

// Build constructs a packed Hilbert R-tree from items. items need not be
// pre-sorted: Build computes each item's Hilbert code relative to the
// union of all item boxes (the dataset extent) and sorts by it. Leaf
// order in the returned tree (and therefore feature-section write order)
// is the Hilbert order.
//
// Build panics if items is empty or nodeSize is outside [2, 65535];
// construction of an empty tree is the caller's responsibility to avoid
// per the container writer's "omit the R-tree section" rule.
func Build(items []Item, nodeSize uint16) *RTree {
	if len(items) == 0 {
		panic("rtree: cannot build an empty tree")
	}

	if nodeSize < 2 {
		panic("rtree: node size must be at least 2")
	}

	extent := EmptyBox
	for _, it := range items {
		extent.Expand(it.Box)
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)

	codes, releaseCodes := pool.GetUint32Slice(len(sorted))
	defer releaseCodes()

	for i, it := range sorted {
		codes[i] = hilbertCode(extent, it.Box)
	}

	sort.Sort(&byHilbertCode{items: sorted, codes: codes})

	levels := levelify(len(sorted), int(nodeSize))
	nodes := make([]Node, levels[len(levels)-1].end)

	leafStart := levels[0].start
	for i, it := range sorted {
		nodes[leafStart+i] = Node{Box: it.Box, Offset: it.Offset}
	}

	for lvl := 0; lvl < len(levels)-1; lvl++ {
		level := levels[lvl]
		parentLevel := levels[lvl+1]
		parentIdx := parentLevel.start

		for childIdx := level.start; childIdx < level.end; {
			box := EmptyBox
			firstChild := childIdx

			for j := 0; j < int(nodeSize) && childIdx < level.end; j++ {
				box.Expand(nodes[childIdx].Box)
				childIdx++
			}

			nodes[parentIdx] = Node{Box: box, Offset: uint64(firstChild * nodeByteSize)} //nolint: gosec
			parentIdx++
		}
	}

	return &RTree{
		nodeSize: nodeSize,
		numItems: uint64(len(sorted)),
		levels:   levels,
		nodes:    nodes,
	}
}

type byHilbertCode struct {
	items []Item
	codes []uint32
}

func (b *byHilbertCode) Len() int { return len(b.items) }
func (b *byHilbertCode) Less(i, j int) bool {
	return b.codes[i] < b.codes[j]
}
func (b *byHilbertCode) Swap(i, j int) {
	b.items[i], b.items[j] = b.items[j], b.items[i]
	b.codes[i], b.codes[j] = b.codes[j], b.codes[i]
}

// Result is one spatial search hit.
type Result struct {
	// Offset is the feature's byte offset within the feature section.
	Offset uint64
	// ItemIndex is the leaf's position in Hilbert order, used only to
	// restore ascending-offset result order.
	ItemIndex int
}

// Search returns every leaf item whose box intersects query, ordered by
// ascending leaf index (equivalently ascending feature offset, since
// features are written in R-tree/Hilbert order).
func (t *RTree) Search(query Box) []Result {
	if len(t.nodes) == 0 {
		return nil
	}

	type ticket struct {
		nodeIndex int
		level     int
	}

	leafStart := t.levels[0].start
	stack := []ticket{{nodeIndex: 0, level: len(t.levels) - 1}}

	var results []Result

	for len(stack) > 0 {
		tk := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		level := t.levels[tk.level]
		end := tk.nodeIndex + int(t.nodeSize)
		if end > level.end {
			end = level.end
		}

		isLeaf := tk.nodeIndex >= leafStart

		for i := tk.nodeIndex; i < end; i++ {
			n := t.nodes[i]
			if !query.Intersects(n.Box) {
				continue
			}

			if isLeaf {
				results = append(results, Result{Offset: n.Offset, ItemIndex: i - leafStart})
			} else {
				childIndex := int(n.Offset) / nodeByteSize //nolint: gosec
				stack = append(stack, ticket{nodeIndex: childIndex, level: tk.level - 1})
			}
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ItemIndex < results[j].ItemIndex })

	return results
}
