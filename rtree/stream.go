package rtree

import (
	"io"
	"math"
	"sort"

	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
)

// StreamTree searches a packed R-tree directly from a seekable source
// (file or HTTP range client) without materializing every node. Reads go
// through io.ReaderAt, so a StreamTree has no position to save or
// restore between queries.
type StreamTree struct {
	r        io.ReaderAt
	base     int64 // absolute offset of the R-tree section's first byte
	numItems int
	nodeSize uint16
	levels   []levelRange
}

// OpenStream wraps a serialized R-tree section living at [base, ...) of r.
// numItems and nodeSize come from the container header, not the section
// itself (the on-disk form carries no self-describing length).
func OpenStream(r io.ReaderAt, base int64, numItems int, nodeSize uint16) *StreamTree {
	var levels []levelRange
	if numItems > 0 {
		levels = levelify(numItems, int(nodeSize))
	}

	return &StreamTree{r: r, base: base, numItems: numItems, nodeSize: nodeSize, levels: levels}
}

func (s *StreamTree) readNode(index int) (Node, error) {
	var rec [nodeByteSize]byte
	if _, err := s.r.ReadAt(rec[:], s.base+int64(index)*nodeByteSize); err != nil {
		return Node{}, errs.IOError(err)
	}

	return Node{
		Box: Box{
			MinX: math.Float64frombits(endian.LE.Uint64(rec[0:8])),
			MinY: math.Float64frombits(endian.LE.Uint64(rec[8:16])),
			MaxX: math.Float64frombits(endian.LE.Uint64(rec[16:24])),
			MaxY: math.Float64frombits(endian.LE.Uint64(rec[24:32])),
		},
		Offset: endian.LE.Uint64(rec[32:40]),
	}, nil
}

// Search descends the tree one node at a time via ReadAt, visiting only
// the nodes whose ancestor chain intersects query. Results are ordered
// ascending by leaf index (equivalently ascending feature offset).
func (s *StreamTree) Search(query Box) ([]Result, error) {
	if s.numItems == 0 {
		return nil, nil
	}

	type ticket struct {
		nodeIndex int
		level     int
	}

	leafStart := s.levels[0].start
	stack := []ticket{{nodeIndex: 0, level: len(s.levels) - 1}}

	var results []Result

	for len(stack) > 0 {
		tk := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		level := s.levels[tk.level]
		end := tk.nodeIndex + int(s.nodeSize)
		if end > level.end {
			end = level.end
		}

		isLeaf := tk.nodeIndex >= leafStart

		for i := tk.nodeIndex; i < end; i++ {
			n, err := s.readNode(i)
			if err != nil {
				return nil, err
			}

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

	return results, nil
}

// byteRange is a half-open [Start, End) byte range within the R-tree
// section, used to batch node reads into coalesced HTTP requests.
type byteRange struct {
	start, end int64
}

// CoalesceRanges merges ranges that are within threshold bytes of each
// other (inclusive of overlapping ranges), returning the minimal covering
// set of non-overlapping ranges sorted ascending: accept wasted bytes
// below threshold rather than issue an extra round trip. SearchBatched
// uses it for R-tree level descent; internal/httprange's span cache
// applies the same gap rule to each ReadAt, feature reads included. The
// container reader does not batch feature offsets itself.
func CoalesceRanges(ranges []byteRange, threshold int64) []byteRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]byteRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	merged := []byteRange{sorted[0]}

	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.start-last.end <= threshold {
			if r.end > last.end {
				last.end = r.end
			}

			continue
		}

		merged = append(merged, r)
	}

	return merged
}

// SearchBatched behaves like Search but pulls each visited tree level in
// coalesced batches: for every level the descent would visit, it computes
// the covering byte ranges of candidate nodes (merging gaps no larger than
// combineRequestThreshold), fetches each merged range with one ReadAt
// call, and only then tests intersection. This trades some wasted bytes
// for far fewer round trips against an HTTP-backed io.ReaderAt.
func (s *StreamTree) SearchBatched(query Box, combineRequestThreshold int64) ([]Result, error) {
	if s.numItems == 0 {
		return nil, nil
	}

	leafStart := s.levels[0].start

	type candidate struct {
		nodeIndex int
	}

	currentLevel := len(s.levels) - 1
	frontier := []candidate{{nodeIndex: 0}}

	var results []Result

	for len(frontier) > 0 {
		level := s.levels[currentLevel]
		isLeaf := level.start >= leafStart

		ranges := make([]byteRange, 0, len(frontier))
		for _, c := range frontier {
			end := c.nodeIndex + int(s.nodeSize)
			if end > level.end {
				end = level.end
			}

			ranges = append(ranges, byteRange{
				start: s.base + int64(c.nodeIndex)*nodeByteSize,
				end:   s.base + int64(end)*nodeByteSize,
			})
		}

		merged := CoalesceRanges(ranges, combineRequestThreshold)

		buffers := make([][]byte, len(merged))
		for i, r := range merged {
			buf := make([]byte, r.end-r.start)
			if _, err := s.r.ReadAt(buf, r.start); err != nil {
				return nil, errs.IOError(err)
			}

			buffers[i] = buf
		}

		readAt := func(absOffset int64) Node {
			for i, r := range merged {
				if absOffset >= r.start && absOffset < r.end {
					rec := buffers[i][absOffset-r.start : absOffset-r.start+nodeByteSize]

					return Node{
						Box: Box{
							MinX: math.Float64frombits(endian.LE.Uint64(rec[0:8])),
							MinY: math.Float64frombits(endian.LE.Uint64(rec[8:16])),
							MaxX: math.Float64frombits(endian.LE.Uint64(rec[16:24])),
							MaxY: math.Float64frombits(endian.LE.Uint64(rec[24:32])),
						},
						Offset: endian.LE.Uint64(rec[32:40]),
					}
				}
			}

			panic("rtree: node offset not covered by fetched range")
		}

		var next []candidate

		for _, c := range frontier {
			end := c.nodeIndex + int(s.nodeSize)
			if end > level.end {
				end = level.end
			}

			for i := c.nodeIndex; i < end; i++ {
				n := readAt(s.base + int64(i)*nodeByteSize)
				if !query.Intersects(n.Box) {
					continue
				}

				if isLeaf {
					results = append(results, Result{Offset: n.Offset, ItemIndex: i - leafStart})
				} else {
					childIndex := int(n.Offset) / nodeByteSize //nolint: gosec
					next = append(next, candidate{nodeIndex: childIndex})
				}
			}
		}

		frontier = next
		currentLevel--
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ItemIndex < results[j].ItemIndex })

	return results, nil
}
