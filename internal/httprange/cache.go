package httprange

import (
	"sort"
	"sync"
)

// fetchFunc retrieves the byte range [start, end) from the remote
// resource.
type fetchFunc func(start, end int64) ([]byte, error)

// span is one cached, contiguous byte range and its data.
type span struct {
	start, end int64
	data       []byte
}

func (s span) contains(start, end int64) bool { return s.start <= start && end <= s.end }

// spanCache caches fetched byte ranges and coalesces new requests with
// nearby cached ranges so that requests separated by no more than
// threshold bytes are served by a single GET, trading some wasted bytes
// for fewer round trips.
type spanCache struct {
	mu            sync.Mutex
	contentLength int64
	threshold     int64
	fetch         fetchFunc
	spans         []span
}

func newSpanCache(contentLength, threshold int64, fetch fetchFunc) *spanCache {
	return &spanCache{contentLength: contentLength, threshold: threshold, fetch: fetch}
}

// get returns the bytes for [off, off+length), fetching and caching
// whatever is missing.
func (c *spanCache) get(off, length int64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := off + length
	if end > c.contentLength {
		end = c.contentLength
	}

	if s, ok := c.findCovering(off, end); ok {
		return s.data[off-s.start : end-s.start], nil
	}

	mergeStart, mergeEnd := c.mergeWindow(off, end)

	data, err := c.fetch(mergeStart, mergeEnd)
	if err != nil {
		return nil, err
	}

	c.insert(span{start: mergeStart, end: mergeEnd, data: data})

	return data[off-mergeStart : end-mergeStart], nil
}

func (c *spanCache) findCovering(start, end int64) (span, bool) {
	for _, s := range c.spans {
		if s.contains(start, end) {
			return s, true
		}
	}

	return span{}, false
}

// mergeWindow widens [start, end) to absorb any cached span within
// threshold bytes on either side, following the same coalescing rule as
// CoalesceRanges.
func (c *spanCache) mergeWindow(start, end int64) (int64, int64) {
	for {
		grew := false

		for _, s := range c.spans {
			if s.start-end > c.threshold || start-s.end > c.threshold {
				continue
			}

			if s.start < start {
				start = s.start
				grew = true
			}

			if s.end > end {
				end = s.end
				grew = true
			}
		}

		if !grew {
			break
		}
	}

	if end > c.contentLength {
		end = c.contentLength
	}

	return start, end
}

// insert adds s to the cache, merging it with any overlapping or
// adjacent existing spans so the cache never holds redundant overlapping
// ranges.
func (c *spanCache) insert(s span) {
	merged := []span{s}

	for _, existing := range c.spans {
		if existing.end < merged[0].start || existing.start > merged[0].end {
			merged = append(merged, existing)

			continue
		}

		combined := merged[0]
		if existing.start < combined.start {
			combined.start = existing.start
		}

		if existing.end > combined.end {
			combined.end = existing.end
		}

		combined.data = stitch(existing, s, combined.start, combined.end)
		merged[0] = combined
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].start < merged[j].start })

	c.spans = merged
}

// stitch rebuilds a contiguous buffer for [start, end) from two
// overlapping or adjacent spans, preferring b's bytes where both cover
// the same offset (b is the newly fetched span).
func stitch(a, b span, start, end int64) []byte {
	out := make([]byte, end-start)

	for i, v := range a.data {
		out[a.start-start+int64(i)] = v
	}

	for i, v := range b.data {
		out[b.start-start+int64(i)] = v
	}

	return out
}
