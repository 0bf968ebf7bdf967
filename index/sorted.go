package index

import (
	"sort"

	"github.com/fcb-io/fcb/key"
)

// SortedIndex is the fully in-memory form of one field's attribute index.
// Entries are kept strictly increasing by Type's total order.
type SortedIndex struct {
	Type    key.Type
	entries []Entry
}

// Build sorts entries by key ascending and deduplicates by concatenating
// the offsets lists of colliding keys. The result is monotonically
// increasing in key.
func Build(t key.Type, entries []Entry) SortedIndex {
	sort.SliceStable(entries, func(i, j int) bool {
		return key.Compare(t, entries[i].Key, entries[j].Key) < 0
	})

	deduped := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if n := len(deduped); n > 0 && key.Compare(t, deduped[n-1].Key, e.Key) == 0 {
			deduped[n-1].Offsets = append(deduped[n-1].Offsets, e.Offsets...)

			continue
		}

		cp := Entry{Key: e.Key, Offsets: append([]uint64(nil), e.Offsets...)}
		deduped = append(deduped, cp)
	}

	for i := range deduped {
		sort.Slice(deduped[i].Offsets, func(a, b int) bool { return deduped[i].Offsets[a] < deduped[i].Offsets[b] })
	}

	return SortedIndex{Type: t, entries: deduped}
}

// Len returns the number of distinct keys in the index.
func (s SortedIndex) Len() int { return len(s.entries) }

// Entries returns the index's entries in ascending key order. The returned
// slice must not be mutated.
func (s SortedIndex) Entries() []Entry { return s.entries }

func (s SortedIndex) search(k key.Key) (pos int, found bool) {
	pos = sort.Search(len(s.entries), func(i int) bool {
		return key.Compare(s.Type, s.entries[i].Key, k) >= 0
	})
	found = pos < len(s.entries) && key.Compare(s.Type, s.entries[pos].Key, k) == 0

	return pos, found
}

// QueryExact returns the offsets associated with k, or nil if k is absent.
func (s SortedIndex) QueryExact(k key.Key) []uint64 {
	pos, found := s.search(k)
	if !found {
		return nil
	}

	return s.entries[pos].Offsets
}

// QueryRange returns the concatenation, in key-then-offset order, of the
// offsets for every key in [lower, upper). A nil lower/upper bound means
// that side is open.
func (s SortedIndex) QueryRange(lower, upper *key.Key) []uint64 {
	start := 0
	if lower != nil {
		start, _ = s.search(*lower)
	}

	end := len(s.entries)
	if upper != nil {
		end, _ = s.search(*upper)
	}

	var out []uint64
	for i := start; i < end && i < len(s.entries); i++ {
		out = append(out, s.entries[i].Offsets...)
	}

	return out
}

// QueryFilter returns the offsets of every key satisfying pred, evaluated
// in ascending key order.
func (s SortedIndex) QueryFilter(pred func(key.Key) bool) []uint64 {
	var out []uint64
	for _, e := range s.entries {
		if pred(e.Key) {
			out = append(out, e.Offsets...)
		}
	}

	return out
}
