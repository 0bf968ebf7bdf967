// Package index implements the sorted attribute index (one per indexed
// field): an ordered sequence of (key, offsets) entries, serializable to
// the on-disk layout described by the container's attribute-index section,
// and queryable either fully in-memory or by streaming a seekable source
// without materializing the whole index.
package index

import "github.com/fcb-io/fcb/key"

// Entry is a single (key, offsets) pair of a sorted index. Offsets is the
// ascending list of feature offsets whose indexed attribute equals Key.
type Entry struct {
	Key     key.Key
	Offsets []uint64
}
