package container

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentHash derives a stable 64-bit fingerprint of the header's
// descriptive metadata (version, identifier, reference date/system, title,
// feature count, and the point of contact's name and email) using
// xxHash64. Other header fields do not affect it. It is never used for an on-disk
// offset or ordering decision — only for cheap dataset-identity comparison
// by callers (e.g. a cache key, or detecting that two containers describe
// the same dataset revision).
func (h *Header) ContentHash() uint64 {
	var d xxhash.Digest
	d.Reset()

	writeField := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}

	writeField(h.Version)
	writeField(h.Identifier)
	writeField(h.ReferenceDate)
	writeField(h.ReferenceSystem)
	writeField(h.Title)
	writeField(strconv.FormatUint(h.FeaturesCount, 10))

	if h.PointOfContact != nil {
		poc := h.PointOfContact
		writeField(poc.ContactName)
		writeField(poc.Email)
	}

	return d.Sum64()
}
