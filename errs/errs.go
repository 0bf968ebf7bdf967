// Package errs defines the sentinel errors returned at the fcb package
// boundary. Every failure kind described by the container's error taxonomy
// is a plain package-level error value so callers can use errors.Is instead
// of matching on message strings.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks any read/write failure on the underlying source. The
	// triggering error is wrapped alongside it with IOError.
	ErrIO = errors.New("fcb: io error")

	// ErrMissingMagicBytes means the first 8 bytes of a container did not
	// match the fixed magic prefix.
	ErrMissingMagicBytes = errors.New("fcb: missing magic bytes")

	// ErrIllegalHeaderSize means the declared header size fell outside
	// [8, 1MiB].
	ErrIllegalHeaderSize = errors.New("fcb: illegal header size")

	// ErrFlatBufferVerify means a header or feature record failed
	// structural verification (checksum mismatch, truncated record).
	ErrFlatBufferVerify = errors.New("fcb: structural verification failed")

	// ErrInvalidType means an unknown key type id was encountered while
	// parsing an attribute index.
	ErrInvalidType = errors.New("fcb: invalid key type")

	// ErrNoIndex means a spatial query was issued against a container
	// that has no R-tree section.
	ErrNoIndex = errors.New("fcb: no spatial index")

	// ErrAttributeIndexNotFound means a query's field is not declared in
	// any attribute index. Distinct from an unknown field inside a
	// multi-condition query, which is silently dropped instead.
	ErrAttributeIndexNotFound = errors.New("fcb: attribute index not found")

	// ErrInvalidFeature means a feature's size prefix is implausible or
	// its body failed verification.
	ErrInvalidFeature = errors.New("fcb: invalid feature record")

	// ErrQueryError means a query is structurally malformed (empty,
	// inconsistent key types).
	ErrQueryError = errors.New("fcb: malformed query")

	// ErrAttributeIndexSizeOverflow means the sum of declared attribute
	// index byte lengths exceeds the range of a uint32 header field.
	ErrAttributeIndexSizeOverflow = errors.New("fcb: attribute index size overflow")

	// ErrOutOfBounds means a requested entry index exceeds an index's
	// declared entry count.
	ErrOutOfBounds = errors.New("fcb: out of bounds")
)

// IOError wraps an underlying I/O error with ErrIO so callers can match
// either errors.Is(err, errs.ErrIO) or the original cause.
func IOError(cause error) error {
	return fmt.Errorf("%w: %w", ErrIO, cause)
}
