// Package endian provides the byte order engine used to encode and decode
// every fixed-width field in a container: header, R-tree nodes, attribute
// index entries, and feature-size prefixes.
//
// The container format is little-endian only (see the key codec contract),
// but the EndianEngine abstraction is threaded explicitly through key,
// index, rtree and container rather than relying on ambient host
// endianness, so a byte-order engine is never implied.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface for convenient byte order operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// LE is the engine used by every on-disk fcb structure.
var LE EndianEngine = binary.LittleEndian

// GetLittleEndianEngine returns the little-endian engine used by the
// container format.
func GetLittleEndianEngine() EndianEngine {
	return LE
}
