package index

import (
	"bytes"

	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/key"
)

// Size returns the serialized byte length of the index without building
// the full index encoding (each key is still encoded to learn its length),
// so a writer can size the header's byte_length descriptor before
// emitting the bytes.
func (s SortedIndex) Size() int {
	n := 4 + 8 // type_id + entry_count
	for _, e := range s.entries {
		keyLen := len(e.Key.Encode())
		n += 8 + keyLen + 8 + 8*len(e.Offsets)
	}

	return n
}

// WriteTo appends the index's on-disk encoding to buf: u32 type_id, u64
// entry_count, then entry_count entries of { u64 key_len, key bytes, u64
// offsets_len, offsets_len x u64 offset }, all little-endian.
func (s SortedIndex) WriteTo(buf *bytes.Buffer) {
	buf.Grow(s.Size())

	var hdr [12]byte
	endian.LE.PutUint32(hdr[0:4], uint32(s.Type))
	endian.LE.PutUint64(hdr[4:12], uint64(len(s.entries)))
	buf.Write(hdr[:])

	for _, e := range s.entries {
		encoded := e.Key.Encode()

		var lenBuf [8]byte
		endian.LE.PutUint64(lenBuf[:], uint64(len(encoded)))
		buf.Write(lenBuf[:])
		buf.Write(encoded)

		endian.LE.PutUint64(lenBuf[:], uint64(len(e.Offsets)))
		buf.Write(lenBuf[:])

		var offBuf [8]byte
		for _, off := range e.Offsets {
			endian.LE.PutUint64(offBuf[:], off)
			buf.Write(offBuf[:])
		}
	}
}

// Bytes returns the index's full on-disk encoding.
func (s SortedIndex) Bytes() []byte {
	var buf bytes.Buffer
	s.WriteTo(&buf)

	return buf.Bytes()
}

// Parse decodes a SortedIndex fully into memory from its on-disk encoding.
// Unlike the streaming reader, Parse requires the entire index's bytes in
// data and does not perform any seeks.
func Parse(data []byte) (SortedIndex, error) {
	r := newByteReader(data)

	typeID, err := r.u32()
	if err != nil {
		return SortedIndex{}, err
	}

	t := key.Type(typeID)
	if !t.Valid() {
		return SortedIndex{}, errInvalidType()
	}

	count, err := r.u64()
	if err != nil {
		return SortedIndex{}, err
	}

	entries := make([]Entry, 0, count)
	for i := uint64(0); i < count; i++ {
		keyLen, err := r.u64()
		if err != nil {
			return SortedIndex{}, err
		}

		keyBytes, err := r.bytes(int(keyLen))
		if err != nil {
			return SortedIndex{}, err
		}

		k, err := key.Decode(t, keyBytes)
		if err != nil {
			return SortedIndex{}, err
		}

		offsetsLen, err := r.u64()
		if err != nil {
			return SortedIndex{}, err
		}

		offsets := make([]uint64, offsetsLen)
		for j := range offsets {
			v, err := r.u64()
			if err != nil {
				return SortedIndex{}, err
			}

			offsets[j] = v
		}

		entries = append(entries, Entry{Key: k, Offsets: offsets})
	}

	return SortedIndex{Type: t, entries: entries}, nil
}
