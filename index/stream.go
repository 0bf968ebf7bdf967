package index

import (
	"io"

	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
	"github.com/fcb-io/fcb/internal/pool"
	"github.com/fcb-io/fcb/key"
)

// StreamIndex queries a sorted attribute index directly against a seekable
// source (file or HTTP range client) without materializing the whole
// index in memory.
//
// Because every read goes through io.ReaderAt rather than a stateful
// Read/Seek pair, every query method is automatically stateless: no
// position needs to be saved and restored around a query, satisfying the
// streaming contract that callers may treat the source as stateless.
//
// StreamIndex is not safe for concurrent use: the lazily-built offset
// table is populated on first access.
type StreamIndex struct {
	r      io.ReaderAt
	base   int64 // absolute offset of this index's first byte
	length int64 // declared byte length of the index section

	typeID       key.Type
	count        uint64
	entriesStart int64

	offsetTable []int64 // absolute start offset of each entry, plus a trailing end sentinel
}

// Open reads a sorted index's 12-byte header (type_id, entry_count) from r
// at [base, base+length) and returns a StreamIndex ready for querying.
func Open(r io.ReaderAt, base, length int64) (*StreamIndex, error) {
	var hdr [12]byte
	if _, err := r.ReadAt(hdr[:], base); err != nil {
		return nil, errs.IOError(err)
	}

	t := key.Type(endian.LE.Uint32(hdr[0:4]))
	if !t.Valid() {
		return nil, errs.ErrInvalidType
	}

	return &StreamIndex{
		r:            r,
		base:         base,
		length:       length,
		typeID:       t,
		count:        endian.LE.Uint64(hdr[4:12]),
		entriesStart: base + 12,
	}, nil
}

// Type returns the index's key type.
func (s *StreamIndex) Type() key.Type { return s.typeID }

// Count returns the declared number of entries.
func (s *StreamIndex) Count() uint64 { return s.count }

// ensureOffsetTable scans the index once, recording each entry's absolute
// start offset, so later binary searches cost O(log n) seeks instead of
// O(n). This is the recommended "materialize an auxiliary entry offset
// table on first access" strategy from the streaming query contract.
func (s *StreamIndex) ensureOffsetTable() error {
	if s.offsetTable != nil {
		return nil
	}

	table := make([]int64, s.count+1)
	pos := s.entriesStart

	var lenBuf [8]byte
	for i := uint64(0); i < s.count; i++ {
		table[i] = pos

		if _, err := s.r.ReadAt(lenBuf[:], pos); err != nil {
			return errs.IOError(err)
		}

		keyLen := endian.LE.Uint64(lenBuf[:])
		pos += 8 + int64(keyLen) //nolint: gosec

		if _, err := s.r.ReadAt(lenBuf[:], pos); err != nil {
			return errs.IOError(err)
		}

		offsetsLen := endian.LE.Uint64(lenBuf[:])
		pos += 8 + int64(offsetsLen)*8 //nolint: gosec
	}
	table[s.count] = pos

	s.offsetTable = table

	return nil
}

// readKey reads only the key bytes of entry i, using a pooled scratch
// buffer: a binary search probes O(log n) keys per query without ever
// needing the rest of the entry, so this avoids reading or allocating for
// the (possibly much larger) offset list.
func (s *StreamIndex) readKey(i uint64) (key.Key, error) {
	start := s.offsetTable[i]

	var lenBuf [8]byte
	if _, err := s.r.ReadAt(lenBuf[:], start); err != nil {
		return key.Key{}, errs.IOError(err)
	}

	keyLen := endian.LE.Uint64(lenBuf[:])
	if keyLen == 0 {
		return key.Decode(s.typeID, nil)
	}

	buf := pool.GetIndexEntryBuffer()
	defer pool.PutIndexEntryBuffer(buf)

	buf.ExtendOrGrow(int(keyLen)) //nolint: gosec
	keyBytes := buf.Slice(0, int(keyLen))

	if _, err := s.r.ReadAt(keyBytes, start+8); err != nil {
		return key.Key{}, errs.IOError(err)
	}

	return key.Decode(s.typeID, keyBytes)
}

// readEntry reads one full entry (key plus offset list) through a pooled
// scratch buffer, reused across the repeated probes of a binary search or
// the sequential steps of a range scan rather than allocating per entry.
func (s *StreamIndex) readEntry(i uint64) (Entry, error) {
	start, end := s.offsetTable[i], s.offsetTable[i+1]

	pbuf := pool.GetIndexEntryBuffer()
	defer pool.PutIndexEntryBuffer(pbuf)

	pbuf.ExtendOrGrow(int(end - start)) //nolint: gosec
	buf := pbuf.Slice(0, int(end-start))

	if _, err := s.r.ReadAt(buf, start); err != nil {
		return Entry{}, errs.IOError(err)
	}

	br := newByteReader(buf)

	keyLen, err := br.u64()
	if err != nil {
		return Entry{}, err
	}

	keyBytes, err := br.bytes(int(keyLen))
	if err != nil {
		return Entry{}, err
	}

	k, err := key.Decode(s.typeID, keyBytes)
	if err != nil {
		return Entry{}, err
	}

	offsetsLen, err := br.u64()
	if err != nil {
		return Entry{}, err
	}

	offsets := make([]uint64, offsetsLen)
	for j := range offsets {
		v, err := br.u64()
		if err != nil {
			return Entry{}, err
		}

		offsets[j] = v
	}

	return Entry{Key: k, Offsets: offsets}, nil
}

// lowerBound returns the smallest entry index i such that entries[i].Key
// >= k (or Count() if no such entry exists), via binary search.
func (s *StreamIndex) lowerBound(k key.Key) (uint64, error) {
	lo, hi := uint64(0), s.count
	for lo < hi {
		mid := lo + (hi-lo)/2

		mk, err := s.readKey(mid)
		if err != nil {
			return 0, err
		}

		if key.Compare(s.typeID, mk, k) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo, nil
}

// QueryExact returns the offsets for key k, or nil if absent.
func (s *StreamIndex) QueryExact(k key.Key) ([]uint64, error) {
	if err := s.ensureOffsetTable(); err != nil {
		return nil, err
	}

	pos, err := s.lowerBound(k)
	if err != nil {
		return nil, err
	}

	if pos >= s.count {
		return nil, nil
	}

	e, err := s.readEntry(pos)
	if err != nil {
		return nil, err
	}

	if key.Compare(s.typeID, e.Key, k) != 0 {
		return nil, nil
	}

	return e.Offsets, nil
}

// QueryRange returns the concatenation, in key-then-offset order, of
// offsets for every key in [lower, upper). A nil bound means that side is
// open. The lower bound is located via binary search, then entries are
// read sequentially until the upper bound.
func (s *StreamIndex) QueryRange(lower, upper *key.Key) ([]uint64, error) {
	if err := s.ensureOffsetTable(); err != nil {
		return nil, err
	}

	start := uint64(0)
	if lower != nil {
		var err error
		start, err = s.lowerBound(*lower)
		if err != nil {
			return nil, err
		}
	}

	end := s.count
	if upper != nil {
		var err error
		end, err = s.lowerBound(*upper)
		if err != nil {
			return nil, err
		}
	}

	var out []uint64
	for i := start; i < end && i < s.count; i++ {
		e, err := s.readEntry(i)
		if err != nil {
			return nil, err
		}

		out = append(out, e.Offsets...)
	}

	return out, nil
}

// EntryAt returns the entry at position i, failing with ErrOutOfBounds if
// i exceeds the declared entry count.
func (s *StreamIndex) EntryAt(i uint64) (Entry, error) {
	if i >= s.count {
		return Entry{}, errs.ErrOutOfBounds
	}

	if err := s.ensureOffsetTable(); err != nil {
		return Entry{}, err
	}

	return s.readEntry(i)
}
