// Package container implements the self-describing binary container: magic
// prefix, length-prefixed header, an optional packed R-tree section, zero
// or more attribute indices, then length-prefixed feature records.
package container

import (
	"hash/crc32"

	"github.com/fcb-io/fcb/endian"
	"github.com/fcb-io/fcb/errs"
	"github.com/fcb-io/fcb/key"
)

// Magic is the fixed 8-byte ASCII prefix identifying an FCB container.
var Magic = [8]byte{'F', 'C', 'B', 'c', 'i', 't', 'y', '1'}

// MinHeaderSize and MaxHeaderSize bound the declared header_size field.
const (
	MinHeaderSize = 8
	MaxHeaderSize = 1 << 20 // 1 MiB
)

// MaxFeatureRecordSize bounds a feature record's declared u32 size prefix.
// A corrupted or truncated container can produce an implausible size (up to
// 4 GiB from four garbage bytes); reads reject anything past this bound
// before allocating or issuing the body read, rather than trusting the
// prefix.
const MaxFeatureRecordSize = 256 << 20 // 256 MiB

// Point3D is a 3D coordinate, used for the transform's scale/translate
// vectors and the optional geographic extent.
type Point3D struct {
	X, Y, Z float64
}

// Transform holds the scale and translate vectors mapping encoded feature
// vertices to real-world coordinates. Writers must always emit Transform.
type Transform struct {
	Scale     Point3D
	Translate Point3D
}

// Extent is an optional axis-aligned 3D bounding volume over the whole
// dataset, described by its minimum and maximum corner.
type Extent struct {
	Min Point3D
	Max Point3D
}

// Column describes one attribute field of the (opaque, externally defined)
// feature schema: its declared position, name, and key type.
type Column struct {
	Index uint16
	Name  string
	Type  key.Type
}

// AttrIndexDescriptor is one entry of the header's attribute_index list:
// the field it indexes and the serialized byte length of that index
// within the attribute-index section. Descriptor order equals on-disk
// index order.
type AttrIndexDescriptor struct {
	FieldIndex uint16
	ByteLength uint32
}

// PointOfContact carries the optional contact metadata from the header
// schema; every field is a plain string and may be empty.
type PointOfContact struct {
	ContactName string
	ContactType string
	Role        string
	Phone       string
	Email       string
	Website     string
	Address     string
}

// Header is the container's logical metadata record. Extent and
// PointOfContact are nil-able pointers and the optional string fields are
// omitted when empty, so a writer may emit a minimal header carrying only
// Version and Transform, per the header schema's tolerance requirement.
type Header struct {
	Version        string
	Transform      Transform
	FeaturesCount  uint64
	IndexNodeSize  uint16
	Columns        []Column
	AttributeIndex []AttrIndexDescriptor

	Extent          *Extent
	ReferenceSystem string
	Identifier      string
	ReferenceDate   string
	Title           string
	PointOfContact  *PointOfContact
}

// HasSpatialIndex reports whether a writer following this header would
// have emitted an R-tree section.
func (h *Header) HasSpatialIndex() bool {
	return h.IndexNodeSize > 0 && h.FeaturesCount > 0
}

// optional metadata presence bits, in the order the fields are written.
const (
	flagExtent uint8 = 1 << iota
	flagReferenceSystem
	flagIdentifier
	flagReferenceDate
	flagTitle
	flagPointOfContact
)

// EncodeHeader serializes h to its on-disk form: the logical header
// fields followed by a trailing CRC32 (IEEE) checksum over everything
// that precedes it, so a reader can detect truncation or corruption
// without relying on the outer header_size field alone.
func EncodeHeader(h *Header) []byte {
	w := newByteWriter()

	w.string(h.Version)
	w.point3D(h.Transform.Scale)
	w.point3D(h.Transform.Translate)
	w.u64(h.FeaturesCount)
	w.u16(h.IndexNodeSize)

	w.u32(uint32(len(h.Columns))) //nolint: gosec
	for _, c := range h.Columns {
		w.u16(c.Index)
		w.string(c.Name)
		w.u32(uint32(c.Type))
	}

	w.u32(uint32(len(h.AttributeIndex))) //nolint: gosec
	for _, d := range h.AttributeIndex {
		w.u16(d.FieldIndex)
		w.u32(d.ByteLength)
	}

	var flags uint8
	if h.Extent != nil {
		flags |= flagExtent
	}
	if h.ReferenceSystem != "" {
		flags |= flagReferenceSystem
	}
	if h.Identifier != "" {
		flags |= flagIdentifier
	}
	if h.ReferenceDate != "" {
		flags |= flagReferenceDate
	}
	if h.Title != "" {
		flags |= flagTitle
	}
	if h.PointOfContact != nil {
		flags |= flagPointOfContact
	}

	w.u8(flags)

	if h.Extent != nil {
		w.point3D(h.Extent.Min)
		w.point3D(h.Extent.Max)
	}
	if flags&flagReferenceSystem != 0 {
		w.string(h.ReferenceSystem)
	}
	if flags&flagIdentifier != 0 {
		w.string(h.Identifier)
	}
	if flags&flagReferenceDate != 0 {
		w.string(h.ReferenceDate)
	}
	if flags&flagTitle != 0 {
		w.string(h.Title)
	}
	if h.PointOfContact != nil {
		poc := h.PointOfContact
		w.string(poc.ContactName)
		w.string(poc.ContactType)
		w.string(poc.Role)
		w.string(poc.Phone)
		w.string(poc.Email)
		w.string(poc.Website)
		w.string(poc.Address)
	}

	body := w.bytes()

	checksum := crc32.ChecksumIEEE(body)

	out := make([]byte, len(body)+4)
	copy(out, body)
	endian.LE.PutUint32(out[len(body):], checksum)

	return out
}

// DecodeHeader parses a header previously produced by EncodeHeader,
// failing with ErrFlatBufferVerify if the trailing checksum doesn't match
// or any field is truncated.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < 4 {
		return nil, errs.ErrFlatBufferVerify
	}

	body, trailer := data[:len(data)-4], data[len(data)-4:]
	if crc32.ChecksumIEEE(body) != endian.LE.Uint32(trailer) {
		return nil, errs.ErrFlatBufferVerify
	}

	r := newByteReader(body)

	h := &Header{}

	var err error
	if h.Version, err = r.string(); err != nil {
		return nil, err
	}
	if h.Transform.Scale, err = r.point3D(); err != nil {
		return nil, err
	}
	if h.Transform.Translate, err = r.point3D(); err != nil {
		return nil, err
	}
	if h.FeaturesCount, err = r.u64(); err != nil {
		return nil, err
	}
	if h.IndexNodeSize, err = r.u16(); err != nil {
		return nil, err
	}

	columnCount, err := r.u32()
	if err != nil {
		return nil, err
	}

	h.Columns = make([]Column, columnCount)
	for i := range h.Columns {
		if h.Columns[i].Index, err = r.u16(); err != nil {
			return nil, err
		}
		if h.Columns[i].Name, err = r.string(); err != nil {
			return nil, err
		}

		typeID, err := r.u32()
		if err != nil {
			return nil, err
		}

		h.Columns[i].Type = key.Type(typeID)
		if !h.Columns[i].Type.Valid() {
			return nil, errs.ErrInvalidType
		}
	}

	attrCount, err := r.u32()
	if err != nil {
		return nil, err
	}

	h.AttributeIndex = make([]AttrIndexDescriptor, attrCount)
	for i := range h.AttributeIndex {
		if h.AttributeIndex[i].FieldIndex, err = r.u16(); err != nil {
			return nil, err
		}
		if h.AttributeIndex[i].ByteLength, err = r.u32(); err != nil {
			return nil, err
		}
	}

	flags, err := r.u8()
	if err != nil {
		return nil, err
	}

	if flags&flagExtent != 0 {
		var ext Extent
		if ext.Min, err = r.point3D(); err != nil {
			return nil, err
		}
		if ext.Max, err = r.point3D(); err != nil {
			return nil, err
		}

		h.Extent = &ext
	}
	if flags&flagReferenceSystem != 0 {
		if h.ReferenceSystem, err = r.string(); err != nil {
			return nil, err
		}
	}
	if flags&flagIdentifier != 0 {
		if h.Identifier, err = r.string(); err != nil {
			return nil, err
		}
	}
	if flags&flagReferenceDate != 0 {
		if h.ReferenceDate, err = r.string(); err != nil {
			return nil, err
		}
	}
	if flags&flagTitle != 0 {
		if h.Title, err = r.string(); err != nil {
			return nil, err
		}
	}
	if flags&flagPointOfContact != 0 {
		var poc PointOfContact
		if poc.ContactName, err = r.string(); err != nil {
			return nil, err
		}
		if poc.ContactType, err = r.string(); err != nil {
			return nil, err
		}
		if poc.Role, err = r.string(); err != nil {
			return nil, err
		}
		if poc.Phone, err = r.string(); err != nil {
			return nil, err
		}
		if poc.Email, err = r.string(); err != nil {
			return nil, err
		}
		if poc.Website, err = r.string(); err != nil {
			return nil, err
		}
		if poc.Address, err = r.string(); err != nil {
			return nil, err
		}

		h.PointOfContact = &poc
	}

	return h, nil
}
