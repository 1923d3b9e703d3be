package exif

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// TIFF field types, per the EXIF 2.3 specification.
const (
	TypeByte      uint16 = 1
	TypeASCII     uint16 = 2
	TypeShort     uint16 = 3
	TypeLong      uint16 = 4
	TypeRational  uint16 = 5
	TypeSByte     uint16 = 6
	TypeUndefined uint16 = 7
	TypeSShort    uint16 = 8
	TypeSLong     uint16 = 9
	TypeSRational uint16 = 10
	TypeFloat     uint16 = 11
	TypeDouble    uint16 = 12
)

// Pointer tags linking the individual IFDs together. These are never stored
// as plain entries; they are reconstructed when a container is serialized.
const (
	TagExifIFDPointer    uint16 = 0x8769
	TagGPSIFDPointer     uint16 = 0x8825
	TagInteropIFDPointer uint16 = 0xA005
	TagThumbnailOffset   uint16 = 0x0201
	TagThumbnailLength   uint16 = 0x0202
)

var typeSizes = map[uint16]uint32{
	TypeByte:      1,
	TypeASCII:     1,
	TypeShort:     2,
	TypeLong:      4,
	TypeRational:  8,
	TypeSByte:     1,
	TypeUndefined: 1,
	TypeSShort:    2,
	TypeSLong:     4,
	TypeSRational: 8,
	TypeFloat:     4,
	TypeDouble:    8,
}

// Rational is an unsigned TIFF rational value.
type Rational struct {
	Num uint32
	Den uint32
}

// Entry is a single typed field in an IFD. Data holds the raw value bytes
// in the container's byte order and its length is always Count times the
// size of Type.
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Data  []byte
}

// IFD is an ordered list of entries. Entries are sorted by tag number when
// the IFD is serialized, as required by the TIFF specification.
type IFD []*Entry

// Set replaces any existing entry with the same tag, otherwise appends.
func (ifd *IFD) Set(e *Entry) {

	for i, other := range *ifd {

		if other.Tag == e.Tag {
			(*ifd)[i] = e
			return
		}
	}

	*ifd = append(*ifd, e)
}

// Get returns the entry for a tag, or nil.
func (ifd IFD) Get(tag uint16) *Entry {

	for _, e := range ifd {

		if e.Tag == tag {
			return e
		}
	}

	return nil
}

// Remove deletes the entry for a tag, if present.
func (ifd *IFD) Remove(tag uint16) {

	for i, e := range *ifd {

		if e.Tag == tag {
			*ifd = append((*ifd)[:i], (*ifd)[i+1:]...)
			return
		}
	}
}

func (ifd IFD) sorted() IFD {

	out := make(IFD, len(ifd))
	copy(out, ifd)

	sort.SliceStable(out, func(i int, j int) bool {
		return out[i].Tag < out[j].Tag
	})

	return out
}

// dataSize is the number of bytes the entry's value occupies outside the
// 12-byte entry record. Values of four bytes or fewer are stored inline.
func (e *Entry) dataSize() uint32 {

	sz := typeSizes[e.Type] * e.Count

	if sz <= 4 {
		return 0
	}

	if sz%2 != 0 {
		sz += 1
	}

	return sz
}

// blockSize is the serialized size of an IFD: entry count, entry records,
// next-IFD offset and the out-of-line data area.
func (ifd IFD) blockSize() uint32 {

	sz := uint32(2 + 12*len(ifd) + 4)

	for _, e := range ifd {
		sz += e.dataSize()
	}

	return sz
}

func parseIFD(buf []byte, offset uint32, bo binary.ByteOrder) (IFD, uint32, error) {

	if uint32(len(buf)) < offset+2 {
		return nil, 0, fmt.Errorf("IFD offset %d out of bounds", offset)
	}

	count := uint32(bo.Uint16(buf[offset : offset+2]))
	pos := offset + 2

	if uint32(len(buf)) < pos+count*12+4 {
		return nil, 0, fmt.Errorf("IFD at offset %d is truncated", offset)
	}

	ifd := make(IFD, 0, count)

	for i := uint32(0); i < count; i++ {

		rec := buf[pos : pos+12]
		pos += 12

		tag := bo.Uint16(rec[0:2])
		typ := bo.Uint16(rec[2:4])
		cnt := bo.Uint32(rec[4:8])

		unit, ok := typeSizes[typ]

		if !ok {
			// Unknown field type; skip rather than fail the whole container.
			continue
		}

		sz := unit * cnt

		var data []byte

		if sz <= 4 {
			data = make([]byte, sz)
			copy(data, rec[8:8+sz])
		} else {

			val_offset := bo.Uint32(rec[8:12])

			if uint32(len(buf)) < val_offset+sz {
				return nil, 0, fmt.Errorf("Value for tag 0x%04x out of bounds", tag)
			}

			data = make([]byte, sz)
			copy(data, buf[val_offset:val_offset+sz])
		}

		ifd = append(ifd, &Entry{
			Tag:   tag,
			Type:  typ,
			Count: cnt,
			Data:  data,
		})
	}

	next := bo.Uint32(buf[pos : pos+4])
	return ifd, next, nil
}

// writeIFD appends the serialized form of an IFD to buf. The IFD is assumed
// to start at offset within the TIFF stream; out-of-line values are placed
// immediately after the entry records.
func writeIFD(buf []byte, ifd IFD, offset uint32, next uint32, bo binary.ByteOrder) []byte {

	sorted := ifd.sorted()

	buf = appendUint16(buf, uint16(len(sorted)), bo)

	data_offset := offset + 2 + uint32(12*len(sorted)) + 4
	data := make([]byte, 0)

	for _, e := range sorted {

		buf = appendUint16(buf, e.Tag, bo)
		buf = appendUint16(buf, e.Type, bo)
		buf = appendUint32(buf, e.Count, bo)

		if e.dataSize() == 0 {

			inline := make([]byte, 4)
			copy(inline, e.Data)
			buf = append(buf, inline...)

		} else {

			buf = appendUint32(buf, data_offset, bo)

			padded := make([]byte, e.dataSize())
			copy(padded, e.Data)

			data = append(data, padded...)
			data_offset += e.dataSize()
		}
	}

	buf = appendUint32(buf, next, bo)
	buf = append(buf, data...)

	return buf
}

func appendUint16(buf []byte, v uint16, bo binary.ByteOrder) []byte {
	tmp := make([]byte, 2)
	bo.PutUint16(tmp, v)
	return append(buf, tmp...)
}

func appendUint32(buf []byte, v uint32, bo binary.ByteOrder) []byte {
	tmp := make([]byte, 4)
	bo.PutUint32(tmp, v)
	return append(buf, tmp...)
}
