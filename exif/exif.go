// Package exif implements a binary codec for the EXIF metadata container
// embedded in JPEG files, sufficient for parsing an existing container,
// replacing its GPS IFD and splicing the result back in to the image byte
// stream with every other field preserved.
package exif

import (
	"encoding/binary"
	"fmt"
)

// MetadataWriteError is returned when the GPS fields for a photo can not
// be written, either because the image byte stream is malformed or because
// the updated container can not be serialized.
type MetadataWriteError struct {
	Name string
	Err  error
}

func (e *MetadataWriteError) Error() string {
	return fmt.Sprintf("Failed to write GPS metadata for %s, %v", e.Name, e.Err)
}

func (e *MetadataWriteError) Unwrap() error {
	return e.Err
}

// Container is an EXIF metadata container: the five standard IFDs plus an
// optional JPEG-encoded thumbnail. Pointer entries linking the IFDs are
// not stored; they are reconstructed on serialization.
type Container struct {
	ByteOrder binary.ByteOrder
	IFD0      IFD
	Exif      IFD
	GPS       IFD
	Interop   IFD
	IFD1      IFD
	Thumbnail []byte
}

// NewContainer returns an empty little-endian container with all standard
// segments present but empty.
func NewContainer() *Container {

	return &Container{
		ByteOrder: binary.LittleEndian,
		IFD0:      make(IFD, 0),
		Exif:      make(IFD, 0),
		GPS:       make(IFD, 0),
		Interop:   make(IFD, 0),
		IFD1:      make(IFD, 0),
	}
}

// ParseContainer parses the TIFF-structured payload of an APP1 segment.
func ParseContainer(buf []byte) (*Container, error) {

	if len(buf) < 8 {
		return nil, fmt.Errorf("TIFF header is truncated")
	}

	var bo binary.ByteOrder

	switch string(buf[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("Unknown byte order marker %q", buf[0:2])
	}

	if bo.Uint16(buf[2:4]) != 42 {
		return nil, fmt.Errorf("Missing TIFF magic number")
	}

	c := NewContainer()
	c.ByteOrder = bo

	ifd0_offset := bo.Uint32(buf[4:8])

	ifd0, next, err := parseIFD(buf, ifd0_offset, bo)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse IFD0, %w", err)
	}

	exif_offset := takePointer(&ifd0, TagExifIFDPointer, bo)
	gps_offset := takePointer(&ifd0, TagGPSIFDPointer, bo)

	c.IFD0 = ifd0

	if exif_offset != 0 {

		exif_ifd, _, err := parseIFD(buf, exif_offset, bo)

		if err != nil {
			return nil, fmt.Errorf("Failed to parse Exif IFD, %w", err)
		}

		interop_offset := takePointer(&exif_ifd, TagInteropIFDPointer, bo)

		c.Exif = exif_ifd

		if interop_offset != 0 {

			interop_ifd, _, err := parseIFD(buf, interop_offset, bo)

			if err != nil {
				return nil, fmt.Errorf("Failed to parse Interop IFD, %w", err)
			}

			c.Interop = interop_ifd
		}
	}

	if gps_offset != 0 {

		gps_ifd, _, err := parseIFD(buf, gps_offset, bo)

		if err != nil {
			return nil, fmt.Errorf("Failed to parse GPS IFD, %w", err)
		}

		c.GPS = gps_ifd
	}

	if next != 0 {

		ifd1, _, err := parseIFD(buf, next, bo)

		if err != nil {
			return nil, fmt.Errorf("Failed to parse IFD1, %w", err)
		}

		thumb_offset := entryUint32(ifd1.Get(TagThumbnailOffset), bo)
		thumb_length := entryUint32(ifd1.Get(TagThumbnailLength), bo)

		ifd1.Remove(TagThumbnailOffset)
		ifd1.Remove(TagThumbnailLength)

		c.IFD1 = ifd1

		if thumb_offset != 0 && thumb_length != 0 {

			end := thumb_offset + thumb_length

			if uint32(len(buf)) < end {
				return nil, fmt.Errorf("Thumbnail out of bounds")
			}

			thumb := make([]byte, thumb_length)
			copy(thumb, buf[thumb_offset:end])

			c.Thumbnail = thumb
		}
	}

	return c, nil
}

// MarshalBinary serializes the container back in to its TIFF binary form.
// IFDs are written in the order IFD0, Exif, Interop, GPS, IFD1, thumbnail,
// with pointer entries recomputed and empty IFDs omitted.
func (c *Container) MarshalBinary() ([]byte, error) {

	bo := c.ByteOrder

	has_interop := len(c.Interop) > 0
	has_exif := len(c.Exif) > 0 || has_interop
	has_gps := len(c.GPS) > 0
	has_thumb := len(c.Thumbnail) > 0
	has_ifd1 := len(c.IFD1) > 0 || has_thumb

	ifd0 := make(IFD, 0, len(c.IFD0)+2)
	ifd0 = append(ifd0, c.IFD0...)
	ifd0.Remove(TagExifIFDPointer)
	ifd0.Remove(TagGPSIFDPointer)

	exif_ifd := make(IFD, 0, len(c.Exif)+1)
	exif_ifd = append(exif_ifd, c.Exif...)
	exif_ifd.Remove(TagInteropIFDPointer)

	ifd1 := make(IFD, 0, len(c.IFD1)+2)
	ifd1 = append(ifd1, c.IFD1...)
	ifd1.Remove(TagThumbnailOffset)
	ifd1.Remove(TagThumbnailLength)

	// Reserve space for the pointer entries before computing offsets.

	if has_exif {
		ifd0.Set(c.longEntry(TagExifIFDPointer, 0))
	}

	if has_gps {
		ifd0.Set(c.longEntry(TagGPSIFDPointer, 0))
	}

	if has_interop {
		exif_ifd.Set(c.longEntry(TagInteropIFDPointer, 0))
	}

	if has_thumb {
		ifd1.Set(c.longEntry(TagThumbnailOffset, 0))
		ifd1.Set(c.longEntry(TagThumbnailLength, 0))
	}

	offset := uint32(8)

	ifd0_offset := offset
	offset += ifd0.blockSize()

	exif_offset := uint32(0)

	if has_exif {
		exif_offset = offset
		offset += exif_ifd.blockSize()
	}

	interop_offset := uint32(0)

	if has_interop {
		interop_offset = offset
		offset += c.Interop.blockSize()
	}

	gps_offset := uint32(0)

	if has_gps {
		gps_offset = offset
		offset += c.GPS.blockSize()
	}

	ifd1_offset := uint32(0)

	if has_ifd1 {
		ifd1_offset = offset
		offset += ifd1.blockSize()
	}

	thumb_offset := offset

	if has_exif {
		ifd0.Set(c.longEntry(TagExifIFDPointer, exif_offset))
	}

	if has_gps {
		ifd0.Set(c.longEntry(TagGPSIFDPointer, gps_offset))
	}

	if has_interop {
		exif_ifd.Set(c.longEntry(TagInteropIFDPointer, interop_offset))
	}

	if has_thumb {
		ifd1.Set(c.longEntry(TagThumbnailOffset, thumb_offset))
		ifd1.Set(c.longEntry(TagThumbnailLength, uint32(len(c.Thumbnail))))
	}

	buf := make([]byte, 0, offset+uint32(len(c.Thumbnail)))

	switch bo {
	case binary.BigEndian:
		buf = append(buf, 'M', 'M')
	default:
		buf = append(buf, 'I', 'I')
	}

	buf = appendUint16(buf, 42, bo)
	buf = appendUint32(buf, ifd0_offset, bo)

	buf = writeIFD(buf, ifd0, ifd0_offset, ifd1_offset, bo)

	if has_exif {
		buf = writeIFD(buf, exif_ifd, exif_offset, 0, bo)
	}

	if has_interop {
		buf = writeIFD(buf, c.Interop, interop_offset, 0, bo)
	}

	if has_gps {
		buf = writeIFD(buf, c.GPS, gps_offset, 0, bo)
	}

	if has_ifd1 {
		buf = writeIFD(buf, ifd1, ifd1_offset, 0, bo)
	}

	if has_thumb {
		buf = append(buf, c.Thumbnail...)
	}

	return buf, nil
}

func (c *Container) longEntry(tag uint16, v uint32) *Entry {

	data := make([]byte, 4)
	c.ByteOrder.PutUint32(data, v)

	return &Entry{
		Tag:   tag,
		Type:  TypeLong,
		Count: 1,
		Data:  data,
	}
}

func (c *Container) asciiEntry(tag uint16, s string) *Entry {

	data := append([]byte(s), 0)

	return &Entry{
		Tag:   tag,
		Type:  TypeASCII,
		Count: uint32(len(data)),
		Data:  data,
	}
}

func (c *Container) rationalEntry(tag uint16, values []Rational) *Entry {

	data := make([]byte, 0, 8*len(values))

	for _, r := range values {
		data = appendUint32(data, r.Num, c.ByteOrder)
		data = appendUint32(data, r.Den, c.ByteOrder)
	}

	return &Entry{
		Tag:   tag,
		Type:  TypeRational,
		Count: uint32(len(values)),
		Data:  data,
	}
}

func (c *Container) byteEntry(tag uint16, data []byte) *Entry {

	return &Entry{
		Tag:   tag,
		Type:  TypeByte,
		Count: uint32(len(data)),
		Data:  data,
	}
}

func takePointer(ifd *IFD, tag uint16, bo binary.ByteOrder) uint32 {

	e := ifd.Get(tag)

	if e == nil {
		return 0
	}

	offset := entryUint32(e, bo)
	ifd.Remove(tag)

	return offset
}

func entryUint32(e *Entry, bo binary.ByteOrder) uint32 {

	if e == nil {
		return 0
	}

	switch e.Type {
	case TypeShort:

		if len(e.Data) < 2 {
			return 0
		}

		return uint32(bo.Uint16(e.Data[0:2]))

	case TypeLong:

		if len(e.Data) < 4 {
			return 0
		}

		return bo.Uint32(e.Data[0:4])

	default:
		return 0
	}
}
