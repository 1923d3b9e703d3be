package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var exifHeader = []byte("Exif\x00\x00")

const (
	markerSOI  = 0xD8
	markerAPP1 = 0xE1
	markerSOS  = 0xDA
)

// segment is one marker segment of a JPEG stream, up to the start of the
// entropy-coded data.
type segment struct {
	marker byte
	body   []byte
}

func (s *segment) isExif() bool {
	return s.marker == markerAPP1 && bytes.HasPrefix(s.body, exifHeader)
}

// scanSegments splits a JPEG byte stream in to its marker segments and the
// remainder of the stream starting at the SOS marker.
func scanSegments(body []byte) ([]*segment, []byte, error) {

	if len(body) < 2 || body[0] != 0xFF || body[1] != markerSOI {
		return nil, nil, fmt.Errorf("Not a JPEG stream")
	}

	segments := make([]*segment, 0)
	pos := 2

	for {

		if pos+4 > len(body) {
			return nil, nil, fmt.Errorf("Truncated JPEG stream at offset %d", pos)
		}

		if body[pos] != 0xFF {
			return nil, nil, fmt.Errorf("Invalid marker at offset %d", pos)
		}

		marker := body[pos+1]

		if marker == markerSOS {
			return segments, body[pos:], nil
		}

		length := int(binary.BigEndian.Uint16(body[pos+2 : pos+4]))

		if length < 2 || pos+2+length > len(body) {
			return nil, nil, fmt.Errorf("Invalid segment length at offset %d", pos)
		}

		segments = append(segments, &segment{
			marker: marker,
			body:   body[pos+4 : pos+2+length],
		})

		pos += 2 + length
	}
}

// ExtractTIFF returns the TIFF-structured payload of the Exif APP1 segment
// of a JPEG byte stream, or an error if the stream is not a JPEG or has no
// Exif segment.
func ExtractTIFF(body []byte) ([]byte, error) {

	segments, _, err := scanSegments(body)

	if err != nil {
		return nil, err
	}

	for _, s := range segments {

		if s.isExif() {
			return s.body[len(exifHeader):], nil
		}
	}

	return nil, fmt.Errorf("No Exif segment")
}

// Splice replaces the Exif APP1 segment of a JPEG byte stream with one
// containing tiff, inserting a new segment immediately after SOI if none
// exists. The input is never modified; the result is a new byte slice.
func Splice(body []byte, tiff []byte) ([]byte, error) {

	segments, rest, err := scanSegments(body)

	if err != nil {
		return nil, err
	}

	payload_len := len(exifHeader) + len(tiff)

	if payload_len+2 > 0xFFFF {
		return nil, fmt.Errorf("Metadata container too large for an APP1 segment (%d bytes)", payload_len)
	}

	out := make([]byte, 0, len(body)+payload_len+4)
	out = append(out, 0xFF, markerSOI)

	out = append(out, 0xFF, markerAPP1)
	out = appendUint16(out, uint16(payload_len+2), binary.BigEndian)
	out = append(out, exifHeader...)
	out = append(out, tiff...)

	for _, s := range segments {

		if s.isExif() {
			continue
		}

		out = append(out, 0xFF, s.marker)
		out = appendUint16(out, uint16(len(s.body)+2), binary.BigEndian)
		out = append(out, s.body...)
	}

	out = append(out, rest...)
	return out, nil
}
