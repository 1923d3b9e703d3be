package exif_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/sfomuseum/go-geotag-photos/exif"
)

func testJPEG(t *testing.T) []byte {

	im := image.NewRGBA(image.Rect(0, 0, 32, 24))

	for x := 0; x < 32; x++ {

		for y := 0; y < 24; y++ {
			im.Set(x, y, color.RGBA{uint8(x * 8), uint8(y * 10), 128, 255})
		}
	}

	var buf bytes.Buffer

	err := jpeg.Encode(&buf, im, nil)

	if err != nil {
		t.Fatalf("Failed to encode test JPEG, %v", err)
	}

	return buf.Bytes()
}

func TestWriteGPS(t *testing.T) {

	body := testJPEG(t)

	tagged, err := exif.WriteGPS(body, 40.7128, -74.0060)

	if err != nil {
		t.Fatalf("Failed to write GPS, %v", err)
	}

	// The read-back check uses an independent EXIF implementation.

	x, err := goexif.Decode(bytes.NewReader(tagged))

	if err != nil {
		t.Fatalf("Failed to decode written EXIF, %v", err)
	}

	lat, lon, err := x.LatLong()

	if err != nil {
		t.Fatalf("Failed to read coordinates back, %v", err)
	}

	if math.Abs(lat-40.7128) > 0.0001 {
		t.Fatalf("Unexpected latitude %f", lat)
	}

	if math.Abs(lon - -74.0060) > 0.0001 {
		t.Fatalf("Unexpected longitude %f", lon)
	}

	lat_ref, err := x.Get(goexif.GPSLatitudeRef)

	if err != nil {
		t.Fatalf("Missing latitude ref, %v", err)
	}

	if v, _ := lat_ref.StringVal(); v != "N" {
		t.Fatalf("Unexpected latitude ref %q", v)
	}

	lon_ref, err := x.Get(goexif.GPSLongitudeRef)

	if err != nil {
		t.Fatalf("Missing longitude ref, %v", err)
	}

	if v, _ := lon_ref.StringVal(); v != "W" {
		t.Fatalf("Unexpected longitude ref %q", v)
	}

	// The output must still be a decodable JPEG.

	_, err = jpeg.Decode(bytes.NewReader(tagged))

	if err != nil {
		t.Fatalf("Tagged body is not a decodable JPEG, %v", err)
	}
}

func TestWriteGPSIdempotent(t *testing.T) {

	body := testJPEG(t)

	first, err := exif.WriteGPS(body, -33.8688, 151.2093)

	if err != nil {
		t.Fatalf("Failed to write GPS, %v", err)
	}

	second, err := exif.WriteGPS(first, -33.8688, 151.2093)

	if err != nil {
		t.Fatalf("Failed to write GPS a second time, %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatalf("Writing the same coordinates twice was not byte-identical")
	}
}

func TestWriteGPSPreservesMetadata(t *testing.T) {

	body := testJPEG(t)

	// Seed the image with a container holding camera fields.

	c := exif.NewContainer()
	c.IFD0.Set(&exif.Entry{Tag: 0x010F, Type: exif.TypeASCII, Count: 5, Data: []byte("ACME\x00")})
	c.Exif.Set(&exif.Entry{Tag: 0x9003, Type: exif.TypeASCII, Count: 20, Data: []byte("2024:01:02 03:04:05\x00")})

	enc, err := c.MarshalBinary()

	if err != nil {
		t.Fatalf("Failed to marshal container, %v", err)
	}

	seeded, err := exif.Splice(body, enc)

	if err != nil {
		t.Fatalf("Failed to splice container, %v", err)
	}

	tagged, err := exif.WriteGPS(seeded, 51.5074, -0.1278)

	if err != nil {
		t.Fatalf("Failed to write GPS, %v", err)
	}

	x, err := goexif.Decode(bytes.NewReader(tagged))

	if err != nil {
		t.Fatalf("Failed to decode written EXIF, %v", err)
	}

	mk, err := x.Get(goexif.Make)

	if err != nil {
		t.Fatalf("Camera make was not preserved, %v", err)
	}

	if v, _ := mk.StringVal(); v != "ACME" {
		t.Fatalf("Unexpected camera make %q", v)
	}

	dt, err := x.Get(goexif.DateTimeOriginal)

	if err != nil {
		t.Fatalf("Capture time was not preserved, %v", err)
	}

	if v, _ := dt.StringVal(); v != "2024:01:02 03:04:05" {
		t.Fatalf("Unexpected capture time %q", v)
	}

	if _, _, err := x.LatLong(); err != nil {
		t.Fatalf("Failed to read coordinates back, %v", err)
	}
}

func TestWriteGPSMalformedStream(t *testing.T) {

	tests := []struct {
		name string
		body []byte
	}{
		{"empty", []byte{}},
		{"not a jpeg", []byte("this is not an image at all")},
		{"truncated jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}},
	}

	for _, tc := range tests {

		t.Run(tc.name, func(t *testing.T) {

			out, err := exif.WriteGPS(tc.body, 1.0, 2.0)

			if err == nil {
				t.Fatalf("Expected an error for a malformed stream")
			}

			if out != nil {
				t.Fatalf("Expected no output alongside the error")
			}
		})
	}
}

func TestParseContainerRoundTrip(t *testing.T) {

	c := exif.NewContainer()
	c.IFD0.Set(&exif.Entry{Tag: 0x010F, Type: exif.TypeASCII, Count: 5, Data: []byte("ACME\x00")})
	c.SetGPS(40.7128, -74.0060)

	enc, err := c.MarshalBinary()

	if err != nil {
		t.Fatalf("Failed to marshal container, %v", err)
	}

	parsed, err := exif.ParseContainer(enc)

	if err != nil {
		t.Fatalf("Failed to parse container, %v", err)
	}

	enc2, err := parsed.MarshalBinary()

	if err != nil {
		t.Fatalf("Failed to marshal parsed container, %v", err)
	}

	if !bytes.Equal(enc, enc2) {
		t.Fatalf("Container did not survive the round trip")
	}
}

func TestParseContainerMalformed(t *testing.T) {

	tests := []struct {
		name string
		body []byte
	}{
		{"empty", []byte{}},
		{"bad byte order", []byte("XXxxxxxxxxxx")},
		{"truncated header", []byte("II")},
	}

	for _, tc := range tests {

		t.Run(tc.name, func(t *testing.T) {

			_, err := exif.ParseContainer(tc.body)

			if err == nil {
				t.Fatalf("Expected an error for a malformed container")
			}
		})
	}
}
