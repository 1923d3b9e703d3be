package exif

import (
	"math"
)

// GPS IFD tags.
const (
	TagGPSVersionID    uint16 = 0x0000
	TagGPSLatitudeRef  uint16 = 0x0001
	TagGPSLatitude     uint16 = 0x0002
	TagGPSLongitudeRef uint16 = 0x0003
	TagGPSLongitude    uint16 = 0x0004
)

// DegreesToDMS converts signed decimal degrees to the degrees, minutes,
// seconds rational triple used by the GPS IFD. The magnitude is always
// non-negative; the sign travels separately in the reference field.
// Degrees and minutes are whole numbers over one. Seconds are rounded
// half-up to two decimal places and carried as hundredths, so 46.08
// seconds becomes 4608/100.
func DegreesToDMS(decimal float64) [3]Rational {

	abs := math.Abs(decimal)

	degrees := math.Floor(abs)
	minutes_float := (abs - degrees) * 60.0
	minutes := math.Floor(minutes_float)
	seconds := math.Round((minutes_float - minutes) * 60.0 * 100.0)

	return [3]Rational{
		{Num: uint32(degrees), Den: 1},
		{Num: uint32(minutes), Den: 1},
		{Num: uint32(seconds), Den: 100},
	}
}

// DMSToDegrees reconstructs signed decimal degrees from a rational triple
// and its reference ("N", "S", "E" or "W").
func DMSToDegrees(dms [3]Rational, ref string) float64 {

	degrees := float64(dms[0].Num) / float64(dms[0].Den)
	minutes := float64(dms[1].Num) / float64(dms[1].Den)
	seconds := float64(dms[2].Num) / float64(dms[2].Den)

	decimal := degrees + minutes/60.0 + seconds/3600.0

	switch ref {
	case "S", "W":
		return -decimal
	default:
		return decimal
	}
}

// SetGPS replaces the GPS IFD wholesale with the fields describing the
// given coordinates. Every other IFD is left untouched.
func (c *Container) SetGPS(lat float64, lon float64) {

	lat_ref := "N"

	if lat < 0 {
		lat_ref = "S"
	}

	lon_ref := "E"

	if lon < 0 {
		lon_ref = "W"
	}

	gps := make(IFD, 0, 5)

	lat_dms := DegreesToDMS(lat)
	lon_dms := DegreesToDMS(lon)

	gps.Set(c.byteEntry(TagGPSVersionID, []byte{2, 3, 0, 0}))
	gps.Set(c.asciiEntry(TagGPSLatitudeRef, lat_ref))
	gps.Set(c.rationalEntry(TagGPSLatitude, lat_dms[:]))
	gps.Set(c.asciiEntry(TagGPSLongitudeRef, lon_ref))
	gps.Set(c.rationalEntry(TagGPSLongitude, lon_dms[:]))

	c.GPS = gps
}

// WriteGPS returns a copy of a JPEG byte stream whose GPS metadata fields
// describe the given coordinates. An existing metadata container is
// preserved apart from its GPS segment; if the stream has no container, or
// the container is malformed, a fresh one is written with all other
// segments empty. The output is all-or-nothing: on error no output is
// returned, and the input is never modified in place.
func WriteGPS(body []byte, lat float64, lon float64) ([]byte, error) {

	var c *Container

	tiff, err := ExtractTIFF(body)

	if err == nil {

		parsed, parse_err := ParseContainer(tiff)

		if parse_err == nil {
			c = parsed
		}
	}

	if c == nil {
		c = NewContainer()
	}

	c.SetGPS(lat, lon)

	enc, err := c.MarshalBinary()

	if err != nil {
		return nil, err
	}

	return Splice(body, enc)
}
