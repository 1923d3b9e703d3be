// Package convert normalizes proprietary camera image formats (the
// HEIC/HEIF family) in to JPEG so the rest of the pipeline only ever deals
// with one raster format. Anything not recognized as proprietary is passed
// through untouched.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/jdeng/goheif"
	"github.com/sfomuseum/go-geotag-photos/photo"
)

// JPEGQuality is the fixed encoder quality for normalized output.
const JPEGQuality = 92

// ConversionError is returned when a proprietary-format file can not be
// decoded or re-encoded. It is fatal to the single photo it names.
type ConversionError struct {
	Name string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("Failed to convert %s, %v", e.Name, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// ConvertPhoto returns the body of p as a JPEG-decodable byte stream. A
// photo in the HEIC family is decoded and re-encoded; any other photo's
// body is returned as-is.
func ConvertPhoto(ctx context.Context, p *photo.Photo) ([]byte, error) {

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// pass
	}

	if p.Format != photo.FormatHEIC {
		return p.Body, nil
	}

	im, err := goheif.Decode(bytes.NewReader(p.Body))

	if err != nil {

		return nil, &ConversionError{
			Name: p.Name,
			Err:  fmt.Errorf("Failed to decode HEIC body, %w", err),
		}
	}

	var buf bytes.Buffer

	opts := &jpeg.Options{
		Quality: JPEGQuality,
	}

	err = jpeg.Encode(&buf, im, opts)

	if err != nil {

		return nil, &ConversionError{
			Name: p.Name,
			Err:  fmt.Errorf("Failed to encode JPEG body, %w", err),
		}
	}

	return buf.Bytes(), nil
}
