// Package compress re-encodes raster images in to bounded-size, bounded
// dimension JPEG output. The work itself runs on a background worker pool
// (see Pool) so interactive callers are never blocked on a codec.
package compress

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const (
	// MaxDimension is the ceiling for the longer image dimension, in pixels.
	MaxDimension = 1200
	// MaxBytes is the best-effort ceiling for the encoded output size.
	MaxBytes = 1.5 * 1024 * 1024
	// JPEGQuality is the initial encoder quality for compressed output.
	JPEGQuality = 85
	// minQuality is the floor below which the size ceiling is abandoned.
	minQuality = 45
)

// CompressionError is returned when an image body can not be decoded,
// resized or re-encoded. It is fatal to the single photo it names; no
// partial output is returned alongside it.
type CompressionError struct {
	Name string
	Err  error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("Failed to compress %s, %v", e.Name, e.Err)
}

func (e *CompressionError) Unwrap() error {
	return e.Err
}

// CompressImage decodes body, scales it down so that neither dimension
// exceeds MaxDimension (never scaling up, preserving aspect ratio) and
// re-encodes it as JPEG regardless of input format. If the encoded output
// exceeds MaxBytes the encoder quality is stepped down until the output
// fits or the quality floor is reached, whichever comes first.
func CompressImage(ctx context.Context, name string, body []byte) ([]byte, error) {

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// pass
	}

	im, err := imaging.Decode(bytes.NewReader(body))

	if err != nil {

		return nil, &CompressionError{
			Name: name,
			Err:  fmt.Errorf("Failed to decode image, %w", err),
		}
	}

	bounds := im.Bounds()

	if bounds.Dx() > MaxDimension || bounds.Dy() > MaxDimension {
		im = imaging.Fit(im, MaxDimension, MaxDimension, imaging.Lanczos)
	}

	for quality := JPEGQuality; ; quality -= 10 {

		var buf bytes.Buffer

		opts := &jpeg.Options{
			Quality: quality,
		}

		err := jpeg.Encode(&buf, im, opts)

		if err != nil {

			return nil, &CompressionError{
				Name: name,
				Err:  fmt.Errorf("Failed to encode JPEG, %w", err),
			}
		}

		if buf.Len() <= MaxBytes || quality-10 < minQuality {
			return buf.Bytes(), nil
		}
	}
}
