// Package bundle collects the successfully processed photos of a batch in
// to a single compressed zip archive with normalized entry names, and
// writes the archive out as one downloadable unit.
package bundle

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sfomuseum/go-geotag-photos/photo"
	"gocloud.dev/blob"
)

// Extension is the canonical filename extension for archive entries.
const Extension = ".jpg"

// CompressionLevel is the fixed DEFLATE level for archive entries.
const CompressionLevel = 6

// NormalizeName strips any existing filename extension (text after the
// last '.', when present and not leading) and appends the canonical
// output extension.
func NormalizeName(name string) string {

	idx := strings.LastIndex(name, ".")

	if idx > 0 {
		name = name[:idx]
	}

	return name + Extension
}

// ArchiveName returns the default archive filename for a batch run on the
// given date, in the form geotag-photos-YYYY-MM-DD.zip.
func ArchiveName(t time.Time) string {
	return fmt.Sprintf("geotag-photos-%s.zip", t.Format("2006-01-02"))
}

// BundlePhotos builds a zip archive from the batch's result map. Photos
// are visited in their original batch order; photos absent from results
// are skipped without error. When two photos normalize to the same entry
// name the later one is deduplicated with a numeric suffix, so no photo
// silently overwrites another.
func BundlePhotos(ctx context.Context, photos []*photo.Photo, results map[string][]byte) ([]byte, error) {

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, CompressionLevel)
	})

	seen := make(map[string]int)

	for _, ph := range photos {

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			// pass
		}

		body, ok := results[ph.Id]

		if !ok {
			continue
		}

		name := NormalizeName(ph.Name)

		count := seen[name]
		seen[name] = count + 1

		if count > 0 {
			base := strings.TrimSuffix(name, Extension)
			name = fmt.Sprintf("%s-%d%s", base, count+1, Extension)
		}

		hdr := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		}

		w, err := zw.CreateHeader(hdr)

		if err != nil {
			return nil, fmt.Errorf("Failed to create archive entry '%s', %w", name, err)
		}

		_, err = w.Write(body)

		if err != nil {
			return nil, fmt.Errorf("Failed to write archive entry '%s', %w", name, err)
		}
	}

	err := zw.Close()

	if err != nil {
		return nil, fmt.Errorf("Failed to finalize archive, %w", err)
	}

	return buf.Bytes(), nil
}

// WriteArchiveOptions configures WriteArchive.
type WriteArchiveOptions struct {
	// ACL, when non-empty, is applied to S3 targets at write time.
	ACL string
}

// WriteArchive stores an archive body in a bucket under the given path.
func WriteArchive(ctx context.Context, bucket *blob.Bucket, path string, body []byte, opts *WriteArchiveOptions) error {

	if opts == nil {
		opts = &WriteArchiveOptions{}
	}

	var wr_opts *blob.WriterOptions

	if opts.ACL != "" {

		before := func(asFunc func(interface{}) bool) error {

			s3_req := &s3manager.UploadInput{}
			ok := asFunc(&s3_req)

			if ok {
				s3_req.ACL = aws.String(opts.ACL)
			}

			return nil
		}

		wr_opts = &blob.WriterOptions{
			BeforeWrite: before,
		}
	}

	wr, err := bucket.NewWriter(ctx, path, wr_opts)

	if err != nil {
		return fmt.Errorf("Failed to create writer for '%s', %w", path, err)
	}

	_, err = wr.Write(body)

	if err != nil {
		wr.Close()
		bucket.Delete(ctx, path)
		return fmt.Errorf("Failed to write '%s', %w", path, err)
	}

	err = wr.Close()

	if err != nil {
		return fmt.Errorf("Failed to close '%s', %w", path, err)
	}

	return nil
}
