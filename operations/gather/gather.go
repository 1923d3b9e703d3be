// Package gather assembles a batch of photos from a bucket: it crawls the
// bucket for image files, classifies each file's format once, fingerprints
// bodies and flags likely duplicates.
package gather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/sfomuseum/go-geotag-photos/common"
	"github.com/sfomuseum/go-geotag-photos/photo"
	"gocloud.dev/blob"
)

// GatherPhotosOptions configures a gathering run.
type GatherPhotosOptions struct {
	// HashPhotos controls whether perceptual hashes are computed for
	// duplicate detection. Bodies that can not be decoded natively (the
	// HEIC family before conversion) are skipped for hashing.
	HashPhotos bool
	Logger     *slog.Logger
}

// GatherPhotos crawls bucket and returns a batch of pending photos, one
// per image file found, with duplicate detection enabled.
func GatherPhotos(ctx context.Context, bucket *blob.Bucket) ([]*photo.Photo, error) {

	opts := &GatherPhotosOptions{
		HashPhotos: true,
	}

	return GatherPhotosWithOptions(ctx, bucket, opts)
}

// GatherPhotosWithOptions crawls bucket and returns a batch of pending
// photos in bucket listing order.
func GatherPhotosWithOptions(ctx context.Context, bucket *blob.Bucket, opts *GatherPhotosOptions) ([]*photo.Photo, error) {

	logger := opts.Logger

	if logger == nil {
		logger = slog.Default()
	}

	photos := make([]*photo.Photo, 0)
	seen := make(map[string]string)

	var list func(context.Context, *blob.Bucket, string) error

	list = func(ctx context.Context, b *blob.Bucket, prefix string) error {

		iter := b.List(&blob.ListOptions{
			Delimiter: "/",
			Prefix:    prefix,
		})

		for {

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				// pass
			}

			obj, err := iter.Next(ctx)

			if err == io.EOF {
				break
			}

			if err != nil {
				return err
			}

			if obj.IsDir {

				err := list(ctx, b, obj.Key)

				if err != nil {
					return err
				}

				continue
			}

			ph, err := gatherPhoto(ctx, bucket, obj.Key, opts)

			if err != nil {
				return err
			}

			if ph == nil {
				continue
			}

			if other, ok := seen[ph.Fingerprint]; ok {
				logger.Warn("Possible duplicate photo", "name", ph.Name, "duplicate_of", other)
			} else {
				seen[ph.Fingerprint] = ph.Name
			}

			if opts.HashPhotos && ph.Format != photo.FormatHEIC {

				hashes, err := common.ImageHashes(ctx, ph.Body)

				if err != nil {
					logger.Warn("Failed to hash photo", "name", ph.Name, "error", err)
				} else {

					for _, h := range hashes {

						key := fmt.Sprintf("%s:%s", h.Approach, h.Hash)

						if other, ok := seen[key]; ok {
							logger.Warn("Possible duplicate photo", "name", ph.Name, "duplicate_of", other, "approach", h.Approach)
						} else {
							seen[key] = ph.Name
						}
					}
				}
			}

			photos = append(photos, ph)
		}

		return nil
	}

	err := list(ctx, bucket, "")

	if err != nil {
		return nil, fmt.Errorf("Failed to crawl bucket, %w", err)
	}

	return photos, nil
}

func gatherPhoto(ctx context.Context, bucket *blob.Bucket, path string, opts *GatherPhotosOptions) (*photo.Photo, error) {

	t := photo.MimeTypeFromName(path)
	format := photo.DetectFormat(path, t)

	// Not every platform's MIME table knows the HEIC family, but the
	// suffix check does.
	if t == "" && format == photo.FormatHEIC {
		t = "image/heic"
	}

	if t == "" || !strings.HasPrefix(t, "image/") {
		return nil, nil
	}

	r, err := bucket.NewReader(ctx, path, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to create reader for '%s', %w", path, err)
	}

	defer r.Close()

	body, err := io.ReadAll(r)

	if err != nil {
		return nil, fmt.Errorf("Failed to read '%s', %w", path, err)
	}

	ph := &photo.Photo{
		Id:          uuid.New().String(),
		Name:        path,
		MimeType:    t,
		Format:      format,
		Body:        body,
		Status:      photo.StatusPending,
		Fingerprint: common.Fingerprint(body),
	}

	return ph, nil
}
