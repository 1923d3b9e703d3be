// Package process sequences the photo pipeline (convert, compress,
// geotag) across a batch, isolating per-photo failures and reporting
// aggregate progress.
package process

import (
	"context"
	"log/slog"

	"github.com/sfomuseum/go-geotag-photos/exif"
	"github.com/sfomuseum/go-geotag-photos/operations/compress"
	"github.com/sfomuseum/go-geotag-photos/operations/convert"
	"github.com/sfomuseum/go-geotag-photos/photo"
)

// ProgressCallbackFunc is invoked with a 1-based index and the total count
// of photos entering the pipeline, before each photo is processed.
type ProgressCallbackFunc func(current int, total int)

// ItemOutcome records how a single photo fared. One outcome is produced
// for every photo that entered the pipeline, including failures, so
// callers can tell a failed photo apart from one that was never submitted.
type ItemOutcome struct {
	Id     string       `json:"id"`
	Name   string       `json:"name"`
	Status photo.Status `json:"status"`
	Err    error        `json:"error,omitempty"`
}

// ConvertFunc normalizes a photo's body for decoding.
type ConvertFunc func(context.Context, *photo.Photo) ([]byte, error)

// CompressFunc re-encodes an image body within the pipeline's size and
// dimension ceilings.
type CompressFunc func(context.Context, string, []byte) ([]byte, error)

// WriteGPSFunc embeds coordinates in an image body's metadata container.
type WriteGPSFunc func(context.Context, string, []byte, *photo.Coordinates) ([]byte, error)

// ProcessorOptions configures a Processor. Any nil stage is replaced with
// the default implementation for that stage.
type ProcessorOptions struct {
	Logger       *slog.Logger
	ConvertFunc  ConvertFunc
	CompressFunc CompressFunc
	WriteGPSFunc WriteGPSFunc
}

// Processor runs the photo pipeline over batches. Photos are processed
// strictly one at a time; the compression stage is handed off to a
// single-worker background pool so a batch never saturates the codec.
type Processor struct {
	logger      *slog.Logger
	pool        *compress.Pool
	convert_f   ConvertFunc
	compress_f  CompressFunc
	write_gps_f WriteGPSFunc
}

// NewProcessor returns a Processor with a running compression pool.
func NewProcessor(opts *ProcessorOptions) *Processor {

	if opts == nil {
		opts = &ProcessorOptions{}
	}

	logger := opts.Logger

	if logger == nil {
		logger = slog.Default()
	}

	p := &Processor{
		logger:      logger,
		convert_f:   opts.ConvertFunc,
		compress_f:  opts.CompressFunc,
		write_gps_f: opts.WriteGPSFunc,
	}

	if p.convert_f == nil {
		p.convert_f = convert.ConvertPhoto
	}

	if p.compress_f == nil {

		p.pool = compress.NewPool(1)

		p.compress_f = func(ctx context.Context, name string, body []byte) ([]byte, error) {
			return p.pool.Submit(ctx, name, body).Wait(ctx)
		}
	}

	if p.write_gps_f == nil {

		p.write_gps_f = func(ctx context.Context, name string, body []byte, c *photo.Coordinates) ([]byte, error) {

			tagged, err := exif.WriteGPS(body, c.Latitude, c.Longitude)

			if err != nil {

				return nil, &exif.MetadataWriteError{
					Name: name,
					Err:  err,
				}
			}

			return tagged, nil
		}
	}

	return p
}

// Close stops the processor's compression pool, if it owns one.
func (p *Processor) Close() {

	if p.pool != nil {
		p.pool.Close()
	}
}

// ProcessPhotos filters photos to those with assigned coordinates and runs
// each through the pipeline in original relative order. A failure at any
// stage is logged and excludes that photo from the result map; the batch
// always runs every filtered photo to completion. The second return value
// carries one ItemOutcome per filtered photo, successes and failures both.
func (p *Processor) ProcessPhotos(ctx context.Context, photos []*photo.Photo, progress ProgressCallbackFunc) (map[string][]byte, []*ItemOutcome, error) {

	filtered := make([]*photo.Photo, 0, len(photos))

	for _, ph := range photos {

		if ph.Coordinates != nil {
			filtered = append(filtered, ph)
		}
	}

	results := make(map[string][]byte)
	outcomes := make([]*ItemOutcome, 0, len(filtered))

	total := len(filtered)

	for i, ph := range filtered {

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
			// pass
		}

		if progress != nil {
			progress(i+1, total)
		}

		ph.Status = photo.StatusProcessing

		body, err := p.processPhoto(ctx, ph)

		outcome := &ItemOutcome{
			Id:   ph.Id,
			Name: ph.Name,
		}

		if err != nil {

			p.logger.Error("Failed to process photo", "id", ph.Id, "name", ph.Name, "error", err)

			ph.Status = photo.StatusError
			outcome.Status = photo.StatusError
			outcome.Err = err

		} else {

			ph.Status = photo.StatusComplete
			outcome.Status = photo.StatusComplete

			results[ph.Id] = body
		}

		outcomes = append(outcomes, outcome)
	}

	return results, outcomes, nil
}

func (p *Processor) processPhoto(ctx context.Context, ph *photo.Photo) ([]byte, error) {

	body, err := p.convert_f(ctx, ph)

	if err != nil {
		return nil, err
	}

	body, err = p.compress_f(ctx, ph.Name, body)

	if err != nil {
		return nil, err
	}

	if ph.Coordinates == nil {
		return body, nil
	}

	return p.write_gps_f(ctx, ph.Name, body, ph.Coordinates)
}
