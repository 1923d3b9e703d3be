package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sfomuseum/go-geotag-photos/common"
	"github.com/sfomuseum/go-geotag-photos/operations/bundle"
	"github.com/sfomuseum/go-geotag-photos/operations/gather"
	"github.com/sfomuseum/go-geotag-photos/operations/process"
	"github.com/tidwall/gjson"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

func main() {

	source_uri := flag.String("source", "", "A valid gocloud.dev/blob URI to gather photos from.")
	target_uri := flag.String("target", "", "A valid gocloud.dev/blob URI to write the archive to.")
	manifest_path := flag.String("manifest", "", "The path to a JSON document mapping photo names to coordinates.")
	archive_name := flag.String("archive-name", "", "An optional name for the archive. Defaults to geotag-photos-YYYY-MM-DD.zip.")
	report_uri := flag.String("report-writer-uri", "", "An optional whosonfirst/go-writer URI to publish the batch report to.")
	acl := flag.String("acl", "", "An optional ACL to apply when the target is an S3 bucket, for example 'public-read'.")

	flag.Parse()

	ctx := context.Background()
	logger := slog.Default()

	source, err := blob.OpenBucket(ctx, *source_uri)

	if err != nil {
		log.Fatalf("Failed to open source bucket, %v", err)
	}

	defer source.Close()

	target, err := blob.OpenBucket(ctx, *target_uri)

	if err != nil {
		log.Fatalf("Failed to open target bucket, %v", err)
	}

	defer target.Close()

	photos, err := gather.GatherPhotos(ctx, source)

	if err != nil {
		log.Fatalf("Failed to gather photos, %v", err)
	}

	logger.Info("Gathered photos", "count", len(photos))

	manifest, err := os.ReadFile(*manifest_path)

	if err != nil {
		log.Fatalf("Failed to read manifest, %v", err)
	}

	for _, ph := range photos {

		coords := gjson.GetBytes(manifest, gjson.Escape(ph.Name))

		if !coords.Exists() {
			continue
		}

		lat := coords.Get("lat").Float()
		lon := coords.Get("lng").Float()

		err := ph.AssignCoordinates(lat, lon)

		if err != nil {
			logger.Warn("Rejected coordinates", "name", ph.Name, "error", err)
		}
	}

	pr := process.NewProcessor(&process.ProcessorOptions{
		Logger: logger,
	})

	defer pr.Close()

	progress := func(current int, total int) {
		logger.Info("Processing photo", "current", current, "total", total)
	}

	results, outcomes, err := pr.ProcessPhotos(ctx, photos, progress)

	if err != nil {
		log.Fatalf("Failed to process photos, %v", err)
	}

	archive, err := bundle.BundlePhotos(ctx, photos, results)

	if err != nil {
		log.Fatalf("Failed to bundle photos, %v", err)
	}

	name := *archive_name

	if name == "" {
		name = bundle.ArchiveName(time.Now())
	}

	wr_opts := &bundle.WriteArchiveOptions{
		ACL: *acl,
	}

	err = bundle.WriteArchive(ctx, target, name, archive, wr_opts)

	if err != nil {
		log.Fatalf("Failed to write archive, %v", err)
	}

	logger.Info("Wrote archive", "name", name, "entries", len(results))

	if *report_uri != "" {

		wr, err := common.NewWriter(ctx, *report_uri)

		if err != nil {
			log.Fatalf("Failed to create report writer, %v", err)
		}

		batch_id := uuid.New().String()
		report := process.NewBatchReport(batch_id, outcomes)

		err = process.PublishReport(ctx, wr, report)

		if err != nil {
			log.Fatalf("Failed to publish report, %v", err)
		}

		logger.Info("Published report", "batch", batch_id)
	}
}
