package process

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/tidwall/sjson"
	"github.com/whosonfirst/go-ioutil"
	"github.com/whosonfirst/go-writer/v3"
)

// BatchReport summarizes one pipeline run: which photos were submitted,
// which completed and which failed (and why). It exists so that failures
// are visible somewhere other than a photo's absence from the archive.
type BatchReport struct {
	// Id is the batch identifier.
	Id string
	// Created is when the report was assembled.
	Created time.Time
	// Outcomes are the per-photo results for every photo that entered the pipeline.
	Outcomes []*ItemOutcome
}

// NewBatchReport returns a BatchReport for a completed run.
func NewBatchReport(batch_id string, outcomes []*ItemOutcome) *BatchReport {

	return &BatchReport{
		Id:       batch_id,
		Created:  time.Now(),
		Outcomes: outcomes,
	}
}

// MarshalJSON serializes the report.
func (r *BatchReport) MarshalJSON() ([]byte, error) {

	body := []byte("{}")

	var err error

	body, err = sjson.SetBytes(body, "id", r.Id)

	if err != nil {
		return nil, fmt.Errorf("Failed to assign report id, %w", err)
	}

	body, err = sjson.SetBytes(body, "created", r.Created.Format(time.RFC3339))

	if err != nil {
		return nil, fmt.Errorf("Failed to assign report timestamp, %w", err)
	}

	ok := 0
	failed := 0

	for i, o := range r.Outcomes {

		root := fmt.Sprintf("items.%d", i)

		body, err = sjson.SetBytes(body, fmt.Sprintf("%s.id", root), o.Id)

		if err != nil {
			return nil, fmt.Errorf("Failed to assign outcome for %s, %w", o.Id, err)
		}

		body, _ = sjson.SetBytes(body, fmt.Sprintf("%s.name", root), o.Name)
		body, _ = sjson.SetBytes(body, fmt.Sprintf("%s.status", root), string(o.Status))

		if o.Err != nil {
			failed += 1
			body, _ = sjson.SetBytes(body, fmt.Sprintf("%s.error", root), o.Err.Error())
		} else {
			ok += 1
		}
	}

	body, _ = sjson.SetBytes(body, "counts.total", len(r.Outcomes))
	body, _ = sjson.SetBytes(body, "counts.complete", ok)
	body, _ = sjson.SetBytes(body, "counts.failed", failed)

	return body, nil
}

// PublishReport writes the serialized report to wr under a name derived
// from the batch id.
func PublishReport(ctx context.Context, wr writer.Writer, r *BatchReport) error {

	body, err := r.MarshalJSON()

	if err != nil {
		return fmt.Errorf("Failed to marshal report, %w", err)
	}

	br := bytes.NewReader(body)
	fh, err := ioutil.NewReadSeekCloser(br)

	if err != nil {
		return fmt.Errorf("Failed to create reader for report, %w", err)
	}

	uri := fmt.Sprintf("%s.json", r.Id)

	_, err = wr.Write(ctx, uri, fh)

	if err != nil {
		return fmt.Errorf("Failed to write report '%s', %w", uri, err)
	}

	return nil
}
