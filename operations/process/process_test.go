package process_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/sfomuseum/go-geotag-photos/operations/compress"
	"github.com/sfomuseum/go-geotag-photos/operations/process"
	"github.com/sfomuseum/go-geotag-photos/photo"
)

func testJPEG(t *testing.T) []byte {

	im := image.NewRGBA(image.Rect(0, 0, 16, 16))

	for x := 0; x < 16; x++ {

		for y := 0; y < 16; y++ {
			im.Set(x, y, color.RGBA{uint8(x * 16), uint8(y * 16), 64, 255})
		}
	}

	var buf bytes.Buffer

	err := jpeg.Encode(&buf, im, nil)

	if err != nil {
		t.Fatalf("Failed to encode test JPEG, %v", err)
	}

	return buf.Bytes()
}

func testPhoto(t *testing.T, id string, name string, lat float64, lon float64) *photo.Photo {

	ph := &photo.Photo{
		Id:     id,
		Name:   name,
		Format: photo.FormatJPEG,
		Body:   testJPEG(t),
		Status: photo.StatusPending,
	}

	err := ph.AssignCoordinates(lat, lon)

	if err != nil {
		t.Fatalf("Failed to assign coordinates, %v", err)
	}

	return ph
}

func TestProcessPhotos(t *testing.T) {

	ctx := context.Background()

	pr := process.NewProcessor(nil)
	defer pr.Close()

	photos := []*photo.Photo{
		testPhoto(t, "1", "first.jpg", 40.7128, -74.0060),
		testPhoto(t, "2", "second.jpg", -33.8688, 151.2093),
	}

	results, outcomes, err := pr.ProcessPhotos(ctx, photos, nil)

	if err != nil {
		t.Fatalf("Failed to process photos, %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	if len(outcomes) != 2 {
		t.Fatalf("Expected 2 outcomes, got %d", len(outcomes))
	}

	for _, ph := range photos {

		if ph.Status != photo.StatusComplete {
			t.Fatalf("Expected %s to be complete, got %s", ph.Name, ph.Status)
		}

		body, ok := results[ph.Id]

		if !ok {
			t.Fatalf("Missing result for %s", ph.Id)
		}

		_, err := jpeg.Decode(bytes.NewReader(body))

		if err != nil {
			t.Fatalf("Result for %s is not a decodable JPEG, %v", ph.Id, err)
		}
	}
}

func TestProcessPhotosProgress(t *testing.T) {

	ctx := context.Background()

	pr := process.NewProcessor(nil)
	defer pr.Close()

	with_coords := []*photo.Photo{
		testPhoto(t, "1", "a.jpg", 1.0, 2.0),
		testPhoto(t, "2", "b.jpg", 3.0, 4.0),
		testPhoto(t, "3", "c.jpg", 5.0, 6.0),
	}

	photos := []*photo.Photo{
		with_coords[0],
		{Id: "skip", Name: "skip.jpg", Body: testJPEG(t), Status: photo.StatusPending},
		with_coords[1],
		with_coords[2],
	}

	type tick struct {
		current int
		total   int
	}

	ticks := make([]tick, 0)

	progress := func(current int, total int) {
		ticks = append(ticks, tick{current, total})
	}

	_, _, err := pr.ProcessPhotos(ctx, photos, progress)

	if err != nil {
		t.Fatalf("Failed to process photos, %v", err)
	}

	if len(ticks) != 3 {
		t.Fatalf("Expected 3 progress callbacks, got %d", len(ticks))
	}

	for i, tk := range ticks {

		if tk.current != i+1 || tk.total != 3 {
			t.Fatalf("Unexpected progress callback %d: (%d, %d)", i, tk.current, tk.total)
		}
	}
}

func TestProcessPhotosNoCoordinates(t *testing.T) {

	ctx := context.Background()

	pr := process.NewProcessor(nil)
	defer pr.Close()

	photos := []*photo.Photo{
		{Id: "1", Name: "a.jpg", Body: testJPEG(t), Status: photo.StatusPending},
		{Id: "2", Name: "b.jpg", Body: testJPEG(t), Status: photo.StatusPending},
	}

	called := 0

	progress := func(current int, total int) {
		called += 1
	}

	results, outcomes, err := pr.ProcessPhotos(ctx, photos, progress)

	if err != nil {
		t.Fatalf("Failed to process photos, %v", err)
	}

	if len(results) != 0 {
		t.Fatalf("Expected an empty result map, got %d entries", len(results))
	}

	if len(outcomes) != 0 {
		t.Fatalf("Expected no outcomes, got %d", len(outcomes))
	}

	if called != 0 {
		t.Fatalf("Expected no progress callbacks, got %d", called)
	}
}

func TestProcessPhotosPartialFailure(t *testing.T) {

	ctx := context.Background()

	compress_f := func(ctx context.Context, name string, body []byte) ([]byte, error) {

		if name == "broken.jpg" {

			return nil, &compress.CompressionError{
				Name: name,
				Err:  fmt.Errorf("simulated codec failure"),
			}
		}

		return body, nil
	}

	pr := process.NewProcessor(&process.ProcessorOptions{
		CompressFunc: compress_f,
	})

	defer pr.Close()

	no_coords := &photo.Photo{
		Id:     "1",
		Name:   "untagged.jpg",
		Body:   testJPEG(t),
		Status: photo.StatusPending,
	}

	photos := []*photo.Photo{
		no_coords,
		testPhoto(t, "2", "broken.jpg", 1.0, 2.0),
		testPhoto(t, "3", "good.jpg", 40.7128, -74.0060),
	}

	results, outcomes, err := pr.ProcessPhotos(ctx, photos, nil)

	if err != nil {
		t.Fatalf("Expected the batch to resolve, got %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected exactly 1 result, got %d", len(results))
	}

	if _, ok := results["3"]; !ok {
		t.Fatalf("Expected a result for the successful photo")
	}

	if len(outcomes) != 2 {
		t.Fatalf("Expected 2 outcomes, got %d", len(outcomes))
	}

	if outcomes[0].Status != photo.StatusError || outcomes[0].Err == nil {
		t.Fatalf("Expected the first outcome to be an error")
	}

	if outcomes[1].Status != photo.StatusComplete || outcomes[1].Err != nil {
		t.Fatalf("Expected the second outcome to be complete")
	}

	if no_coords.Status != photo.StatusPending {
		t.Fatalf("Expected the coordinate-less photo to remain pending, got %s", no_coords.Status)
	}
}

func TestBatchReport(t *testing.T) {

	outcomes := []*process.ItemOutcome{
		{Id: "1", Name: "a.jpg", Status: photo.StatusComplete},
		{Id: "2", Name: "b.jpg", Status: photo.StatusError, Err: fmt.Errorf("simulated failure")},
	}

	report := process.NewBatchReport("test-batch", outcomes)

	body, err := report.MarshalJSON()

	if err != nil {
		t.Fatalf("Failed to marshal report, %v", err)
	}

	enc := string(body)

	for _, expected := range []string{`"id":"test-batch"`, `"total":2`, `"complete":1`, `"failed":1`, `"simulated failure"`} {

		if !bytes.Contains(body, []byte(expected)) {
			t.Fatalf("Report %s is missing %s", enc, expected)
		}
	}
}
