package convert

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sfomuseum/go-geotag-photos/photo"
)

func TestConvertPhotoPassThrough(t *testing.T) {

	ctx := context.Background()

	body := []byte("jpeg body stands in here")

	ph := &photo.Photo{
		Id:     "1",
		Name:   "photo.jpg",
		Format: photo.FormatJPEG,
		Body:   body,
	}

	out, err := ConvertPhoto(ctx, ph)

	if err != nil {
		t.Fatalf("Failed to convert photo, %v", err)
	}

	if !bytes.Equal(out, body) {
		t.Fatalf("Expected the body to pass through unchanged")
	}
}

func TestConvertPhotoMalformedHEIC(t *testing.T) {

	ctx := context.Background()

	ph := &photo.Photo{
		Id:     "1",
		Name:   "broken.heic",
		Format: photo.FormatHEIC,
		Body:   []byte("this is not a HEIC container"),
	}

	_, err := ConvertPhoto(ctx, ph)

	if err == nil {
		t.Fatalf("Expected an error for a malformed HEIC body")
	}

	var cerr *ConversionError

	if !errors.As(err, &cerr) {
		t.Fatalf("Expected a ConversionError, got %T", err)
	}

	if cerr.Name != "broken.heic" {
		t.Fatalf("Expected the error to name the photo, got %q", cerr.Name)
	}
}
