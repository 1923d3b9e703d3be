package photo

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format is a closed enumeration of recognized input formats. The format
// of a photo is decided once, at ingestion, and carried on the Photo for
// the rest of the pipeline rather than re-sniffed per stage.
type Format int

const (
	// FormatUnknown signals a file the pipeline assumes to be natively decodable.
	FormatUnknown Format = iota
	// FormatJPEG signals a JPEG file.
	FormatJPEG
	// FormatHEIC signals a file in the HEIC/HEIF proprietary camera format family.
	FormatHEIC
)

// Status describes the lifecycle of a Photo within a batch.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Photo is a single user-supplied image and its processing state. A Photo
// is owned by the batch it was gathered in to for the batch's lifetime.
type Photo struct {
	// Id is a unique identifier for the photo within its batch.
	Id string `json:"id"`
	// Name is the display (file) name for the photo.
	Name string `json:"name"`
	// MimeType is the declared media type for the photo, if any.
	MimeType string `json:"mimetype,omitempty"`
	// Format is the recognized input format, decided at ingestion.
	Format Format `json:"-"`
	// Body is the raw byte source for the photo.
	Body []byte `json:"-"`
	// Coordinates is the assigned location for the photo. Photos without
	// coordinates never enter the processing pipeline.
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	// Status is the lifecycle status for the photo.
	Status Status `json:"status"`
	// Fingerprint is the SHA-1 digest of Body, assigned at ingestion.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// AssignCoordinates validates lat and lon and stores them on p. Both
// values are stored together or not at all.
func (p *Photo) AssignCoordinates(lat float64, lon float64) error {

	c, err := NewCoordinates(lat, lon)

	if err != nil {
		return err
	}

	p.Coordinates = c
	return nil
}

// DetectFormat derives the recognized input format for a file from its
// declared media type, falling back on its filename suffix. The HEIC
// family is matched by the two known media types and the two known
// suffixes, case-insensitively.
func DetectFormat(name string, mimetype string) Format {

	switch mimetype {
	case "image/heic", "image/heif":
		return FormatHEIC
	case "image/jpeg":
		return FormatJPEG
	default:
		// pass
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".heic", ".heif":
		return FormatHEIC
	case ".jpg", ".jpeg":
		return FormatJPEG
	default:
		return FormatUnknown
	}
}

// MimeTypeFromName derives a media type for a filename from its extension.
func MimeTypeFromName(name string) string {
	return mime.TypeByExtension(filepath.Ext(name))
}
