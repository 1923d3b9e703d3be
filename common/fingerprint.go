package common

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"

	"gocloud.dev/blob"
)

// Fingerprint generates a SHA-1 hash for a byte slice.
func Fingerprint(body []byte) string {

	h := sha1.New()
	h.Write(body)

	hash := h.Sum(nil)
	return hex.EncodeToString(hash[:])
}

// FingerprintFile generates a SHA-1 hash of a file stored in a blob.Bucket instance.
func FingerprintFile(ctx context.Context, bucket *blob.Bucket, path string) (string, error) {

	fh, err := bucket.NewReader(ctx, path, nil)

	if err != nil {
		return "", err
	}

	defer fh.Close()

	h := sha1.New()

	_, err = io.Copy(h, fh)

	if err != nil {
		return "", err
	}

	hash := h.Sum(nil)
	str := hex.EncodeToString(hash[:])

	return str, nil
}
