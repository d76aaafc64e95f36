package storage

import (
	"context"
	"io"
)

// ObjectStore holds photo binaries. Upload returns the public URL for the
// stored object; callers persist that URL and hand it back to Remove, never
// assembling URLs themselves.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Remove(ctx context.Context, url string) error
}
