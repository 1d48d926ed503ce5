package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Open when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving, retrieving and purging binary objects.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// SessionPrefix is the namespace holding every object owned by a session.
func SessionPrefix(sessionID string) string {
	return "sessions/" + strings.Trim(sessionID, "/") + "/"
}

// SessionKey joins a file name under the session namespace.
func SessionKey(sessionID, name string) string {
	return path.Join("sessions", strings.Trim(sessionID, "/"), name)
}
