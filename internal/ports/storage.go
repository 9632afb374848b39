package ports

import (
	"context"
	"io"
)

// ObjectStorage is a bucket of permanently public objects.
type ObjectStorage interface {
	Put(ctx context.Context, key string, content io.Reader, contentType string) error
	PublicURL(key string) string
}
