package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"fixversity/internal/errs"
	"fixversity/internal/ports"
)

var ErrInvalidObjectKey = errors.New("invalid object key")

// LocalBucket stores objects under <dir>/<bucket>/<key> and serves them from
// <baseURL>/files/<bucket>/<key>.
type LocalBucket struct {
	dir     string
	bucket  string
	baseURL string
}

var _ ports.ObjectStorage = (*LocalBucket)(nil)

func NewLocalBucket(dir string, bucket string, baseURL string) *LocalBucket {
	return &LocalBucket{
		dir:     dir,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Root is the directory served under /files/.
func (b *LocalBucket) Root() string {
	return b.dir
}

func (b *LocalBucket) Put(ctx context.Context, key string, content io.Reader, _ string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}

	target := filepath.Join(b.dir, b.bucket, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errs.Wrap(err, "create object directory")
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errs.Wrap(err, "open object file")
	}
	if _, err := io.Copy(file, content); err != nil {
		_ = file.Close()
		return errs.Wrap(err, "write object")
	}
	if err := file.Close(); err != nil {
		return errs.Wrap(err, "close object file")
	}
	return nil
}

func (b *LocalBucket) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return b.baseURL + "/files/" + url.PathEscape(b.bucket) + "/" + strings.Join(segments, "/")
}

func cleanKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || strings.HasPrefix(trimmed, "/") || strings.Contains(trimmed, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidObjectKey, key)
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidObjectKey, key)
	}
	return cleaned, nil
}
