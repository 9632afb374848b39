package issues

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"fixversity/internal/errs"
)

type UploadInput struct {
	UserID      string
	FileName    string
	ContentType string
	Content     io.Reader
}

// UploadImage stores an issue photo under <user_id>/<unix-millis>.<ext> and
// returns its public URL. It neither notifies nor invalidates queries.
func (s *Service) UploadImage(ctx context.Context, input UploadInput) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	if s.storage == nil {
		return "", errors.New("object storage is required")
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return "", errViewerRequired
	}
	if input.Content == nil {
		return "", errors.New("upload content is required")
	}

	key := ImageKey(userID, input.FileName, s.now().UnixMilli())
	if err := s.storage.Put(ctx, key, input.Content, input.ContentType); err != nil {
		return "", errs.Wrapf(err, "upload %s", key)
	}
	return s.storage.PublicURL(key), nil
}

// ImageKey builds the object key of an upload. The extension is the text
// after the last "." of fileName, or the whole name when it has no dot.
func ImageKey(userID string, fileName string, unixMillis int64) string {
	ext := fileName
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		ext = fileName[i+1:]
	}
	return fmt.Sprintf("%s/%d.%s", userID, unixMillis, ext)
}
