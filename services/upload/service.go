// Package uploadsvc stores user-provided media (avatars, course thumbnails,
// lesson PDFs) and hands back a public URL for the record that references it.
package uploadsvc

import (
	"context"
	"io"
	"strings"

	"github.com/talimhq/talim/core"
)

// Buckets
const (
	BucketAvatar = "avatar"
	BucketCourse = "course"
)

type Service interface {
	// Upload writes the file under the given key and returns its public URL.
	Upload(ctx context.Context, bucket, key string, file io.Reader) (string, error)
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

// NewService returns the backend selected by conf.Upload.Backend,
// defaulting to local storage.
func NewService(conf *core.Config, logger core.Logger) (Service, error) {
	if conf.Upload.Backend == "gcs" {
		return NewGCSService(conf, logger)
	}
	return NewLocalService(conf), nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	default:
		return ""
	}
}
