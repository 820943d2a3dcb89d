package uploadsvc

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core"
)

type gcsService struct {
	client       *storage.Client
	logger       core.Logger
	avatarBucket string
	courseBucket string
}

var _ Service = (*gcsService)(nil)

// NewGCSService expects GOOGLE_APPLICATION_CREDENTIALS in the environment.
func NewGCSService(conf *core.Config, logger core.Logger) (*gcsService, error) {
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return &gcsService{
		client:       client,
		logger:       logger,
		avatarBucket: conf.Upload.AvatarBucket,
		courseBucket: conf.Upload.CourseBucket,
	}, nil
}

func (svc *gcsService) bucketName(bucket string) string {
	if bucket == BucketAvatar {
		return svc.avatarBucket
	}
	return svc.courseBucket
}

func (svc *gcsService) Upload(ctx context.Context, bucket, key string, file io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	name := svc.bucketName(bucket)
	w := svc.client.Bucket(name).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return svc.PublicURL(bucket, key), nil
}

func (svc *gcsService) Delete(ctx context.Context, bucket, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	obj := svc.client.Bucket(svc.bucketName(bucket)).Object(key)
	if err := obj.Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return errors.Wrapf(err, "deleting object %q", key)
	}
	return nil
}

func (svc *gcsService) PublicURL(bucket, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", svc.bucketName(bucket), key)
}
