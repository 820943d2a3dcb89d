package uploadsvc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/talimhq/talim/core"
)

// localService writes files under <workdir>/<mediaRoot>/<bucket>/ and serves
// them off the API's static media route.
type localService struct {
	root      string
	publicURL string
}

var _ Service = (*localService)(nil)

func NewLocalService(conf *core.Config) *localService {
	return &localService{
		root:      filepath.Join(conf.WorkDir, conf.Upload.MediaRoot),
		publicURL: strings.TrimRight(conf.Upload.PublicURL, "/"),
	}
}

// MediaRoot is the directory the API serves as static media.
func (svc *localService) MediaRoot() string { return svc.root }

func (svc *localService) Upload(ctx context.Context, bucket, key string, file io.Reader) (string, error) {
	path := filepath.Join(svc.root, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, file); err != nil {
		return "", errors.Wrap(err, "writing media file")
	}
	return svc.PublicURL(bucket, key), nil
}

func (svc *localService) Delete(ctx context.Context, bucket, key string) error {
	path := filepath.Join(svc.root, bucket, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing media file")
	}
	return nil
}

func (svc *localService) PublicURL(bucket, key string) string {
	return svc.publicURL + "/" + bucket + "/" + strings.TrimLeft(key, "/")
}
