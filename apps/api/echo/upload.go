package echoapi

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core/user"
	uploadsvc "github.com/talimhq/talim/services/upload"
)

const maxUploadSize = 25 << 20 // 25 MiB

var errUploadTooLarge = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")

type uploadApi struct {
	svc    uploadsvc.Service
	usrSvc user.ServiceInterface
}

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc uploadsvc.Service, usrSvc user.ServiceInterface) {
	api := uploadApi{svc: svc, usrSvc: usrSvc}

	g.POST("/uploads/:bucket", api.upload, jwt)
}

func (api *uploadApi) upload(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	bucket := ctx.Param("bucket")
	switch bucket {
	case uploadsvc.BucketAvatar:
	case uploadsvc.BucketCourse:
		// course media is instructor material
		if !usr.IsInstructor() {
			return errHttpForbidden
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown bucket")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing `file` form field")
	}
	if fh.Size > maxUploadSize {
		return errUploadTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	key := uploadKey(usr.ID, fh.Filename)
	url, err := api.svc.Upload(ctx.Request().Context(), bucket, key, src)
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"url": url})
}

// uploadKey namespaces files per user and timestamps them so re-uploads of
// the same filename do not overwrite each other.
func uploadKey(userID, filename string) string {
	base := strings.ReplaceAll(filepath.Base(filename), " ", "_")
	return fmt.Sprintf("%s/%d-%s", userID, time.Now().UnixNano(), base)
}
