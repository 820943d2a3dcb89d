package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/analytics"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
	"github.com/talimhq/talim/core/user"
)

var analyticsNowFunc = time.Now // mockable

type analyticsApi struct {
	crsSvc course.ServiceInterface
	enrSvc enrollment.ServiceInterface
	usrSvc user.ServiceInterface
	conf   *core.Config
}

func registerAnalyticsAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	crsSvc course.ServiceInterface,
	enrSvc enrollment.ServiceInterface,
	usrSvc user.ServiceInterface,
	conf *core.Config,
) {
	api := analyticsApi{crsSvc: crsSvc, enrSvc: enrSvc, usrSvc: usrSvc, conf: conf}

	g.GET("/analytics", api.summary, jwt, instructorMiddleware())
}

// summary computes the acting instructor's dashboard numbers from the full
// course and enrollment sets.
func (api *analyticsApi) summary(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courses, err := api.crsSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	enrollments, err := api.enrSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}

	// StudentsEnrolled is derived, not stored
	counts := make(map[string]int, len(courses))
	for _, enr := range enrollments {
		counts[enr.CourseID]++
	}
	for i := range courses {
		courses[i].StudentsEnrolled = counts[courses[i].ID]
	}

	// EnrolledAt is stored UTC; the reference time must match or the
	// current-month bucket can mislabel near a month boundary.
	summary := analytics.Summarize(courses, enrollments, usr.ID, api.conf.EnrollmentUnitPrice, analyticsNowFunc().UTC())
	return ctx.JSON(http.StatusOK, summary)
}
