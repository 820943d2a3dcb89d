package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core/enrollment"
	"github.com/talimhq/talim/core/user"
)

type enrollmentApi struct {
	svc      enrollment.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerEnrollmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc enrollment.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := enrollmentApi{svc: svc, usrSvc: usrSvc, validate: validate}

	eg := g.Group("/enrollments", jwt)
	eg.GET("", api.query)
	eg.POST("", api.enroll)
	eg.PUT("/progress", api.updateProgress, studentMiddleware())
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	enrollments, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data enrollment.NewEnrollment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	// students may only enroll themselves; instructors may enroll anyone
	studentID := data.StudentID
	if studentID == "" || !usr.IsInstructor() {
		studentID = usr.ID
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), data.CourseID, studentID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) updateProgress(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data enrollment.ProgressUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressUpdate")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	enr, _, err := api.svc.CompleteLesson(ctx.Request().Context(), data.CourseID, usr.ID, data.LessonID)
	if err != nil {
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.JSON(http.StatusOK, enr)
}
