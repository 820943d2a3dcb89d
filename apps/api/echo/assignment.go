package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core/assignment"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/user"
)

type assignmentApi struct {
	svc      assignment.ServiceInterface
	crsSvc   course.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerAssignmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc assignment.ServiceInterface,
	crsSvc course.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := assignmentApi{svc: svc, crsSvc: crsSvc, usrSvc: usrSvc, validate: validate}

	cg := g.Group("/courses/:id", jwt)
	cg.GET("/assignments", api.queryByCourse)
	cg.POST("/assignments", api.create, instructorMiddleware())
	cg.GET("/submissions", api.querySubmissions, instructorMiddleware())

	ag := g.Group("/assignments/:id", jwt)
	ag.DELETE("", api.destroy, instructorMiddleware())
	ag.POST("/submissions", api.submit, studentMiddleware())

	sg := g.Group("/submissions/:id", jwt)
	sg.PUT("/grade", api.grade, instructorMiddleware())
}

// ownedCourse loads the course and checks it belongs to the acting instructor.
func (api *assignmentApi) ownedCourse(ctx echo.Context, courseID string) (course.Course, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting context user")
	}
	crs, err := api.crsSvc.GetByID(ctx.Request().Context(), courseID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "finding course by ID")
	}
	if crs.InstructorID != usr.ID {
		return course.Course{}, course.ErrNotOwner
	}
	return crs, nil
}

func (api *assignmentApi) queryByCourse(ctx echo.Context) error {
	assignments, err := api.svc.QueryByCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	crs, err := api.ownedCourse(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data assignment.NewAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	asg, err := api.svc.Create(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data assignment.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) querySubmissions(ctx echo.Context) error {
	crs, err := api.ownedCourse(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	submissions, err := api.svc.QuerySubmissionsByCourse(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if submissions == nil {
		submissions = []assignment.CourseSubmission{}
	}
	return ctx.JSON(http.StatusOK, submissions)
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	var data assignment.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
