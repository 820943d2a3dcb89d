package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/user"
)

type courseApi struct {
	svc      course.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc course.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := courseApi{svc: svc, usrSvc: usrSvc, validate: validate}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, instructorMiddleware())
	cg.POST("/generate", api.generate, instructorMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, instructorMiddleware())
	cg.DELETE("/:id", api.destroy, instructorMiddleware())
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(api.validate, crs); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) generate(ctx echo.Context) error {
	var data course.GenerateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	modules, err := api.svc.Generate(ctx.Request().Context(), data.Topic)
	if err != nil {
		return errors.Wrap(err, "generating curriculum")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"modules": modules})
}
