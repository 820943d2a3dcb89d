package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core/user"
)

var errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")

type userApi struct {
	svc      user.ServiceInterface
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc user.ServiceInterface, validate *validator.Validate) {
	api := userApi{svc: svc, validate: validate}

	ug := g.Group("/users")

	// un-authed endpoints
	// TODO: rate limit `/password-reset` & `/password-reset-confirm`
	ug.POST("/signup", api.signup)
	ug.POST("/login", api.login)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("", api.query, instructorMiddleware())
	ag.GET("/me", api.retrieveSelf)
	ag.PUT("/me", api.updateSelf)

	// detail endpoints
	dg := ag.Group("/:id", ctxUserOrInstructorMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, instructorMiddleware())
	dg.DELETE("", api.destroy, instructorMiddleware())
}

// Handlers

func (api *userApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token, User: &usr})
}

func (api *userApi) login(ctx echo.Context) error {
	var data user.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	usr, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: &usr})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data user.PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieveSelf(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateSelf(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	// `IsActive` can only be changed by an instructor via the detail endpoint
	data.IsActive = nil
	if err = data.Validate(api.validate, usr); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(api.validate, usr); err != nil {
		return err
	}

	usr, err := api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// ctxUserOrInstructorMiddleware loads the target user into the context for
// the detail endpoints. Students only reach their own record.
func ctxUserOrInstructorMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			if ctx.Param("id") == ctxUsr.ID || ctxUsr.IsInstructor() {
				if usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set("object", usr)
					return next(ctx)
				} else if errors.Cause(err) != user.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type (
	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)
