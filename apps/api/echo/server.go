package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/assignment"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
	"github.com/talimhq/talim/core/user"
	uploadsvc "github.com/talimhq/talim/services/upload"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       user.ServiceInterface
		CourseSvc     course.ServiceInterface
		EnrollmentSvc enrollment.ServiceInterface
		AssignmentSvc assignment.ServiceInterface
		UploadSvc     uploadsvc.Service
		Validate      *validator.Validate
		Translator    ut.Translator

		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	initJWTConfig(deps.Conf)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.Validate)
	registerCourseAPI(v1, jwt, s.deps.CourseSvc, s.deps.UserSvc, s.deps.Validate)
	registerEnrollmentAPI(v1, jwt, s.deps.EnrollmentSvc, s.deps.UserSvc, s.deps.Validate)
	registerAssignmentAPI(v1, jwt, s.deps.AssignmentSvc, s.deps.CourseSvc, s.deps.UserSvc, s.deps.Validate)
	registerAnalyticsAPI(v1, jwt, s.deps.CourseSvc, s.deps.EnrollmentSvc, s.deps.UserSvc, conf)
	registerUploadAPI(v1, jwt, s.deps.UploadSvc, s.deps.UserSvc)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

// Errors reports fatal server errors.
func (s *Server) Errors() <-chan error { return s.errs }

// ShutdownSignal receives SIGINT/SIGTERM and internal shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Talim API!")
}
