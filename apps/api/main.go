package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/talimhq/talim/apps/api/echo"
	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/assignment"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
	"github.com/talimhq/talim/core/user"
	curriculumsvc "github.com/talimhq/talim/services/curriculum"
	emailsvc "github.com/talimhq/talim/services/email"
	logsvc "github.com/talimhq/talim/services/logger"
	uploadsvc "github.com/talimhq/talim/services/upload"
	"github.com/talimhq/talim/storage/database"
	sqlxrepos "github.com/talimhq/talim/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	sdb := sqlx.NewDb(db, "postgres")

	// set up repositories
	usrRepo := sqlxrepos.NewUserRepository(sdb)
	crsRepo := sqlxrepos.NewCourseRepository(sdb)
	enrRepo := sqlxrepos.NewEnrollmentRepository(sdb)
	asgRepo := sqlxrepos.NewAssignmentRepository(sdb)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var generator course.Generator
	if gen, err := curriculumsvc.NewGeminiService(conf); err == nil {
		generator = gen
	} else if errors.Cause(err) == curriculumsvc.ErrNoAPIKey {
		logger.Info("no gemini API key; curriculum generation disabled")
	} else {
		logger.Fatal(fmt.Sprintf("setting up curriculum generator: %v", err), err)
	}

	uploadSvc, err := uploadsvc.NewService(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up upload service: %v", err), err)
	}

	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	crsSvc := course.NewService(crsRepo, generator)
	enrSvc := enrollment.NewService(enrRepo, crsRepo, usrRepo, mailSvc)
	asgSvc := assignment.NewService(asgRepo)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			CourseSvc:     crsSvc,
			EnrollmentSvc: enrSvc,
			AssignmentSvc: asgSvc,
			UploadSvc:     uploadSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
