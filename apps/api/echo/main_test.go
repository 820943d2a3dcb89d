package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/assignment"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
	"github.com/talimhq/talim/core/user"
	emailsvc "github.com/talimhq/talim/services/email"
	inmemdb "github.com/talimhq/talim/storage/database/inmem"
)

type testApp struct {
	server  *Server
	conf    *core.Config
	usrRepo user.Repository
	crsRepo course.Repository
	enrRepo enrollment.Repository
	asgRepo assignment.Repository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewTestConfig()
	logger := core.NopLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	core.ParseEmailTemplates(conf, logger)

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	enrRepo := inmemdb.NewEnrollmentRepository(db)
	asgRepo := inmemdb.NewAssignmentRepository(db)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        user.NewService(usrRepo, mailSvc, conf),
		CourseSvc:      course.NewService(crsRepo, nil),
		EnrollmentSvc:  enrollment.NewService(enrRepo, crsRepo, usrRepo, mailSvc),
		AssignmentSvc:  assignment.NewService(asgRepo),
		UploadSvc:      &stubUploadSvc{},
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testApp{
		server:  server,
		conf:    conf,
		usrRepo: usrRepo,
		crsRepo: crsRepo,
		enrRepo: enrRepo,
		asgRepo: asgRepo,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (app *testApp) request(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func createTestUser(t *testing.T, repo user.Repository, firstName, lastName, email, role, pwd string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Email:     email,
		Role:      role,
		FirstName: firstName,
		LastName:  lastName,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createTestUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createTestUser(): %v", err)
	}
	return usr
}

func createTestCourse(t *testing.T, repo course.Repository, instructorID, title string, modules []course.Module) course.Course {
	t.Helper()
	now := time.Now().UTC()
	crs := course.Course{
		InstructorID: instructorID,
		Title:        title,
		Modules:      course.EnsureIDs(modules),
		Published:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	crs.TotalDuration = crs.ComputeTotalDuration()
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("createTestCourse(): %v", err)
	}
	return crs
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body = %v", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody(): %v; body = %v", err, rec.Body.String())
	}
}
