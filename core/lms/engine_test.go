package lms

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/assignment"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
	"github.com/talimhq/talim/core/user"
	emailsvc "github.com/talimhq/talim/services/email"
	inmemdb "github.com/talimhq/talim/storage/database/inmem"
)

type testEnv struct {
	eng     *Engine
	usrRepo user.Repository
	crsRepo course.Repository
	enrRepo enrollment.Repository
	asgRepo assignment.Repository
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := core.NewTestConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	core.ParseEmailTemplates(conf, core.NopLogger{})

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	enrRepo := inmemdb.NewEnrollmentRepository(db)
	asgRepo := inmemdb.NewAssignmentRepository(db)

	eng := NewEngine(Deps{
		Conf:          conf,
		UserSvc:       user.NewService(usrRepo, mailSvc, conf),
		CourseSvc:     course.NewService(crsRepo, nil),
		EnrollmentSvc: enrollment.NewService(enrRepo, crsRepo, usrRepo, mailSvc),
		AssignmentSvc: assignment.NewService(asgRepo),
	})
	return &testEnv{eng: eng, usrRepo: usrRepo, crsRepo: crsRepo, enrRepo: enrRepo, asgRepo: asgRepo}
}

func createUser(t *testing.T, repo user.Repository, name, email, role, pwd string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		FirstName: name,
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createCourse(t *testing.T, repo course.Repository, title, instructorID string, lessons int) course.Course {
	t.Helper()
	mod := course.Module{Title: title + " Basics"}
	for i := 0; i < lessons; i++ {
		mod.Lessons = append(mod.Lessons, course.Lesson{Title: "Lesson", Type: course.LessonText, DurationMinutes: 10})
	}
	now := time.Now().UTC()
	crs := course.Course{
		Title:        title,
		InstructorID: instructorID,
		Modules:      course.EnsureIDs([]course.Module{mod}),
		Published:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func login(t *testing.T, eng *Engine, email, pwd string) user.User {
	t.Helper()
	usr, err := eng.Login(context.Background(), email, pwd)
	if err != nil {
		t.Fatalf("login() failed: %v", err)
	}
	return usr
}

func TestEngineLogin(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	instr := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	student := createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", instr.ID, 3)
	if _, err := env.enrRepo.CreateEnrollment(ctx, enrollment.Enrollment{CourseID: crs.ID, StudentID: student.ID, EnrolledAt: time.Now().UTC()}); err != nil {
		t.Fatalf("enroll failed: %v", err)
	}

	// wrong password
	if _, err := env.eng.Login(ctx, "awa@test.cm", "nope"); err != ErrInvalidCredentials {
		t.Errorf("Login() error = %v; want ErrInvalidCredentials", err)
	}
	// unknown email
	if _, err := env.eng.Login(ctx, "ghost@test.cm", "passwd"); err != ErrInvalidCredentials {
		t.Errorf("Login() error = %v; want ErrInvalidCredentials", err)
	}
	if _, ok := env.eng.CurrentUser(); ok {
		t.Error("CurrentUser() set after failed login")
	}

	usr := login(t, env.eng, "awa@test.cm", "passwd")
	if usr.LastLogin.IsZero() {
		t.Error("Login() did not set LastLogin")
	}

	// mirrors populated with the enrollment count joined in
	assert.Len(t, env.eng.Users(), 2)
	assert.Len(t, env.eng.Enrollments(), 1)
	courses := env.eng.Courses()
	if assert.Len(t, courses, 1) {
		assert.Equal(t, 1, courses[0].StudentsEnrolled)
	}
}

func TestEngineLoginInactive(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	usr := createUser(t, env.usrRepo, "Ben", "ben@test.cm", user.RoleStudent, "passwd")
	inactive := false
	if _, err := env.usrRepo.UpdateUser(ctx, usr, &inactive); err != nil {
		t.Fatalf("deactivating user failed: %v", err)
	}

	if _, err := env.eng.Login(ctx, "ben@test.cm", "passwd"); err != ErrAccountDeactivated {
		t.Errorf("Login() error = %v; want ErrAccountDeactivated", err)
	}
}

func TestEngineLogout(t *testing.T) {
	env := setup(t)

	createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	login(t, env.eng, "awa@test.cm", "passwd")

	env.eng.Logout()

	if _, ok := env.eng.CurrentUser(); ok {
		t.Error("CurrentUser() set after logout")
	}
	assert.Empty(t, env.eng.Users())
	assert.Empty(t, env.eng.Courses())
	assert.Empty(t, env.eng.Enrollments())
	assert.Equal(t, ScreenLogin, env.eng.CurrentView().Screen)
}

func TestEngineAddCourse(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	login(t, env.eng, "awa@test.cm", "passwd")

	crs, err := env.eng.AddCourse(ctx, course.NewCourse{
		Title: "Intro to Go",
		Modules: []course.Module{
			{Title: "Basics", Lessons: []course.Lesson{{Title: "Hello", DurationMinutes: 15}}},
		},
	})
	if err != nil {
		t.Fatalf("AddCourse() failed: %v", err)
	}

	// write became visible through the post-write refetch
	courses := env.eng.Courses()
	if assert.Len(t, courses, 1) {
		assert.Equal(t, crs.ID, courses[0].ID)
		assert.Equal(t, 15, courses[0].TotalDuration)
	}
}

func TestEngineDeleteCourse(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	instr := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	student := createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", instr.ID, 2)
	other := createCourse(t, env.crsRepo, "Rust", instr.ID, 2)

	login(t, env.eng, "awa@test.cm", "passwd")
	env.eng.EnrollStudent(ctx, crs.ID, student.ID)
	env.eng.EnrollStudent(ctx, other.ID, student.ID)

	if err := env.eng.DeleteCourse(ctx, crs.ID); err != nil {
		t.Fatalf("DeleteCourse() failed: %v", err)
	}

	// the course and its enrollments are gone from the mirrors
	courses := env.eng.Courses()
	if assert.Len(t, courses, 1) {
		assert.Equal(t, other.ID, courses[0].ID)
	}
	assert.Len(t, env.eng.Enrollments(), 1)
}

func TestEngineDeleteCourseNotOwner(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	owner := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	createUser(t, env.usrRepo, "Eve", "eve@test.cm", user.RoleInstructor, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", owner.ID, 2)

	login(t, env.eng, "eve@test.cm", "passwd")

	err := env.eng.DeleteCourse(ctx, crs.ID)
	assert.Equal(t, course.ErrNotOwner, err)
	assert.Len(t, env.eng.Courses(), 1)
}

func TestEngineEnrollInCourse(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	instr := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", instr.ID, 2)

	login(t, env.eng, "jess@test.cm", "passwd")
	env.eng.EnrollInCourse(ctx, crs.ID)

	enrollments := env.eng.Enrollments()
	if assert.Len(t, enrollments, 1) {
		assert.Equal(t, crs.ID, enrollments[0].CourseID)
		assert.Equal(t, 0, enrollments[0].Progress)
		assert.Empty(t, enrollments[0].CompletedLessonIDs)
	}
	courses := env.eng.Courses()
	if assert.Len(t, courses, 1) {
		assert.Equal(t, 1, courses[0].StudentsEnrolled)
	}
}

// The map store enforces no uniqueness, so a repeated enroll yields two rows
// and both count toward the course's enrollment number. Only the psql store's
// unique (course_id, student_id) constraint rejects the duplicate.
func TestEngineEnrollTwicePermissiveStore(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	instr := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", instr.ID, 2)

	login(t, env.eng, "jess@test.cm", "passwd")
	env.eng.EnrollInCourse(ctx, crs.ID)
	env.eng.EnrollInCourse(ctx, crs.ID)

	assert.Len(t, env.eng.Enrollments(), 2)
	assert.Equal(t, 2, env.eng.Courses()[0].StudentsEnrolled)
}

type failingEnrollmentSvc struct {
	enrollment.ServiceInterface
}

func (failingEnrollmentSvc) Enroll(ctx context.Context, courseID, studentID string) (enrollment.Enrollment, error) {
	return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
}

// A failed enroll is logged and swallowed; the caller sees no error and the
// mirrors stay as they were.
func TestEngineEnrollFailureIsSilent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	instr := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", instr.ID, 2)

	login(t, env.eng, "jess@test.cm", "passwd")
	env.eng.enrSvc = failingEnrollmentSvc{ServiceInterface: env.eng.enrSvc}

	env.eng.EnrollInCourse(ctx, crs.ID)

	assert.Empty(t, env.eng.Enrollments())
	assert.Equal(t, 0, env.eng.Courses()[0].StudentsEnrolled)
}

func TestEngineUpdateProgress(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	instr := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", instr.ID, 3)
	lessonID := crs.Modules[0].Lessons[0].ID

	login(t, env.eng, "jess@test.cm", "passwd")
	env.eng.EnrollInCourse(ctx, crs.ID)

	env.eng.UpdateProgress(ctx, crs.ID, lessonID)

	enrollments := env.eng.Enrollments()
	if assert.Len(t, enrollments, 1) {
		assert.Equal(t, 33, enrollments[0].Progress)
		assert.Equal(t, []string{lessonID}, enrollments[0].CompletedLessonIDs)
	}

	// repeating the same lesson changes nothing
	env.eng.UpdateProgress(ctx, crs.ID, lessonID)
	enrollments = env.eng.Enrollments()
	assert.Equal(t, 33, enrollments[0].Progress)
	assert.Len(t, enrollments[0].CompletedLessonIDs, 1)

	// no enrollment for this course: a no-op
	env.eng.UpdateProgress(ctx, "no-such-course", lessonID)
}

// UpdateProgress patches the one mirrored enrollment in place; it does not
// trigger a full refetch the way other mutations do.
func TestEngineUpdateProgressSkipsRefetch(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	instr := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", instr.ID, 2)
	lessonID := crs.Modules[0].Lessons[0].ID

	login(t, env.eng, "jess@test.cm", "passwd")
	env.eng.EnrollInCourse(ctx, crs.ID)

	// a course created behind the engine's back is only picked up by a refresh
	createCourse(t, env.crsRepo, "Rust", instr.ID, 2)

	env.eng.UpdateProgress(ctx, crs.ID, lessonID)
	assert.Len(t, env.eng.Courses(), 1)

	if err := env.eng.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	assert.Len(t, env.eng.Courses(), 2)
}

func TestEngineCompleteAllLessons(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	instr := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", instr.ID, 2)

	login(t, env.eng, "jess@test.cm", "passwd")
	env.eng.EnrollInCourse(ctx, crs.ID)

	for _, les := range crs.Modules[0].Lessons {
		env.eng.UpdateProgress(ctx, crs.ID, les.ID)
	}
	assert.Equal(t, 100, env.eng.Enrollments()[0].Progress)
}

func TestEngineUpdateProfile(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	login(t, env.eng, "awa@test.cm", "passwd")

	updated, err := env.eng.UpdateProfile(ctx, user.UpdateUser{FirstName: "Awa", LastName: "Diop", Bio: "Polyglot"})
	if err != nil {
		t.Fatalf("UpdateProfile() failed: %v", err)
	}
	assert.Equal(t, "Awa Diop", updated.Name)

	// the session user tracks the update
	usr, _ := env.eng.CurrentUser()
	assert.Equal(t, "Polyglot", usr.Bio)
}

func TestEngineDeleteUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	victim := createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")

	login(t, env.eng, "awa@test.cm", "passwd")
	if err := env.eng.DeleteUser(ctx, victim.ID); err != nil {
		t.Fatalf("DeleteUser() failed: %v", err)
	}
	assert.Len(t, env.eng.Users(), 1)
}

func TestEngineAnalytics(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	instr := createUser(t, env.usrRepo, "Awa", "awa@test.cm", user.RoleInstructor, "passwd")
	s1 := createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	s2 := createUser(t, env.usrRepo, "Ben", "ben@test.cm", user.RoleStudent, "passwd")
	crs := createCourse(t, env.crsRepo, "Go", instr.ID, 2)

	login(t, env.eng, "awa@test.cm", "passwd")
	env.eng.EnrollStudent(ctx, crs.ID, s1.ID)
	env.eng.EnrollStudent(ctx, crs.ID, s2.ID)

	sum, err := env.eng.Analytics(time.Now().UTC())
	if err != nil {
		t.Fatalf("Analytics() failed: %v", err)
	}
	assert.Equal(t, 2, sum.TotalEnrollments)
	assert.InDelta(t, 2*49.99, sum.EstimatedRevenue, 0.001)
	if assert.Len(t, sum.TopCourses, 1) {
		assert.Equal(t, 2, sum.TopCourses[0].StudentsEnrolled)
	}
}

func TestEngineNavigation(t *testing.T) {
	env := setup(t)

	// unauthenticated: always the login screen
	assert.Equal(t, ScreenLogin, env.eng.CurrentView().Screen)

	createUser(t, env.usrRepo, "Jess", "jess@test.cm", user.RoleStudent, "passwd")
	login(t, env.eng, "jess@test.cm", "passwd")

	assert.Equal(t, ScreenDashboard, env.eng.CurrentView().Screen)

	env.eng.NavigateTo(ScreenCourseViewer, Params{"course_id": "c1"})
	view := env.eng.CurrentView()
	assert.Equal(t, ScreenCourseViewer, view.Screen)
	assert.Equal(t, "c1", view.Params["course_id"])
	assert.True(t, view.Chromeless)

	env.eng.NavigateTo(ScreenCatalog)
	view = env.eng.CurrentView()
	assert.Equal(t, ScreenCatalog, view.Screen)
	assert.Nil(t, view.Params)
	assert.False(t, view.Chromeless)
}
