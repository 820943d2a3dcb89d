// Package lms holds the application state engine: the authenticated session,
// in-memory mirrors of the user, course and enrollment tables, and the
// navigation state front-ends render from.
//
// The engine follows a write-then-reconcile policy: every mutation performs
// its write first, then refetches the full data set so the mirrors are never
// speculatively ahead of the store. The single exception is lesson progress,
// which patches the mirrored enrollment in place for responsiveness.
package lms

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/analytics"
	"github.com/talimhq/talim/core/assignment"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
	"github.com/talimhq/talim/core/user"
)

var (
	// errors
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
)

type (
	// Session holds the authenticated user for the lifetime of the engine.
	Session struct {
		User      user.User
		StartedAt time.Time
	}

	Deps struct {
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       user.ServiceInterface
		CourseSvc     course.ServiceInterface
		EnrollmentSvc enrollment.ServiceInterface
		AssignmentSvc assignment.ServiceInterface
	}

	// Engine owns the in-memory mirrors for one application session.
	// Constructed at startup, torn down at logout; it is not a singleton.
	Engine struct {
		conf   *core.Config
		logger core.Logger
		usrSvc user.ServiceInterface
		crsSvc course.ServiceInterface
		enrSvc enrollment.ServiceInterface
		asgSvc assignment.ServiceInterface

		mu          sync.RWMutex
		session     *Session
		users       []user.User
		courses     []course.Course
		enrollments []enrollment.Enrollment
		screen      Screen
		params      Params
	}
)

func NewEngine(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Engine{
		conf:   deps.Conf,
		logger: logger,
		usrSvc: deps.UserSvc,
		crsSvc: deps.CourseSvc,
		enrSvc: deps.EnrollmentSvc,
		asgSvc: deps.AssignmentSvc,
		screen: ScreenDashboard,
	}
}

// Session & identity

func (eng *Engine) Login(ctx context.Context, email, password string) (user.User, error) {
	usr, err := eng.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(password); err != nil {
		return user.User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return user.User{}, ErrAccountDeactivated
	}
	if usr, err = eng.usrSvc.SetLastLogin(ctx, usr); err != nil {
		return user.User{}, errors.Wrap(err, "setting lastLogin")
	}

	eng.mu.Lock()
	eng.session = &Session{User: usr, StartedAt: time.Now().UTC()}
	eng.screen = ScreenDashboard
	eng.params = nil
	eng.mu.Unlock()

	if err = eng.Refresh(ctx); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (eng *Engine) Signup(ctx context.Context, nu user.NewUser) (user.User, error) {
	if _, err := eng.usrSvc.Create(ctx, nu); err != nil {
		return user.User{}, err
	}
	return eng.Login(ctx, nu.Email, nu.Password)
}

// Logout tears the session down and empties every mirror.
func (eng *Engine) Logout() {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	eng.session = nil
	eng.users = nil
	eng.courses = nil
	eng.enrollments = nil
	eng.screen = ScreenDashboard
	eng.params = nil
}

// CurrentUser returns the session user, if any.
func (eng *Engine) CurrentUser() (user.User, bool) {
	eng.mu.RLock()
	defer eng.mu.RUnlock()

	if eng.session == nil {
		return user.User{}, false
	}
	return eng.session.User, true
}

// Store mirrors

// Refresh refetches the full user, enrollment and course sets, in that order,
// joins each course with its live enrollment count and replaces all three
// mirrors atomically.
func (eng *Engine) Refresh(ctx context.Context) error {
	users, err := eng.usrSvc.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing users")
	}
	enrollments, err := eng.enrSvc.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing enrollments")
	}
	courses, err := eng.crsSvc.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing courses")
	}

	counts := make(map[string]int, len(courses))
	for _, enr := range enrollments {
		counts[enr.CourseID]++
	}
	for i := range courses {
		courses[i].StudentsEnrolled = counts[courses[i].ID]
	}

	eng.mu.Lock()
	eng.users = users
	eng.enrollments = enrollments
	eng.courses = courses
	eng.mu.Unlock()
	return nil
}

func (eng *Engine) Users() []user.User {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	return append([]user.User(nil), eng.users...)
}

func (eng *Engine) Courses() []course.Course {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	return append([]course.Course(nil), eng.courses...)
}

func (eng *Engine) Enrollments() []enrollment.Enrollment {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	return append([]enrollment.Enrollment(nil), eng.enrollments...)
}

// Course authoring

func (eng *Engine) AddCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	usr, ok := eng.CurrentUser()
	if !ok {
		return course.Course{}, ErrNotAuthenticated
	}
	crs, err := eng.crsSvc.Create(ctx, usr.ID, nc)
	if err != nil {
		return course.Course{}, err
	}
	if err = eng.Refresh(ctx); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (eng *Engine) UpdateCourse(ctx context.Context, id string, uc course.UpdateCourse) (course.Course, error) {
	usr, ok := eng.CurrentUser()
	if !ok {
		return course.Course{}, ErrNotAuthenticated
	}
	crs, err := eng.crsSvc.Update(ctx, id, usr.ID, uc)
	if err != nil {
		return course.Course{}, err
	}
	if err = eng.Refresh(ctx); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

// DeleteCourse propagates the store's failure to the caller; the next refresh
// drops the course and its enrollments from the mirrors.
func (eng *Engine) DeleteCourse(ctx context.Context, id string) error {
	usr, ok := eng.CurrentUser()
	if !ok {
		return ErrNotAuthenticated
	}
	if err := eng.crsSvc.Delete(ctx, id, usr.ID); err != nil {
		return err
	}
	return eng.Refresh(ctx)
}

// Enrollment & progress

// EnrollInCourse enrolls the session user. Insert failures are logged, never
// returned: a failed enroll leaves the mirrors untouched and the user retries.
func (eng *Engine) EnrollInCourse(ctx context.Context, courseID string) {
	usr, ok := eng.CurrentUser()
	if !ok {
		return
	}
	eng.EnrollStudent(ctx, courseID, usr.ID)
}

// EnrollStudent enrolls the given student. No duplicate pre-check happens
// here; the store's uniqueness constraint, if any, rejects the second insert.
func (eng *Engine) EnrollStudent(ctx context.Context, courseID, studentID string) {
	if _, err := eng.enrSvc.Enroll(ctx, courseID, studentID); err != nil {
		eng.logger.Error("enrolling student", err)
		return
	}
	if err := eng.Refresh(ctx); err != nil {
		eng.logger.Error("refreshing after enroll", err)
	}
}

// UpdateProgress marks a lesson completed for the session user. A missing
// enrollment or an already-completed lesson is a no-op. Unlike the other
// mutations this patches the mirrored enrollment in place instead of
// refetching everything.
func (eng *Engine) UpdateProgress(ctx context.Context, courseID, lessonID string) {
	usr, ok := eng.CurrentUser()
	if !ok {
		return
	}

	enr, changed, err := eng.enrSvc.CompleteLesson(ctx, courseID, usr.ID, lessonID)
	if err != nil {
		if errors.Cause(err) != enrollment.ErrNotFound {
			eng.logger.Error("updating progress", err)
		}
		return
	}
	if !changed {
		return
	}

	eng.mu.Lock()
	for i := range eng.enrollments {
		if eng.enrollments[i].ID == enr.ID {
			eng.enrollments[i] = enr
			break
		}
	}
	eng.mu.Unlock()
}

// Users

// UpdateProfile updates the session user's own profile.
func (eng *Engine) UpdateProfile(ctx context.Context, uu user.UpdateUser) (user.User, error) {
	usr, ok := eng.CurrentUser()
	if !ok {
		return user.User{}, ErrNotAuthenticated
	}
	updated, err := eng.usrSvc.Update(ctx, usr.ID, uu)
	if err != nil {
		return user.User{}, err
	}

	eng.mu.Lock()
	if eng.session != nil {
		eng.session.User = updated
	}
	eng.mu.Unlock()

	if err = eng.Refresh(ctx); err != nil {
		return user.User{}, err
	}
	return updated, nil
}

func (eng *Engine) EditUser(ctx context.Context, id string, uu user.UpdateUser) error {
	if _, ok := eng.CurrentUser(); !ok {
		return ErrNotAuthenticated
	}
	if _, err := eng.usrSvc.Update(ctx, id, uu); err != nil {
		return err
	}
	return eng.Refresh(ctx)
}

func (eng *Engine) DeleteUser(ctx context.Context, id string) error {
	if _, ok := eng.CurrentUser(); !ok {
		return ErrNotAuthenticated
	}
	if err := eng.usrSvc.Delete(ctx, id); err != nil {
		return err
	}
	return eng.Refresh(ctx)
}

// Assignments & submissions (not mirrored; fetched per course on demand)

func (eng *Engine) FetchAssignments(ctx context.Context, courseID string) ([]assignment.Assignment, error) {
	return eng.asgSvc.QueryByCourse(ctx, courseID)
}

func (eng *Engine) CreateAssignment(ctx context.Context, courseID string, na assignment.NewAssignment) (assignment.Assignment, error) {
	return eng.asgSvc.Create(ctx, courseID, na)
}

func (eng *Engine) DeleteAssignment(ctx context.Context, id string) error {
	return eng.asgSvc.Delete(ctx, id)
}

func (eng *Engine) FetchSubmissions(ctx context.Context, courseID string) ([]assignment.CourseSubmission, error) {
	return eng.asgSvc.QuerySubmissionsByCourse(ctx, courseID)
}

func (eng *Engine) GradeSubmission(ctx context.Context, id string, gs assignment.GradeSubmission) (assignment.Submission, error) {
	return eng.asgSvc.Grade(ctx, id, gs)
}

// Analytics

// Analytics rolls up the session instructor's stats from the current mirrors.
func (eng *Engine) Analytics(ref time.Time) (analytics.Summary, error) {
	usr, ok := eng.CurrentUser()
	if !ok {
		return analytics.Summary{}, ErrNotAuthenticated
	}

	eng.mu.RLock()
	courses := append([]course.Course(nil), eng.courses...)
	enrollments := append([]enrollment.Enrollment(nil), eng.enrollments...)
	eng.mu.RUnlock()

	return analytics.Summarize(courses, enrollments, usr.ID, eng.conf.EnrollmentUnitPrice, ref), nil
}
