package enrollment

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("enrollment not found")
	// ErrAlreadyEnrolled is surfaced by stores that enforce one enrollment
	// per (course, student) pair.
	ErrAlreadyEnrolled = errors.New("student already enrolled")
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryAllEnrollments(ctx context.Context) ([]Enrollment, error)
		GetEnrollmentByCourseAndStudent(ctx context.Context, courseID, studentID string) (Enrollment, error)
		UpdateEnrollmentProgress(ctx context.Context, id string, completedLessonIDs []string, progress int) (Enrollment, error)
	}

	ServiceInterface interface {
		Enroll(ctx context.Context, courseID, studentID string) (Enrollment, error)
		QueryAll(ctx context.Context) ([]Enrollment, error)
		GetByCourseAndStudent(ctx context.Context, courseID, studentID string) (Enrollment, error)
		// CompleteLesson marks a lesson completed and recomputes progress.
		// The returned bool reports whether anything changed; repeating a
		// lesson ID is a no-op.
		CompleteLesson(ctx context.Context, courseID, studentID, lessonID string) (Enrollment, bool, error)
	}

	service struct {
		repo    Repository
		crsRepo course.Repository
		usrRepo user.Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, crsRepo course.Repository, usrRepo user.Repository, mailSvc core.EmailService) ServiceInterface {
	return &service{
		repo:    repo,
		crsRepo: crsRepo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
	}
}

// Enroll inserts a new enrollment row. No duplicate pre-check happens here;
// uniqueness of (course, student) is the store's concern.
func (svc *service) Enroll(ctx context.Context, courseID, studentID string) (Enrollment, error) {
	if _, err := svc.crsRepo.GetCourseByID(ctx, courseID); err != nil {
		return Enrollment{}, err
	}

	enr := Enrollment{
		CourseID:           courseID,
		StudentID:          studentID,
		Progress:           0,
		CompletedLessonIDs: []string{},
		EnrolledAt:         time.Now().UTC(),
	}
	enr, err := svc.repo.CreateEnrollment(ctx, enr)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	svc.sendWelcomeMail(ctx, enr)
	return enr, nil
}

func (svc *service) sendWelcomeMail(ctx context.Context, enr Enrollment) {
	usr, err := svc.usrRepo.GetUserByID(ctx, enr.StudentID)
	if err != nil {
		return
	}
	crs, err := svc.crsRepo.GetCourseByID(ctx, enr.CourseID)
	if err != nil {
		return
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.DisplayName(), Address: usr.Email}},
		Subject:      "Enrollment confirmed: " + crs.Title,
		TemplateName: "enrollment-welcome",
		TemplateData: struct {
			StudentName string
			CourseTitle string
		}{
			StudentName: usr.DisplayName(),
			CourseTitle: crs.Title,
		},
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *service) QueryAll(ctx context.Context) ([]Enrollment, error) {
	return svc.repo.QueryAllEnrollments(ctx)
}

func (svc *service) GetByCourseAndStudent(ctx context.Context, courseID, studentID string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByCourseAndStudent(ctx, courseID, studentID)
}

func (svc *service) CompleteLesson(ctx context.Context, courseID, studentID, lessonID string) (Enrollment, bool, error) {
	enr, err := svc.repo.GetEnrollmentByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		return Enrollment{}, false, err
	}
	if enr.Completed(lessonID) {
		return enr, false, nil
	}

	crs, err := svc.crsRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, false, errors.Wrap(err, "fetching course")
	}

	completed := append(append([]string{}, enr.CompletedLessonIDs...), lessonID)
	progress := ComputeProgress(crs, completed)

	enr, err = svc.repo.UpdateEnrollmentProgress(ctx, enr.ID, completed, progress)
	if err != nil {
		return Enrollment{}, false, errors.Wrap(err, "updating progress")
	}
	return enr, true, nil
}
