package assignment

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		// QueryAssignmentsByCourse returns a course's assignments, newest first.
		QueryAssignmentsByCourse(ctx context.Context, courseID string) ([]Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		// QuerySubmissionsByCourse returns every submission to any of the
		// course's assignments, joined with student identity.
		QuerySubmissionsByCourse(ctx context.Context, courseID string) ([]CourseSubmission, error)
		GradeSubmission(ctx context.Context, id string, grade int, feedback string) (Submission, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, courseID string, na NewAssignment) (Assignment, error)
		QueryByCourse(ctx context.Context, courseID string) ([]Assignment, error)
		Delete(ctx context.Context, id string) error
		Submit(ctx context.Context, assignmentID, studentID string, ns NewSubmission) (Submission, error)
		QuerySubmissionsByCourse(ctx context.Context, courseID string) ([]CourseSubmission, error)
		Grade(ctx context.Context, submissionID string, gs GradeSubmission) (Submission, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) ServiceInterface {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, courseID string, na NewAssignment) (Assignment, error) {
	asg := Assignment{
		CourseID:    courseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate,
		TotalPoints: na.TotalPoints,
		CreatedAt:   time.Now().UTC(),
	}
	if asg.TotalPoints == 0 {
		asg.TotalPoints = 100
	}
	return svc.repo.CreateAssignment(ctx, asg)
}

func (svc *service) QueryByCourse(ctx context.Context, courseID string) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsByCourse(ctx, courseID)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteAssignment(ctx, id)
}

func (svc *service) Submit(ctx context.Context, assignmentID, studentID string, ns NewSubmission) (Submission, error) {
	sub := Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      ns.Content,
		Status:       StatusSubmitted,
		SubmittedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateSubmission(ctx, sub)
}

func (svc *service) QuerySubmissionsByCourse(ctx context.Context, courseID string) ([]CourseSubmission, error) {
	return svc.repo.QuerySubmissionsByCourse(ctx, courseID)
}

// Grade records a grade and marks the submission graded. Whether the grade
// exceeds the assignment's total points is not enforced at this layer.
func (svc *service) Grade(ctx context.Context, submissionID string, gs GradeSubmission) (Submission, error) {
	return svc.repo.GradeSubmission(ctx, submissionID, gs.Grade, gs.Feedback)
}
