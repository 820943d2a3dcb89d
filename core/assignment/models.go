package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/talimhq/talim/core"
)

// Submission statuses
const (
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

type Assignment struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     null.Time `json:"due_date"`
	TotalPoints int       `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type Submission struct {
	ID           string      `json:"id"`
	AssignmentID string      `json:"assignment_id"`
	StudentID    string      `json:"student_id"`
	Content      string      `json:"content"`
	Grade        null.Int    `json:"grade"`
	Feedback     null.String `json:"feedback"`
	Status       string      `json:"status"`
	SubmittedAt  time.Time   `json:"submitted_at"` // UTC
}

// CourseSubmission is a Submission joined with its assignment title and the
// submitting student's identity, as surfaced to the grading instructor.
type CourseSubmission struct {
	Submission
	AssignmentTitle string `json:"assignment_title"`
	StudentName     string `json:"student_name"`
	StudentEmail    string `json:"student_email"`
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     null.Time `json:"due_date"`
	TotalPoints int       `json:"total_points" validate:"gte=0"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

// NewSubmission contains a student's answer to an Assignment.
type NewSubmission struct {
	Content string `json:"content" validate:"required"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	return validate.Struct(ns)
}

// GradeSubmission records a grade and feedback on a Submission.
type GradeSubmission struct {
	Grade    int    `json:"grade" validate:"gte=0"`
	Feedback string `json:"feedback"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}
