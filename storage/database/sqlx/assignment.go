package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/assignment"
)

type (
	assignmentRow struct {
		ID          string    `db:"id"`
		CourseID    string    `db:"course_id"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		DueDate     null.Time `db:"due_date"`
		TotalPoints int       `db:"total_points"`
		CreatedAt   time.Time `db:"created_at"`
	}

	submissionRow struct {
		ID           string      `db:"id"`
		AssignmentID string      `db:"assignment_id"`
		StudentID    string      `db:"student_id"`
		Content      string      `db:"content"`
		Grade        null.Int    `db:"grade"`
		Feedback     null.String `db:"feedback"`
		Status       string      `db:"status"`
		SubmittedAt  time.Time   `db:"submitted_at"`
	}

	courseSubmissionRow struct {
		submissionRow
		AssignmentTitle string      `db:"assignment_title"`
		StudentName     null.String `db:"student_name"`
		StudentEmail    string      `db:"student_email"`
	}
)

func (row assignmentRow) unpack() assignment.Assignment {
	return assignment.Assignment{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		Description: row.Description,
		DueDate:     row.DueDate,
		TotalPoints: row.TotalPoints,
		CreatedAt:   row.CreatedAt,
	}
}

func (row submissionRow) unpack() assignment.Submission {
	return assignment.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		StudentID:    row.StudentID,
		Content:      row.Content,
		Grade:        row.Grade,
		Feedback:     row.Feedback,
		Status:       row.Status,
		SubmittedAt:  row.SubmittedAt,
	}
}

type assignmentRepository struct {
	db core.DBExecutor
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db core.DBExecutor) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	asg.ID = uuid.NewString()
	row := assignmentRow{
		ID:          asg.ID,
		CourseID:    asg.CourseID,
		Title:       asg.Title,
		Description: asg.Description,
		DueDate:     asg.DueDate,
		TotalPoints: asg.TotalPoints,
		CreatedAt:   asg.CreatedAt.UTC(),
	}
	q := `
		INSERT INTO assignments (id, course_id, title, description, due_date, total_points, created_at)
		VALUES (:id, :course_id, :title, :description, :due_date, :total_points, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo assignmentRepository) QueryAssignmentsByCourse(ctx context.Context, courseID string) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	q := `SELECT * FROM assignments WHERE course_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.unpack())
	}
	return assignments, nil
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return nil
}

func (repo assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	sub.ID = uuid.NewString()
	row := submissionRow{
		ID:           sub.ID,
		AssignmentID: sub.AssignmentID,
		StudentID:    sub.StudentID,
		Content:      sub.Content,
		Grade:        sub.Grade,
		Feedback:     sub.Feedback,
		Status:       sub.Status,
		SubmittedAt:  sub.SubmittedAt.UTC(),
	}
	q := `
		INSERT INTO submissions (id, assignment_id, student_id, content, grade, feedback, status, submitted_at)
		VALUES (:id, :assignment_id, :student_id, :content, :grade, :feedback, :status, :submitted_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return assignment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo assignmentRepository) QuerySubmissionsByCourse(ctx context.Context, courseID string) ([]assignment.CourseSubmission, error) {
	var rows []courseSubmissionRow
	q := `
		SELECT s.*, a.title AS assignment_title, p.name AS student_name, p.email AS student_email
		FROM submissions s
		JOIN assignments a ON a.id = s.assignment_id
		JOIN profiles p ON p.id = s.student_id
		WHERE a.course_id = $1
		ORDER BY s.submitted_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]assignment.CourseSubmission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, assignment.CourseSubmission{
			Submission:      row.submissionRow.unpack(),
			AssignmentTitle: row.AssignmentTitle,
			StudentName:     row.StudentName.String,
			StudentEmail:    row.StudentEmail,
		})
	}
	return subs, nil
}

func (repo assignmentRepository) GradeSubmission(ctx context.Context, id string, grade int, feedback string) (assignment.Submission, error) {
	var row submissionRow
	q := `
		UPDATE submissions
		SET grade = $1, feedback = $2, status = $3
		WHERE id = $4
		RETURNING *`
	err := repo.db.GetContext(ctx, &row, q, grade, feedback, assignment.StatusGraded, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "grading submission")
	}
	return row.unpack(), nil
}
