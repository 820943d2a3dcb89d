package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/enrollment"
)

// uniqueViolation is the psql error code raised by the (course_id, student_id)
// unique constraint on a duplicate enrollment.
const uniqueViolation = "23505"

type enrollmentRow struct {
	ID                 string         `db:"id"`
	CourseID           string         `db:"course_id"`
	StudentID          string         `db:"student_id"`
	Progress           int            `db:"progress"`
	CompletedLessonIDs types.JSONText `db:"completed_lesson_ids"`
	EnrolledAt         time.Time      `db:"enrolled_at"`
}

func packEnrollment(enr enrollment.Enrollment) (enrollmentRow, error) {
	if enr.CompletedLessonIDs == nil {
		enr.CompletedLessonIDs = []string{}
	}
	completed, err := json.Marshal(enr.CompletedLessonIDs)
	if err != nil {
		return enrollmentRow{}, errors.Wrap(err, "encoding completed lessons")
	}
	return enrollmentRow{
		ID:                 enr.ID,
		CourseID:           enr.CourseID,
		StudentID:          enr.StudentID,
		Progress:           enr.Progress,
		CompletedLessonIDs: completed,
		EnrolledAt:         enr.EnrolledAt.UTC(),
	}, nil
}

func (row enrollmentRow) unpack() (enrollment.Enrollment, error) {
	var completed []string
	if err := json.Unmarshal(row.CompletedLessonIDs, &completed); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "decoding completed lessons")
	}
	return enrollment.Enrollment{
		ID:                 row.ID,
		CourseID:           row.CourseID,
		StudentID:          row.StudentID,
		Progress:           row.Progress,
		CompletedLessonIDs: completed,
		EnrolledAt:         row.EnrolledAt,
	}, nil
}

type enrollmentRepository struct {
	db core.DBExecutor
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return enrollment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.ID = uuid.NewString()
	row, err := packEnrollment(enr)
	if err != nil {
		return enrollment.Enrollment{}, err
	}

	q := `
		INSERT INTO enrollments (id, course_id, student_id, progress, completed_lesson_ids, enrolled_at)
		VALUES (:id, :course_id, :student_id, :progress, :completed_lesson_ids, :enrolled_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo enrollmentRepository) QueryAllEnrollments(ctx context.Context) ([]enrollment.Enrollment, error) {
	var rows []enrollmentRow
	q := `SELECT * FROM enrollments ORDER BY enrolled_at`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enr, err := row.unpack()
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enr)
	}
	return enrollments, nil
}

func (repo enrollmentRepository) GetEnrollmentByCourseAndStudent(ctx context.Context, courseID, studentID string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := `SELECT * FROM enrollments WHERE course_id = $1 AND student_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, courseID, studentID); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "finding enrollment")
	}
	return row.unpack()
}

func (repo enrollmentRepository) UpdateEnrollmentProgress(ctx context.Context, id string, completedLessonIDs []string, progress int) (enrollment.Enrollment, error) {
	if completedLessonIDs == nil {
		completedLessonIDs = []string{}
	}
	completed, err := json.Marshal(completedLessonIDs)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "encoding completed lessons")
	}

	var row enrollmentRow
	q := `
		UPDATE enrollments
		SET completed_lesson_ids = $1, progress = $2
		WHERE id = $3
		RETURNING *`
	if err = repo.db.GetContext(ctx, &row, q, types.JSONText(completed), progress, id); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "updating enrollment progress")
	}
	return row.unpack()
}
