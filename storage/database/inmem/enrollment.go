package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/talimhq/talim/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

// CreateEnrollment inserts without a duplicate check; uniqueness of
// (course, student) is a psql constraint, not replicated here.
func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr.ID = uuid.NewString()
	if enr.CompletedLessonIDs == nil {
		enr.CompletedLessonIDs = []string{}
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) QueryAllEnrollments(ctx context.Context) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0, len(repo.db.enrollments))
	for _, enr := range repo.db.enrollments {
		enrollments = append(enrollments, *enr)
	}
	sort.Slice(enrollments, func(i, j int) bool {
		return enrollments[i].EnrolledAt.Before(enrollments[j].EnrolledAt)
	})
	return enrollments, nil
}

func (repo *enrollmentRepository) GetEnrollmentByCourseAndStudent(ctx context.Context, courseID, studentID string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID && enr.StudentID == studentID {
			return *enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) UpdateEnrollmentProgress(ctx context.Context, id string, completedLessonIDs []string, progress int) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr, ok := repo.db.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if completedLessonIDs == nil {
		completedLessonIDs = []string{}
	}
	enr.CompletedLessonIDs = completedLessonIDs
	enr.Progress = progress
	return *enr, nil
}
