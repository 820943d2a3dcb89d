package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/talimhq/talim/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	asg.ID = uuid.NewString()
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) QueryAssignmentsByCourse(ctx context.Context, courseID string) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	assignments := make([]assignment.Assignment, 0)
	for _, asg := range repo.db.assignments {
		if asg.CourseID == courseID {
			assignments = append(assignments, *asg)
		}
	}
	// newest first
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].CreatedAt.After(assignments[j].CreatedAt) })
	return assignments, nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.assignments, id)
	for subID, sub := range repo.db.submissions {
		if sub.AssignmentID == id {
			delete(repo.db.submissions, subID)
		}
	}
	return nil
}

func (repo *assignmentRepository) CreateSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub.ID = uuid.NewString()
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *assignmentRepository) QuerySubmissionsByCourse(ctx context.Context, courseID string) ([]assignment.CourseSubmission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]assignment.CourseSubmission, 0)
	for _, sub := range repo.db.submissions {
		asg, ok := repo.db.assignments[sub.AssignmentID]
		if !ok || asg.CourseID != courseID {
			continue
		}
		cs := assignment.CourseSubmission{Submission: *sub, AssignmentTitle: asg.Title}
		if usr, ok := repo.db.users[sub.StudentID]; ok {
			cs.StudentName = usr.DisplayName()
			cs.StudentEmail = usr.Email
		}
		subs = append(subs, cs)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *assignmentRepository) GradeSubmission(ctx context.Context, id string, grade int, feedback string) (assignment.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, ok := repo.db.submissions[id]
	if !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	sub.Grade = null.IntFrom(grade)
	sub.Feedback = null.StringFrom(feedback)
	sub.Status = assignment.StatusGraded
	return *sub, nil
}
