package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talimhq/talim/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs.ID = uuid.NewString()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, *crs)
	}
	// newest first, matching the psql store
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}

	crs.InstructorID = orig.InstructorID
	crs.CreatedAt = orig.CreatedAt
	crs.UpdatedAt = time.Now().UTC()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

// DeleteCourse cascades to the course's enrollments and assignments, the way
// the psql foreign keys do.
func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.courses, id)
	for enrID, enr := range repo.db.enrollments {
		if enr.CourseID == id {
			delete(repo.db.enrollments, enrID)
		}
	}
	for asgID, asg := range repo.db.assignments {
		if asg.CourseID != id {
			continue
		}
		delete(repo.db.assignments, asgID)
		for subID, sub := range repo.db.submissions {
			if sub.AssignmentID == asgID {
				delete(repo.db.submissions, subID)
			}
		}
	}
	return nil
}
