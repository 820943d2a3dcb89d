// Package inmemdb provides map-backed repositories for tests and local
// development. Unlike the psql store it enforces no relational constraints:
// in particular nothing stops a duplicate (course, student) enrollment here.
package inmemdb

import (
	"sync"

	"github.com/talimhq/talim/core/assignment"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
	"github.com/talimhq/talim/core/user"
)

type DB struct {
	mutex       sync.RWMutex
	users       map[string]*user.User
	courses     map[string]*course.Course
	enrollments map[string]*enrollment.Enrollment
	assignments map[string]*assignment.Assignment
	submissions map[string]*assignment.Submission
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		courses:     make(map[string]*course.Course),
		enrollments: make(map[string]*enrollment.Enrollment),
		assignments: make(map[string]*assignment.Assignment),
		submissions: make(map[string]*assignment.Submission),
	}
}
