package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/talimhq/talim/core"
)

type Enrollment struct {
	ID                 string    `json:"id"`
	CourseID           string    `json:"course_id"`
	StudentID          string    `json:"student_id"`
	Progress           int       `json:"progress"` // 0-100
	CompletedLessonIDs []string  `json:"completed_lesson_ids"`
	EnrolledAt         time.Time `json:"enrolled_at"` // UTC
}

// Completed reports whether the given lesson has already been completed.
func (e Enrollment) Completed(lessonID string) bool {
	for _, id := range e.CompletedLessonIDs {
		if id == lessonID {
			return true
		}
	}
	return false
}

// NewEnrollment contains information needed to enroll a student in a course.
type NewEnrollment struct {
	CourseID  string `json:"course_id" validate:"required,uuid4"`
	StudentID string `json:"student_id" validate:"omitempty,uuid4"` // defaults to the acting student
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.CourseID = core.CleanString(ne.CourseID)
	ne.StudentID = core.CleanString(ne.StudentID)
	return validate.Struct(ne)
}

// ProgressUpdate marks a lesson of a course completed for the acting student.
type ProgressUpdate struct {
	CourseID string `json:"course_id" validate:"required,uuid4"`
	LessonID string `json:"lesson_id" validate:"required"`
}

func (pu *ProgressUpdate) Validate(validate *validator.Validate) error {
	pu.CourseID = core.CleanString(pu.CourseID)
	pu.LessonID = core.CleanString(pu.LessonID)
	return validate.Struct(pu)
}
