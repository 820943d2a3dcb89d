package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
)

const instructorID = "11111111-1111-4111-8111-111111111111"

func enrolled(courseID string, progress int, at time.Time) enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:         courseID + at.String(),
		CourseID:   courseID,
		StudentID:  "stu",
		Progress:   progress,
		EnrolledAt: at,
	}
}

func TestSummarizeStats(t *testing.T) {
	ref := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	courses := []course.Course{
		{ID: "c1", InstructorID: instructorID},
		{ID: "c2", InstructorID: instructorID},
		{ID: "other", InstructorID: "someone-else"},
	}
	enrollments := []enrollment.Enrollment{
		enrolled("c1", 0, ref),
		enrolled("c1", 40, ref),
		enrolled("c2", 100, ref),
		enrolled("other", 50, ref), // not ours; excluded from every stat
	}

	sum := Summarize(courses, enrollments, instructorID, 49.99, ref)

	assert.Equal(t, 3, sum.TotalEnrollments)
	assert.Equal(t, 1, sum.ActiveLearners) // only 0 < p < 100
	assert.Equal(t, 47, sum.AvgProgress)   // round(140/3)
	assert.InDelta(t, 3*49.99, sum.EstimatedRevenue, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	ref := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	sum := Summarize(nil, nil, instructorID, 49.99, ref)

	assert.Equal(t, 0, sum.TotalEnrollments)
	assert.Equal(t, 0, sum.ActiveLearners)
	assert.Equal(t, 0, sum.AvgProgress) // no division by zero
	assert.Equal(t, 0.0, sum.EstimatedRevenue)
	assert.Len(t, sum.Monthly, 6)
	assert.Empty(t, sum.TopCourses)
}

// the trailing window must wrap year boundaries: 5 months before Jan'24 is Aug'23
func TestMonthlyHistogramYearWrap(t *testing.T) {
	ref := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	courses := []course.Course{{ID: "c1", InstructorID: instructorID}}
	enrollments := []enrollment.Enrollment{
		enrolled("c1", 10, time.Date(2023, time.August, 2, 0, 0, 0, 0, time.UTC)),
		enrolled("c1", 10, time.Date(2023, time.August, 30, 0, 0, 0, 0, time.UTC)),
		enrolled("c1", 10, time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC)),
		enrolled("c1", 10, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)),
		enrolled("c1", 10, time.Date(2022, time.August, 2, 0, 0, 0, 0, time.UTC)),  // right month, wrong year
		enrolled("c1", 10, time.Date(2023, time.July, 31, 23, 0, 0, 0, time.UTC)), // just outside the window
	}

	sum := Summarize(courses, enrollments, instructorID, 1, ref)

	want := []MonthlyCount{
		{Month: "Aug", Year: 2023, Count: 2},
		{Month: "Sep", Year: 2023, Count: 0},
		{Month: "Oct", Year: 2023, Count: 0},
		{Month: "Nov", Year: 2023, Count: 0},
		{Month: "Dec", Year: 2023, Count: 1},
		{Month: "Jan", Year: 2024, Count: 1},
	}
	assert.Equal(t, want, sum.Monthly)
}

func TestTopCourses(t *testing.T) {
	mkCourse := func(id string, students int) course.Course {
		return course.Course{ID: id, InstructorID: instructorID, StudentsEnrolled: students}
	}

	t.Run("stable ties, descending", func(t *testing.T) {
		courses := []course.Course{
			mkCourse("a", 10),
			mkCourse("b", 30),
			mkCourse("c", 30),
			mkCourse("d", 5),
		}
		sum := Summarize(courses, nil, instructorID, 1, time.Now())

		ids := make([]string, 0, len(sum.TopCourses))
		for _, crs := range sum.TopCourses {
			ids = append(ids, crs.ID)
		}
		assert.Equal(t, []string{"b", "c", "a", "d"}, ids)
	})

	t.Run("truncated to 5", func(t *testing.T) {
		courses := make([]course.Course, 0, 8)
		for i := 0; i < 8; i++ {
			courses = append(courses, mkCourse(string(rune('a'+i)), i))
		}
		sum := Summarize(courses, nil, instructorID, 1, time.Now())
		assert.Len(t, sum.TopCourses, 5)
	})
}
