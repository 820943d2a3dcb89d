// Package analytics derives instructor-facing rollups from catalog and
// enrollment data. Everything here is a pure projection: no storage access,
// recompute on every call.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
)

// trailing window of the monthly enrollment histogram
const histogramMonths = 6

type (
	MonthlyCount struct {
		Month string `json:"month"` // short month name, e.g. "Aug"
		Year  int    `json:"year"`
		Count int    `json:"count"`
	}

	Summary struct {
		TotalEnrollments int             `json:"total_enrollments"`
		ActiveLearners   int             `json:"active_learners"`
		AvgProgress      int             `json:"avg_progress"`
		EstimatedRevenue float64         `json:"estimated_revenue"`
		Monthly          []MonthlyCount  `json:"monthly"`
		TopCourses       []course.Course `json:"top_courses"`
	}
)

// Summarize rolls up the instructor's courses and their enrollments as of ref.
// unitPrice is the flat per-enrollment price backing the revenue estimate.
func Summarize(
	courses []course.Course,
	enrollments []enrollment.Enrollment,
	instructorID string,
	unitPrice float64,
	ref time.Time,
) Summary {
	owned := make([]course.Course, 0, len(courses))
	ownedIDs := make(map[string]struct{})
	for _, crs := range courses {
		if crs.InstructorID == instructorID {
			owned = append(owned, crs)
			ownedIDs[crs.ID] = struct{}{}
		}
	}

	mine := make([]enrollment.Enrollment, 0, len(enrollments))
	for _, enr := range enrollments {
		if _, ok := ownedIDs[enr.CourseID]; ok {
			mine = append(mine, enr)
		}
	}

	var active, totalProgress int
	for _, enr := range mine {
		if enr.Progress > 0 && enr.Progress < 100 {
			active++
		}
		totalProgress += enr.Progress
	}
	var avgProgress int
	if len(mine) > 0 {
		avgProgress = int(math.Round(float64(totalProgress) / float64(len(mine))))
	}

	return Summary{
		TotalEnrollments: len(mine),
		ActiveLearners:   active,
		AvgProgress:      avgProgress,
		EstimatedRevenue: float64(len(mine)) * unitPrice,
		Monthly:          monthlyHistogram(mine, ref),
		TopCourses:       topCourses(owned),
	}
}

// monthlyHistogram buckets enrollments into the trailing 6 calendar months
// ending at ref's month, oldest first. Buckets match on calendar month and
// year, so the window wraps year boundaries correctly.
func monthlyHistogram(enrollments []enrollment.Enrollment, ref time.Time) []MonthlyCount {
	buckets := make([]MonthlyCount, 0, histogramMonths)
	for i := histogramMonths - 1; i >= 0; i-- {
		// time.Date normalizes out-of-range months, wrapping the year
		d := time.Date(ref.Year(), ref.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)

		var count int
		for _, enr := range enrollments {
			if enr.EnrolledAt.Month() == d.Month() && enr.EnrolledAt.Year() == d.Year() {
				count++
			}
		}
		buckets = append(buckets, MonthlyCount{
			Month: d.Month().String()[:3],
			Year:  d.Year(),
			Count: count,
		})
	}
	return buckets
}

// topCourses sorts descending by enrollment count, ties keeping their original
// order, truncated to 5.
func topCourses(owned []course.Course) []course.Course {
	top := make([]course.Course, len(owned))
	copy(top, owned)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].StudentsEnrolled > top[j].StudentsEnrolled
	})
	if len(top) > 5 {
		top = top[:5]
	}
	return top
}
