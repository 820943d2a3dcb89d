package enrollment

import (
	"math"

	"github.com/talimhq/talim/core/course"
)

// ComputeProgress returns the completion percentage of a course given the set
// of completed lesson IDs. Only lessons that actually belong to the course
// count; a course with no lessons is vacuously complete (100). The result is
// monotonic in the completed set since completion is append-only.
func ComputeProgress(crs course.Course, completedLessonIDs []string) int {
	total := crs.TotalLessons()
	if total == 0 {
		return 100
	}

	lessons := crs.LessonIDs()
	var done int
	for _, id := range completedLessonIDs {
		if _, ok := lessons[id]; ok {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
