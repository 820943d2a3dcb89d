package echoapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/talimhq/talim/core/analytics"
	"github.com/talimhq/talim/core/course"
	"github.com/talimhq/talim/core/enrollment"
	"github.com/talimhq/talim/core/user"
)

func Test_analyticsApi_summary(t *testing.T) {
	app := newTestApp(t)

	instructor := createTestUser(t, app.usrRepo, "Kande", "Traore", "kande@test.ml", user.RoleInstructor, "", true)
	rival := createTestUser(t, app.usrRepo, "Moussa", "Keita", "moussa@test.ml", user.RoleInstructor, "", true)
	hero := createTestUser(t, app.usrRepo, "Hero", "Mukendi", "hero@test.cd", user.RoleStudent, "", true)
	awa := createTestUser(t, app.usrRepo, "Awa", "Diop", "awa@test.sn", user.RoleStudent, "", true)

	crs := createTestCourse(t, app.crsRepo, instructor.ID, "Go 101", []course.Module{
		{Title: "Basics", Lessons: []course.Lesson{{Title: "Hello", DurationMinutes: 10}}},
	})
	// a rival's course must not leak into the summary
	createTestCourse(t, app.crsRepo, rival.ID, "Rust 101", nil)

	for _, stu := range []user.User{hero, awa} {
		body := []byte(fmt.Sprintf(`{"course_id": %q}`, crs.ID))
		if rec := app.request(http.MethodPost, "/v1/enrollments", getToken(t, stu), body); rec.Code != http.StatusCreated {
			t.Fatalf("enroll: code = %v; body = %v", rec.Code, rec.Body.String())
		}
	}

	t.Run("students denied", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/analytics", getToken(t, hero))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)
	})

	t.Run("summary", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/analytics", getToken(t, instructor))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}

		var summary analytics.Summary
		decodeBody(t, rec, &summary)
		if summary.TotalEnrollments != 2 {
			t.Errorf("totalEnrollments = %v; want 2", summary.TotalEnrollments)
		}
		if want := 2 * app.conf.EnrollmentUnitPrice; math.Abs(summary.EstimatedRevenue-want) > 0.001 {
			t.Errorf("estimatedRevenue = %v; want %v", summary.EstimatedRevenue, want)
		}
		if len(summary.Monthly) != 6 {
			t.Errorf("monthly buckets = %v; want 6", len(summary.Monthly))
		}
		if len(summary.TopCourses) != 1 || summary.TopCourses[0].ID != crs.ID {
			t.Fatalf("topCourses = %+v; want just %v", summary.TopCourses, crs.ID)
		}
		if summary.TopCourses[0].StudentsEnrolled != 2 {
			t.Errorf("studentsEnrolled = %v; want 2", summary.TopCourses[0].StudentsEnrolled)
		}
	})

	t.Run("rival sees an empty board", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/analytics", getToken(t, rival))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var summary analytics.Summary
		decodeBody(t, rec, &summary)
		if summary.TotalEnrollments != 0 {
			t.Errorf("totalEnrollments = %v; want 0", summary.TotalEnrollments)
		}
	})
}

// Enrollments are stored UTC, so the histogram reference must be taken in UTC
// too; a local-zone reference near a month boundary would mislabel the
// current bucket.
func Test_analyticsApi_summaryMonthBoundary(t *testing.T) {
	app := newTestApp(t)

	prev := analyticsNowFunc
	t.Cleanup(func() { analyticsNowFunc = prev })
	// Feb 1st 03:00 at UTC+5 is still Jan 31st 22:00 UTC
	analyticsNowFunc = func() time.Time {
		return time.Date(2024, time.February, 1, 3, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	}

	instructor := createTestUser(t, app.usrRepo, "Kande", "Traore", "kande@test.ml", user.RoleInstructor, "", true)
	student := createTestUser(t, app.usrRepo, "Hero", "Mukendi", "hero@test.cd", user.RoleStudent, "", true)
	crs := createTestCourse(t, app.crsRepo, instructor.ID, "Go 101", nil)

	_, err := app.enrRepo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		CourseID:   crs.ID,
		StudentID:  student.ID,
		EnrolledAt: time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := app.request(http.MethodGet, "/v1/analytics", getToken(t, instructor))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
	}

	var summary analytics.Summary
	decodeBody(t, rec, &summary)
	if len(summary.Monthly) != 6 {
		t.Fatalf("monthly buckets = %v; want 6", len(summary.Monthly))
	}
	last := summary.Monthly[5]
	if last.Month != "Jan" || last.Year != 2024 {
		t.Fatalf("current bucket = %s %d; want Jan 2024", last.Month, last.Year)
	}
	if last.Count != 1 {
		t.Errorf("current bucket count = %v; want 1", last.Count)
	}
}
