package echoapi

import (
	"net/http"
	"testing"

	"github.com/talimhq/talim/core/assignment"
	"github.com/talimhq/talim/core/user"
)

func Test_assignmentApi_lifecycle(t *testing.T) {
	app := newTestApp(t)

	instructor := createTestUser(t, app.usrRepo, "Kande", "Traore", "kande@test.ml", user.RoleInstructor, "", true)
	rival := createTestUser(t, app.usrRepo, "Moussa", "Keita", "moussa@test.ml", user.RoleInstructor, "", true)
	student := createTestUser(t, app.usrRepo, "Hero", "Mukendi", "hero@test.cd", user.RoleStudent, "", true)

	crs := createTestCourse(t, app.crsRepo, instructor.ID, "Go 101", nil)

	instructorToken := getToken(t, instructor)
	rivalToken := getToken(t, rival)
	studentToken := getToken(t, student)

	var asg assignment.Assignment

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"title": "Build a CLI", "total_points": 100}`)
		rec := app.request(http.MethodPost, "/v1/courses/"+crs.ID+"/assignments", instructorToken, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &asg)
		if asg.CourseID != crs.ID || asg.Title != "Build a CLI" {
			t.Errorf("assignment = %+v", asg)
		}
	})

	t.Run("only the course owner creates", func(t *testing.T) {
		body := []byte(`{"title": "Sneaky"}`)
		rec := app.request(http.MethodPost, "/v1/courses/"+crs.ID+"/assignments", rivalToken, body)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)
	})

	t.Run("students see course assignments", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/courses/"+crs.ID+"/assignments", studentToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, []assignment.Assignment{asg})}, rec)
	})

	var sub assignment.Submission

	t.Run("student submits", func(t *testing.T) {
		body := []byte(`{"content": "https://github.com/hero/cli"}`)
		rec := app.request(http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions", studentToken, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		decodeBody(t, rec, &sub)
		if sub.AssignmentID != asg.ID || sub.StudentID != student.ID {
			t.Errorf("submission = %+v", sub)
		}
		if sub.Status != assignment.StatusSubmitted {
			t.Errorf("status = %q; want %q", sub.Status, assignment.StatusSubmitted)
		}
	})

	t.Run("instructors cannot submit", func(t *testing.T) {
		body := []byte(`{"content": "nope"}`)
		rec := app.request(http.MethodPost, "/v1/assignments/"+asg.ID+"/submissions", instructorToken, body)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)
	})

	t.Run("owner reviews submissions", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/courses/"+crs.ID+"/submissions", instructorToken)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var subs []assignment.CourseSubmission
		decodeBody(t, rec, &subs)
		if len(subs) != 1 {
			t.Fatalf("got %d submissions; want 1", len(subs))
		}
		if subs[0].AssignmentTitle != asg.Title {
			t.Errorf("assignmentTitle = %q; want %q", subs[0].AssignmentTitle, asg.Title)
		}
		if subs[0].StudentName != student.DisplayName() {
			t.Errorf("studentName = %q; want %q", subs[0].StudentName, student.DisplayName())
		}
	})

	t.Run("rival cannot review submissions", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/courses/"+crs.ID+"/submissions", rivalToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)
	})

	t.Run("grade", func(t *testing.T) {
		body := []byte(`{"grade": 92, "feedback": "Solid work"}`)
		rec := app.request(http.MethodPut, "/v1/submissions/"+sub.ID+"/grade", instructorToken, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var graded assignment.Submission
		decodeBody(t, rec, &graded)
		if !graded.Grade.Valid || graded.Grade.Int != 92 {
			t.Errorf("grade = %+v; want 92", graded.Grade)
		}
		if graded.Status != assignment.StatusGraded {
			t.Errorf("status = %q; want %q", graded.Status, assignment.StatusGraded)
		}
		if !graded.Feedback.Valid || graded.Feedback.String != "Solid work" {
			t.Errorf("feedback = %+v; want %q", graded.Feedback, "Solid work")
		}
	})

	t.Run("grade unknown submission", func(t *testing.T) {
		body := []byte(`{"grade": 1}`)
		rec := app.request(http.MethodPut, "/v1/submissions/deadbeef/grade", instructorToken, body)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.request(http.MethodDelete, "/v1/assignments/"+asg.ID, instructorToken)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		rec = app.request(http.MethodGet, "/v1/courses/"+crs.ID+"/assignments", studentToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)
	})
}
