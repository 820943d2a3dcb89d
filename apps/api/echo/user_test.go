package echoapi

import (
	"net/http"
	"testing"

	"github.com/talimhq/talim/core/user"
)

func Test_userApi_login(t *testing.T) {
	app := newTestApp(t)

	student := createTestUser(t, app.usrRepo, "Hero", "Mukendi", "hero@test.cd", user.RoleStudent, "LordOfTheRings", true)
	naughty := createTestUser(t, app.usrRepo, "N", "Dog", "ndog@test.cd", user.RoleStudent, "secret", false)
	_ = naughty

	tests := []httpTest{
		{
			name:     "ok",
			body:     []byte(`{"email": "hero@test.cd", "password": "LordOfTheRings"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "email is normalized",
			body:     []byte(`{"email": " Hero@Test.CD ", "password": "LordOfTheRings"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong password",
			body:     []byte(`{"email": "hero@test.cd", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"error": "authentication failed"}),
		},
		{
			name:     "unknown email",
			body:     []byte(`{"email": "ghost@test.cd", "password": "LordOfTheRings"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"error": "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     []byte(`{"email": "ndog@test.cd", "password": "secret"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, map[string]string{"error": "account deactivated"}),
		},
		{
			name:     "missing fields",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(http.MethodPost, "/v1/users/login", "", tt.body)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				decodeBody(t, rec, &resp)
				if resp.Token == "" {
					t.Error("login response has no token")
				}
				if resp.User == nil || resp.User.ID != student.ID {
					t.Errorf("login response user = %+v; want %v", resp.User, student.ID)
				}
			}
		})
	}
}

func Test_userApi_signup(t *testing.T) {
	app := newTestApp(t)

	body := []byte(`{
		"first_name": "Awa",
		"last_name": "Diop",
		"email": "awa@test.sn",
		"role": "student",
		"password": "S3cretPass",
		"password_confirm": "S3cretPass"
	}`)
	rec := app.request(http.MethodPost, "/v1/users/signup", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp LoginResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Error("signup response has no token")
	}
	if resp.User == nil || !resp.User.IsStudent() || !resp.User.IsActive {
		t.Errorf("signup response user = %+v; want active student", resp.User)
	}

	// duplicate email is rejected
	rec = app.request(http.MethodPost, "/v1/users/signup", "", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate signup code = %v; want %v; body = %v", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	// password mismatch is rejected
	bad := []byte(`{
		"first_name": "Awa",
		"last_name": "Diop",
		"email": "awa2@test.sn",
		"role": "student",
		"password": "S3cretPass",
		"password_confirm": "different"
	}`)
	rec = app.request(http.MethodPost, "/v1/users/signup", "", bad)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("mismatch signup code = %v; want %v", rec.Code, http.StatusBadRequest)
	}
}

func Test_userApi_userQuery(t *testing.T) {
	app := newTestApp(t)

	instructor := createTestUser(t, app.usrRepo, "Kande", "Traore", "kande@test.ml", user.RoleInstructor, "", true)
	student := createTestUser(t, app.usrRepo, "Hero", "Mukendi", "hero@test.cd", user.RoleStudent, "", true)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized},
		{name: "students denied", path: "/v1/users", token: getToken(t, student), wantCode: http.StatusForbidden},
		{
			name:     "instructors see everyone",
			path:     "/v1/users",
			token:    getToken(t, instructor),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{instructor, student}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(http.MethodGet, tt.path, tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieveSelf(t *testing.T) {
	app := newTestApp(t)

	student := createTestUser(t, app.usrRepo, "Hero", "Mukendi", "hero@test.cd", user.RoleStudent, "", true)

	rec := app.request(http.MethodGet, "/v1/users/me", getToken(t, student))
	tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, student)}
	checkCodeAndData(t, tt, rec)
}

func Test_userApi_updateSelf(t *testing.T) {
	app := newTestApp(t)

	student := createTestUser(t, app.usrRepo, "Hero", "Mukendi", "hero@test.cd", user.RoleStudent, "", true)

	body := []byte(`{"bio": "Lifelong learner", "is_active": false}`)
	rec := app.request(http.MethodPut, "/v1/users/me", getToken(t, student), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
	}

	var usr user.User
	decodeBody(t, rec, &usr)
	if usr.Bio != "Lifelong learner" {
		t.Errorf("bio = %q; want %q", usr.Bio, "Lifelong learner")
	}
	// is_active cannot be self-served
	if !usr.IsActive {
		t.Error("user deactivated themselves through /me")
	}
}

func Test_userApi_detail(t *testing.T) {
	app := newTestApp(t)

	instructor := createTestUser(t, app.usrRepo, "Kande", "Traore", "kande@test.ml", user.RoleInstructor, "", true)
	student := createTestUser(t, app.usrRepo, "Hero", "Mukendi", "hero@test.cd", user.RoleStudent, "", true)
	other := createTestUser(t, app.usrRepo, "Awa", "Diop", "awa@test.sn", user.RoleStudent, "", true)

	instructorToken := getToken(t, instructor)
	studentToken := getToken(t, student)

	t.Run("student reads own record", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/users/"+student.ID, studentToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, student)}, rec)
	})

	t.Run("student cannot read others", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/users/"+other.ID, studentToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)
	})

	t.Run("instructor deactivates a student", func(t *testing.T) {
		body := []byte(`{"is_active": false}`)
		rec := app.request(http.MethodPut, "/v1/users/"+other.ID, instructorToken, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var usr user.User
		decodeBody(t, rec, &usr)
		if usr.IsActive {
			t.Error("student still active")
		}
	})

	t.Run("student cannot update others", func(t *testing.T) {
		rec := app.request(http.MethodPut, "/v1/users/"+other.ID, studentToken, []byte(`{}`))
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)
	})

	t.Run("instructor cannot delete themselves", func(t *testing.T) {
		rec := app.request(http.MethodDelete, "/v1/users/"+instructor.ID, instructorToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)
	})

	t.Run("instructor deletes a student", func(t *testing.T) {
		rec := app.request(http.MethodDelete, "/v1/users/"+other.ID, instructorToken)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		rec = app.request(http.MethodGet, "/v1/users/"+other.ID, instructorToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app := newTestApp(t)

	student := createTestUser(t, app.usrRepo, "Hero", "Mukendi", "hero@test.cd", user.RoleStudent, "", true)

	rec := app.request(http.MethodPost, "/v1/users/token-refresh", getToken(t, student))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Error("refresh response has no token")
	}
}
