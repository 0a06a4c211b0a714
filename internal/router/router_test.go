package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/enroll-web/internal/config"
	"github.com/stemsi/enroll-web/internal/handler"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository/repotest"
	"github.com/stemsi/enroll-web/internal/service"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	t           *testing.T
	server      *httptest.Server
	client      *http.Client
	cfg         *config.Config
	store       *repotest.Store
	students    *service.StudentService
	classes     *service.ClassService
	enrollments *service.EnrollmentService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		GinMode:       gin.TestMode,
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		SessionCookie: "enroll_session",
		BcryptCost:    bcrypt.MinCost,
	}
	log := zerolog.Nop()
	store := repotest.NewStore()
	sessions := repotest.NewSessionRepository()

	authService := service.NewAuthService(cfg, store, sessions)
	studentService := service.NewStudentService(store, cfg.BcryptCost)
	majorService := service.NewMajorService(store, log)
	classService := service.NewClassService(store)
	enrollmentService := service.NewEnrollmentService(store, log)

	if _, err := majorService.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed majors: %v", err)
	}

	handlers := &Handlers{
		Auth:       handler.NewAuthHandler(cfg, authService, studentService, log),
		Class:      handler.NewClassHandler(classService, majorService, enrollmentService, log),
		Major:      handler.NewMajorHandler(majorService),
		Enrollment: handler.NewEnrollmentHandler(classService, enrollmentService, log),
		System: handler.NewSystemHandler(map[string]handler.Pinger{
			"postgres": func(context.Context) error { return nil },
		}, log),
	}

	srv := httptest.NewServer(SetupRouter(t.Context(), cfg, authService, studentService, handlers, log))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}

	return &testApp{
		t:           t,
		server:      srv,
		client:      &http.Client{Jar: jar},
		cfg:         cfg,
		store:       store,
		students:    studentService,
		classes:     classService,
		enrollments: enrollmentService,
	}
}

// get follows redirects and returns the final response body.
func (a *testApp) get(path string) (*http.Response, string) {
	a.t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	if err != nil {
		a.t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(a.t, resp)
}

func (a *testApp) postForm(path string, values url.Values) (*http.Response, string) {
	a.t.Helper()
	resp, err := a.client.PostForm(a.server.URL+path, values)
	if err != nil {
		a.t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(a.t, resp)
}

func (a *testApp) register(username, password string) *model.Student {
	a.t.Helper()
	s, err := a.students.Register(context.Background(), model.RegisterRequest{
		Username:  username,
		Email:     username + "@wsu.edu",
		Password:  password,
		Password2: password,
		FirstName: "Sakire",
		LastName:  "Arslan Ay",
		Address:   "Pullman, WA",
	})
	if err != nil {
		a.t.Fatalf("register: %v", err)
	}
	return s
}

func (a *testApp) login(username, password string) string {
	a.t.Helper()
	_, body := a.postForm("/login", url.Values{"username": {username}, "password": {password}})
	return body
}

func (a *testApp) createClass(num, title string) *model.Class {
	a.t.Helper()
	c, err := a.classes.Create(context.Background(), model.CreateClassRequest{CourseNum: num, Title: title, Major: "CptS"})
	if err != nil {
		a.t.Fatalf("create class: %v", err)
	}
	return c
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("response body does not contain %q", w)
		}
	}
}

func TestRegisterPage(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get("/register")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	assertContains(t, body, "<h1>Register</h1>", `name="password2"`)
}

func TestRegisterFlow(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.postForm("/register", url.Values{
		"username":  {"sakire"},
		"email":     {"sakire@wsu.edu"},
		"firstname": {"Sakire"},
		"lastname":  {"Arslan Ay"},
		"address":   {"Pullman, WA"},
		"password":  {"1234"},
		"password2": {"1234"},
	})

	if resp.Request.URL.Path != "/login" {
		t.Fatalf("final path = %s, want /login", resp.Request.URL.Path)
	}
	assertContains(t, body,
		"Congratulations, you are now a registered user!",
		"Please log in to access this page.",
		"Sign In",
	)

	s, err := app.students.GetByUsername(context.Background(), "sakire")
	if err != nil {
		t.Fatalf("student not stored: %v", err)
	}
	if s.Email != "sakire@wsu.edu" || !s.CheckPassword("1234") {
		t.Fatalf("unexpected stored student: %+v", s)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")

	resp, body := app.postForm("/register", url.Values{
		"username":  {"sakire"},
		"email":     {"sakire@wsu.edu"},
		"password":  {"1234"},
		"password2": {"1234"},
	})
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/register" {
		t.Fatalf("got %d at %s, want form re-render", resp.StatusCode, resp.Request.URL.Path)
	}
	assertContains(t, body, "Username is already taken")

	_, body = app.postForm("/register", url.Values{
		"username":  {"other"},
		"email":     {"not-an-email"},
		"password":  {"1234"},
		"password2": {"4321"},
	})
	assertContains(t, body, "email must be a valid email address", "password2 must be equal to Password")
}

func TestInvalidLogin(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")

	body := app.login("sakire", "wrong")
	assertContains(t, body, "Invalid username or password", "Sign In")

	body = app.login("nobody", "1234")
	assertContains(t, body, "Invalid username or password")
}

func TestLoginLogout(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")

	body := app.login("sakire", "1234")
	assertContains(t, body, "Hi, Sakire Arslan Ay!")

	resp, body := app.get("/logout")
	if resp.Request.URL.Path != "/login" {
		t.Fatalf("final path = %s, want /login", resp.Request.URL.Path)
	}
	assertContains(t, body, "Sign In")

	resp, body = app.get("/index")
	if resp.Request.URL.Path != "/login" {
		t.Fatalf("index after logout landed on %s", resp.Request.URL.Path)
	}
	assertContains(t, body, "Please log in to access this page.")
}

func TestLoginRedirectsToNext(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")

	resp, body := app.postForm("/login?next=%2Fcreateclass", url.Values{"username": {"sakire"}, "password": {"1234"}})
	if resp.Request.URL.Path != "/createclass" {
		t.Fatalf("final path = %s, want /createclass", resp.Request.URL.Path)
	}
	assertContains(t, body, "Create a new class")
}

func TestLoginRememberMeCookie(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")

	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	cases := []struct {
		name     string
		remember string
		wantAge  int
	}{
		{"browser session", "", 0},
		{"remember me", "true", int(app.cfg.SessionTTL.Seconds())},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := url.Values{"username": {"sakire"}, "password": {"1234"}}
			if tc.remember != "" {
				form.Set("remember_me", tc.remember)
			}
			resp, err := noFollow.PostForm(app.server.URL+"/login", form)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusSeeOther {
				t.Fatalf("status = %d, want 303", resp.StatusCode)
			}
			var found *http.Cookie
			for _, ck := range resp.Cookies() {
				if ck.Name == app.cfg.SessionCookie {
					found = ck
				}
			}
			if found == nil {
				t.Fatal("session cookie not set")
			}
			if found.MaxAge != tc.wantAge {
				t.Errorf("MaxAge = %d, want %d", found.MaxAge, tc.wantAge)
			}
			if !found.HttpOnly {
				t.Error("session cookie must be HttpOnly")
			}
		})
	}
}

func TestCreateClass(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")
	app.login("sakire", "1234")

	_, body := app.get("/createclass")
	assertContains(t, body, "Create a new class", `value="CptS"`, "Mechanical Engineering")

	resp, body := app.postForm("/createclass", url.Values{
		"coursenum": {"355"},
		"title":     {"Programming Languages"},
		"major":     {"CptS"},
	})
	if resp.Request.URL.Path != "/index" {
		t.Fatalf("final path = %s, want /index", resp.Request.URL.Path)
	}
	assertContains(t, body, "CptS 355", "Programming Languages")

	classes, err := app.classes.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 1 || classes[0].CourseNum != "355" {
		t.Fatalf("unexpected classes: %+v", classes)
	}
}

func TestCreateClassInvalidCourseNum(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")
	app.login("sakire", "1234")

	for _, num := range []string{"35", "3555"} {
		resp, body := app.postForm("/createclass", url.Values{
			"coursenum": {num},
			"title":     {"Programming Languages"},
			"major":     {"CptS"},
		})
		if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/createclass" {
			t.Fatalf("coursenum %q: got %d at %s, want form re-render", num, resp.StatusCode, resp.Request.URL.Path)
		}
		assertContains(t, body, "Create a new class", "exactly 3 characters")
	}

	classes, err := app.classes.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 0 {
		t.Fatalf("invalid classes were stored: %+v", classes)
	}
}

func TestCreateClassUnknownMajor(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")
	app.login("sakire", "1234")

	_, body := app.postForm("/createclass", url.Values{
		"coursenum": {"101"},
		"title":     {"Basket Weaving"},
		"major":     {"ART"},
	})
	assertContains(t, body, "Unknown major.")
}

func TestLoginRequiredPages(t *testing.T) {
	app := newTestApp(t)
	class := app.createClass("355", "Programming Languages")

	for _, path := range []string{"/", "/index", "/createclass", "/roster/" + strconv.Itoa(class.ID)} {
		resp, body := app.get(path)
		if resp.Request.URL.Path != "/login" {
			t.Errorf("%s landed on %s, want /login", path, resp.Request.URL.Path)
			continue
		}
		assertContains(t, body, "Please log in to access this page.")
	}

	resp, _ := app.postForm("/enroll/"+strconv.Itoa(class.ID), nil)
	if resp.Request.URL.Path != "/login" {
		t.Fatalf("anonymous enroll landed on %s", resp.Request.URL.Path)
	}
}

func TestEnrollUnenroll(t *testing.T) {
	app := newTestApp(t)
	s := app.register("sakire", "1234")
	class := app.createClass("355", "Programming Languages")
	app.login("sakire", "1234")
	ctx := context.Background()
	id := strconv.Itoa(class.ID)

	_, body := app.postForm("/enroll/"+id, nil)
	assertContains(t, body, "You are now enrolled in CptS 355.", "Unenroll")
	if ok, _ := app.enrollments.IsEnrolled(ctx, s.ID, class.ID); !ok {
		t.Fatal("student should be enrolled")
	}

	_, body = app.postForm("/enroll/"+id, nil)
	assertContains(t, body, "You are already enrolled in CptS 355.")
	roster, _ := app.enrollments.Roster(ctx, class.ID)
	if len(roster) != 1 {
		t.Fatalf("roster size = %d, want 1", len(roster))
	}

	_, body = app.get("/roster/" + id)
	assertContains(t, body, "sakire", "Sakire Arslan Ay", "Roster (1)")

	_, body = app.postForm("/unenroll/"+id, nil)
	assertContains(t, body, "You have been unenrolled from CptS 355.")
	if ok, _ := app.enrollments.IsEnrolled(ctx, s.ID, class.ID); ok {
		t.Fatal("student should not be enrolled")
	}

	_, body = app.postForm("/unenroll/"+id, nil)
	assertContains(t, body, "You are not enrolled in CptS 355.")

	_, body = app.postForm("/enroll/9999", nil)
	assertContains(t, body, "Class not found.")
}

func TestRosterExport(t *testing.T) {
	app := newTestApp(t)
	s := app.register("sakire", "1234")
	class := app.createClass("355", "Programming Languages")
	if _, err := app.enrollments.Enroll(context.Background(), s.ID, class.ID); err != nil {
		t.Fatal(err)
	}
	app.login("sakire", "1234")

	resp, body := app.get("/roster/" + strconv.Itoa(class.ID) + "/export")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "roster-CptS355.xlsx") {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}

	f, err := excelize.OpenReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	got, err := f.GetCellValue("Roster", "A3")
	if err != nil {
		t.Fatal(err)
	}
	if got != "sakire" {
		t.Errorf("A3 = %q, want sakire", got)
	}

	resp, _ = app.get("/roster/9999/export")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown class status = %d, want 404", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get("/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	assertContains(t, body, `"status":"ok"`, `"postgres":"up"`)
}

func TestStaticAssets(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get("/static/style.css")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Cache-Control") == "" {
		t.Error("missing Cache-Control header")
	}
	assertContains(t, body, ".flash")
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (a *testApp) api(method, path, token string, payload interface{}) (int, envelope) {
	a.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			a.t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, body)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	var env envelope
	if err := json.Unmarshal([]byte(readBody(a.t, resp)), &env); err != nil {
		a.t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func TestAPIEnrollment(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")
	class := app.createClass("355", "Programming Languages")
	enrollPath := "/api/v1/classes/" + strconv.Itoa(class.ID) + "/enrollment"

	status, env := app.api(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "sakire", "password": "nope"})
	if status != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("bad login: status %d, env %+v", status, env)
	}

	status, env = app.api(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "sakire", "password": "1234"})
	if status != http.StatusOK {
		t.Fatalf("login status = %d", status)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &login); err != nil || login.Token == "" {
		t.Fatalf("no token in %s", env.Data)
	}

	if status, _ := app.api(http.MethodGet, "/api/v1/me/classes", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("anonymous me/classes status = %d, want 401", status)
	}

	if status, _ := app.api(http.MethodPost, enrollPath, login.Token, nil); status != http.StatusCreated {
		t.Fatalf("first enroll status = %d, want 201", status)
	}
	if status, _ := app.api(http.MethodPost, enrollPath, login.Token, nil); status != http.StatusOK {
		t.Fatalf("repeat enroll status = %d, want 200", status)
	}

	status, env = app.api(http.MethodGet, "/api/v1/me/classes", login.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("me/classes status = %d", status)
	}
	var mine struct {
		Enrollments []model.Enrollment `json:"enrollments"`
	}
	if err := json.Unmarshal(env.Data, &mine); err != nil {
		t.Fatal(err)
	}
	if len(mine.Enrollments) != 1 || mine.Enrollments[0].ClassID != class.ID {
		t.Fatalf("unexpected enrollments: %+v", mine.Enrollments)
	}

	if status, _ := app.api(http.MethodDelete, enrollPath, login.Token, nil); status != http.StatusOK {
		t.Fatalf("unenroll status = %d", status)
	}
	if status, _ := app.api(http.MethodPost, "/api/v1/classes/9999/enrollment", login.Token, nil); status != http.StatusNotFound {
		t.Fatalf("unknown class status = %d, want 404", status)
	}
}

func TestAPIPublicLists(t *testing.T) {
	app := newTestApp(t)
	app.createClass("355", "Programming Languages")

	status, env := app.api(http.MethodGet, "/api/v1/majors", "", nil)
	if status != http.StatusOK {
		t.Fatalf("majors status = %d", status)
	}
	var majors struct {
		Majors []model.Major `json:"majors"`
	}
	if err := json.Unmarshal(env.Data, &majors); err != nil {
		t.Fatal(err)
	}
	if len(majors.Majors) != len(model.DefaultMajors) {
		t.Fatalf("got %d majors, want %d", len(majors.Majors), len(model.DefaultMajors))
	}

	status, env = app.api(http.MethodGet, "/api/v1/classes", "", nil)
	if status != http.StatusOK {
		t.Fatalf("classes status = %d", status)
	}
	var classes struct {
		Classes []model.Class `json:"classes"`
	}
	if err := json.Unmarshal(env.Data, &classes); err != nil {
		t.Fatal(err)
	}
	if len(classes.Classes) != 1 || classes.Classes[0].Label() != "CptS 355" {
		t.Fatalf("unexpected classes: %+v", classes.Classes)
	}
}

func (a *testApp) apiToken(username, password string) string {
	a.t.Helper()
	status, env := a.api(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	if status != http.StatusOK {
		a.t.Fatalf("api login status = %d", status)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &login); err != nil || login.Token == "" {
		a.t.Fatalf("no token in %s", env.Data)
	}
	return login.Token
}

func TestAPIChangePassword(t *testing.T) {
	app := newTestApp(t)
	app.register("sakire", "1234")
	token := app.apiToken("sakire", "1234")

	status, env := app.api(http.MethodPost, "/api/v1/me/password", token, gin.H{
		"current_password": "wrong", "password": "5678", "password2": "5678",
	})
	if status != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("wrong current password: status %d, env %+v", status, env)
	}

	status, env = app.api(http.MethodPost, "/api/v1/me/password", token, gin.H{
		"current_password": "1234", "password": "5678", "password2": "8765",
	})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("mismatched passwords: status %d, env %+v", status, env)
	}

	if status, _ := app.api(http.MethodPost, "/api/v1/me/password", "", gin.H{
		"current_password": "1234", "password": "5678", "password2": "5678",
	}); status != http.StatusUnauthorized {
		t.Fatalf("anonymous change status = %d, want 401", status)
	}

	status, _ = app.api(http.MethodPost, "/api/v1/me/password", token, gin.H{
		"current_password": "1234", "password": "5678", "password2": "5678",
	})
	if status != http.StatusOK {
		t.Fatalf("change status = %d", status)
	}

	if body := app.login("sakire", "1234"); !strings.Contains(body, "Invalid username or password") {
		t.Fatal("old password must stop working")
	}
	assertContains(t, app.login("sakire", "5678"), "Hi, Sakire Arslan Ay!")
}
