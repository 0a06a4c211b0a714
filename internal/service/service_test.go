package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/enroll-web/internal/config"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
	"github.com/stemsi/enroll-web/internal/repository/repotest"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store       *repotest.Store
	sessions    *repotest.SessionRepository
	cfg         *config.Config
	students    *StudentService
	majors      *MajorService
	classes     *ClassService
	enrollments *EnrollmentService
	auth        *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
	store := repotest.NewStore()
	sessions := repotest.NewSessionRepository()
	log := zerolog.Nop()

	f := &fixture{
		store:       store,
		sessions:    sessions,
		cfg:         cfg,
		students:    NewStudentService(store, cfg.BcryptCost),
		majors:      NewMajorService(store, log),
		classes:     NewClassService(store),
		enrollments: NewEnrollmentService(store, log),
		auth:        NewAuthService(cfg, store, sessions),
	}
	if _, err := f.majors.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed majors: %v", err)
	}
	return f
}

func (f *fixture) register(t *testing.T, username, password string) *model.Student {
	t.Helper()
	s, err := f.students.Register(context.Background(), model.RegisterRequest{
		Username:  username,
		Email:     username + "@wsu.edu",
		Password:  password,
		Password2: password,
		FirstName: "Sakire",
		LastName:  "Arslan Ay",
		Address:   "Pullman, WA",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return s
}

func (f *fixture) class(t *testing.T, num, title string) *model.Class {
	t.Helper()
	c, err := f.classes.Create(context.Background(), model.CreateClassRequest{CourseNum: num, Title: title, Major: "CptS"})
	if err != nil {
		t.Fatalf("create class %s: %v", num, err)
	}
	return c
}

// ─── Majors ────────────────────────────────────────────────────────────

func TestSeedDefaultsOnlyWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	majors, err := f.majors.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(majors) != len(model.DefaultMajors) {
		t.Fatalf("expected %d majors, got %d", len(model.DefaultMajors), len(majors))
	}

	n, err := f.majors.SeedDefaults(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second seed inserted %d majors", n)
	}
}

// ─── Students ──────────────────────────────────────────────────────────

func TestRegisterStoresHashedPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "john", "bad-bad-password")

	s, err := f.students.GetByUsername(context.Background(), "john")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if s.LastName != "Arslan Ay" || s.Email != "john@wsu.edu" {
		t.Fatalf("unexpected student: %+v", s)
	}
	if s.PasswordHash == "bad-bad-password" {
		t.Fatal("password stored in plaintext")
	}
	if !s.CheckPassword("bad-bad-password") {
		t.Fatal("stored hash does not verify")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.register(t, "john", "1234")

	_, err := f.students.Register(context.Background(), model.RegisterRequest{Username: "john", Email: "x@y.z", Password: "abcd"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.register(t, "john", "1234")

	if err := f.students.ChangePassword(ctx, s.ID, "5678"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.auth.Login(ctx, "john", "1234", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still works: %v", err)
	}
	if _, _, err := f.auth.Login(ctx, "john", "5678", false); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

// ─── Classes ───────────────────────────────────────────────────────────

func TestCreateClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.class(t, "355", "Programming Languages")
	got, err := f.classes.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Programming Languages" || got.Label() != "CptS 355" {
		t.Fatalf("unexpected class: %+v", got)
	}

	// Duplicate course numbers are permitted.
	f.class(t, "355", "Programming Languages II")
	list, _ := f.classes.List(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(list))
	}
}

func TestCreateClassValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   model.CreateClassRequest
		field string
	}{
		{"short course number", model.CreateClassRequest{CourseNum: "35", Title: "PL", Major: "CptS"}, "coursenum"},
		{"long course number", model.CreateClassRequest{CourseNum: "3555", Title: "PL", Major: "CptS"}, "coursenum"},
		{"missing title", model.CreateClassRequest{CourseNum: "355", Title: " ", Major: "CptS"}, "title"},
		{"unknown major", model.CreateClassRequest{CourseNum: "355", Title: "PL", Major: "HIST"}, "major"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.classes.Create(ctx, tt.req)
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}

	list, _ := f.classes.List(ctx)
	if len(list) != 0 {
		t.Fatalf("invalid classes were persisted: %+v", list)
	}
}

func TestGetClassNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.classes.GetByID(context.Background(), 42); !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
}

// ─── Enrollment ────────────────────────────────────────────────────────

func TestEnrollAndUnenroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "john", "1234")
	c := f.class(t, "355", "Programming Languages")

	classes, _ := f.enrollments.StudentClasses(ctx, u.ID)
	roster, _ := f.enrollments.Roster(ctx, c.ID)
	if len(classes) != 0 || len(roster) != 0 {
		t.Fatalf("expected empty collections, got %d classes / %d roster", len(classes), len(roster))
	}

	created, err := f.enrollments.Enroll(ctx, u.ID, c.ID)
	if err != nil || !created {
		t.Fatalf("Enroll = %v, %v", created, err)
	}

	if ok, _ := f.enrollments.IsEnrolled(ctx, u.ID, c.ID); !ok {
		t.Fatal("IsEnrolled should be true after enroll")
	}
	classes, _ = f.enrollments.StudentClasses(ctx, u.ID)
	if len(classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(classes))
	}
	if classes[0].Class.CourseNum != "355" || classes[0].Class.Major != "CptS" {
		t.Fatalf("unexpected enrolled class: %+v", classes[0].Class)
	}
	roster, _ = f.enrollments.Roster(ctx, c.ID)
	if len(roster) != 1 || roster[0].Student.Username != "john" {
		t.Fatalf("unexpected roster: %+v", roster)
	}

	removed, err := f.enrollments.Unenroll(ctx, u.ID, c.ID)
	if err != nil || !removed {
		t.Fatalf("Unenroll = %v, %v", removed, err)
	}
	if ok, _ := f.enrollments.IsEnrolled(ctx, u.ID, c.ID); ok {
		t.Fatal("IsEnrolled should be false after unenroll")
	}
	classes, _ = f.enrollments.StudentClasses(ctx, u.ID)
	roster, _ = f.enrollments.Roster(ctx, c.ID)
	if len(classes) != 0 || len(roster) != 0 {
		t.Fatalf("expected empty collections after unenroll, got %d / %d", len(classes), len(roster))
	}
}

func TestEnrollTwiceIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "john", "1234")
	c := f.class(t, "355", "Programming Languages")

	if _, err := f.enrollments.Enroll(ctx, u.ID, c.ID); err != nil {
		t.Fatal(err)
	}
	created, err := f.enrollments.Enroll(ctx, u.ID, c.ID)
	if err != nil {
		t.Fatalf("second enroll failed: %v", err)
	}
	if created {
		t.Fatal("second enroll must not create a row")
	}

	roster, _ := f.enrollments.Roster(ctx, c.ID)
	if len(roster) != 1 {
		t.Fatalf("expected exactly one enrollment, got %d", len(roster))
	}
}

func TestUnenrollWhenNotEnrolledIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "john", "1234")
	c := f.class(t, "355", "Programming Languages")

	removed, err := f.enrollments.Unenroll(ctx, u.ID, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Fatal("nothing should have been removed")
	}
}

func TestEnrollUnknownClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "john", "1234")

	if _, err := f.enrollments.Enroll(ctx, u.ID, 999); !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
	classes, _ := f.enrollments.StudentClasses(ctx, u.ID)
	if len(classes) != 0 {
		t.Fatal("failed enroll left a row behind")
	}
}

func TestEnrolledClassIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "john", "1234")
	c1 := f.class(t, "355", "Programming Languages")
	c2 := f.class(t, "322", "Software Engineering")

	if _, err := f.enrollments.Enroll(ctx, u.ID, c2.ID); err != nil {
		t.Fatal(err)
	}
	ids, err := f.enrollments.EnrolledClassIDs(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ids[c1.ID] || !ids[c2.ID] {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestExportRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "john", "1234")
	c := f.class(t, "355", "Programming Languages")
	if _, err := f.enrollments.Enroll(ctx, u.ID, c.ID); err != nil {
		t.Fatal(err)
	}

	file, err := f.enrollments.ExportRoster(ctx, c)
	if err != nil {
		t.Fatalf("ExportRoster: %v", err)
	}
	defer file.Close()

	checks := map[string]string{
		"A1": "CptS 355",
		"A2": "Username",
		"A3": "john",
		"C3": "Arslan Ay",
	}
	for cell, want := range checks {
		got, err := file.GetCellValue(rosterSheet, cell)
		if err != nil {
			t.Fatalf("read %s: %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

// ─── Auth ──────────────────────────────────────────────────────────────

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "sakire", "1234")

	if _, _, err := f.auth.Login(ctx, "sakire", "12345", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := f.auth.Login(ctx, "nobody", "1234", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
	if f.sessions.Len() != 0 {
		t.Fatal("failed logins must not create sessions")
	}
}

func TestLoginAuthenticateLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered := f.register(t, "sakire", "1234")

	student, sess, err := f.auth.Login(ctx, "sakire", "1234", true)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if student.ID != registered.ID || !sess.Persistent || sess.Token == "" {
		t.Fatalf("unexpected login result: %+v %+v", student, sess)
	}

	claims, err := f.auth.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if claims.StudentID != registered.ID || claims.Username != "sakire" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if err := f.auth.Logout(ctx, claims); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, sess.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("token still valid after logout: %v", err)
	}
}

func TestAuthenticateRejectsForeignToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.register(t, "sakire", "1234")

	other := NewAuthService(&config.Config{SessionSecret: "other-secret", SessionTTL: time.Hour}, f.store, f.sessions)
	sess, err := other.IssueSession(ctx, student)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.auth.Authenticate(ctx, sess.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, "garbage"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid for garbage, got %v", err)
	}
}

func TestRepositoryErrNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.students.GetByID(context.Background(), 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
