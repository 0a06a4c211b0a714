package validator

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/enroll-web/internal/model"
)

func formContext(values url.Values) *gin.Context {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	return c
}

func TestBindFormCourseNum(t *testing.T) {
	Setup()

	var req model.CreateClassRequest
	fields := BindForm(formContext(url.Values{
		"coursenum": {"35"},
		"title":     {"Programming Languages"},
		"major":     {"CptS"},
	}), &req)

	msg, ok := fields["coursenum"]
	if !ok {
		t.Fatalf("expected coursenum error, got %v", fields)
	}
	if !strings.Contains(msg, "exactly 3 characters") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestBindFormValid(t *testing.T) {
	Setup()

	var req model.CreateClassRequest
	fields := BindForm(formContext(url.Values{
		"coursenum": {"355"},
		"title":     {"Programming Languages"},
		"major":     {"CptS"},
	}), &req)

	if fields != nil {
		t.Fatalf("unexpected errors: %v", fields)
	}
	if req.CourseNum != "355" || req.Major != "CptS" {
		t.Fatalf("unexpected binding: %+v", req)
	}
}

func TestBindFormPasswordMismatch(t *testing.T) {
	Setup()

	var req model.RegisterRequest
	fields := BindForm(formContext(url.Values{
		"username":  {"john"},
		"email":     {"john@wsu.edu"},
		"password":  {"secret"},
		"password2": {"different"},
	}), &req)

	if _, ok := fields["password2"]; !ok {
		t.Fatalf("expected password2 error, got %v", fields)
	}
}

func TestTranslateModelValidationError(t *testing.T) {
	err := &model.ValidationError{Field: "major", Message: "Unknown major."}
	fields := TranslateErrors(err)
	if fields["major"] != "Unknown major." {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestBindFormCourseNumTrimmed(t *testing.T) {
	Setup()

	var req model.CreateClassRequest
	fields := BindForm(formContext(url.Values{
		"coursenum": {" 355 "},
		"title":     {"Programming Languages"},
		"major":     {"CptS"},
	}), &req)

	if fields != nil {
		t.Fatalf("surrounding spaces must not count: %v", fields)
	}
}

func TestValidateRegisterRequest(t *testing.T) {
	req := model.RegisterRequest{
		Username:  "s",
		Email:     "not-an-email",
		Password:  "1234",
		Password2: "1234",
	}
	fields := Validate(&req)
	for _, name := range []string{"username", "email"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("expected %s error, got %v", name, fields)
		}
	}
	if _, ok := fields["password"]; ok {
		t.Errorf("password should be valid, got %v", fields)
	}

	req.Username = "sakire"
	req.Email = "sakire@wsu.edu"
	if fields := Validate(&req); fields != nil {
		t.Fatalf("unexpected errors: %v", fields)
	}
}
