package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/enroll-web/internal/config"
	"github.com/stemsi/enroll-web/internal/middleware"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/response"
	"github.com/stemsi/enroll-web/internal/service"
	"github.com/stemsi/enroll-web/internal/validator"
)

// Flash texts shown by the auth pages.
const (
	msgRegistered         = "Congratulations, you are now a registered user!"
	msgInvalidCredentials = "Invalid username or password"
	msgLoggedOut          = "You have been logged out."
	msgUsernameTaken      = "Username is already taken. Please choose another one."
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	cfg            *config.Config
	authService    *service.AuthService
	studentService *service.StudentService
	log            zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	cfg *config.Config,
	authService *service.AuthService,
	studentService *service.StudentService,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		cfg:            cfg,
		authService:    authService,
		studentService: studentService,
		log:            log.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPage godoc
// GET /register
func (h *AuthHandler) RegisterPage(c *gin.Context) {
	if middleware.CurrentStudent(c) != nil {
		redirect(c, "/index")
		return
	}
	render(c, http.StatusOK, "register.html", "Register", gin.H{"Form": model.RegisterRequest{}})
}

// Register godoc
// POST /register
// Creates the account and sends the visitor on to the course list.
func (h *AuthHandler) Register(c *gin.Context) {
	if middleware.CurrentStudent(c) != nil {
		redirect(c, "/index")
		return
	}

	var req model.RegisterRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.renderRegister(c, req, fields)
		return
	}

	student, err := h.studentService.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			h.renderRegister(c, req, map[string]string{"username": msgUsernameTaken})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("Registration failed")
		renderError(c, http.StatusInternalServerError, response.GetMessage(response.ErrInternal))
		return
	}

	h.log.Info().Int("student_id", student.ID).Str("username", student.Username).Msg("Student registered")
	middleware.AddFlash(c, middleware.FlashSuccess, msgRegistered)
	redirect(c, "/index")
}

func (h *AuthHandler) renderRegister(c *gin.Context, req model.RegisterRequest, fields map[string]string) {
	req.Password, req.Password2 = "", ""
	render(c, http.StatusOK, "register.html", "Register", gin.H{"Form": req, "Errors": fields})
}

// LoginPage godoc
// GET /login
func (h *AuthHandler) LoginPage(c *gin.Context) {
	if middleware.CurrentStudent(c) != nil {
		redirect(c, "/index")
		return
	}
	render(c, http.StatusOK, "login.html", "Sign In", gin.H{
		"Form": model.LoginRequest{},
		"Next": safeNext(c.Query("next"), ""),
	})
}

// Login godoc
// POST /login
// On success the session cookie is set and the student lands on the course list.
func (h *AuthHandler) Login(c *gin.Context) {
	if middleware.CurrentStudent(c) != nil {
		redirect(c, "/index")
		return
	}

	next := safeNext(c.DefaultPostForm("next", c.Query("next")), "")

	var req model.LoginRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		req.Password = ""
		render(c, http.StatusOK, "login.html", "Sign In", gin.H{"Form": req, "Errors": fields, "Next": next})
		return
	}

	student, sess, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, req.RememberMe)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Error().Err(err).Str("username", req.Username).Msg("Login failed")
		}
		middleware.AddFlash(c, middleware.FlashError, msgInvalidCredentials)
		target := "/login"
		if next != "" {
			target += "?next=" + url.QueryEscape(next)
		}
		redirect(c, target)
		return
	}

	h.setSessionCookie(c, sess)
	h.log.Info().Int("student_id", student.ID).Bool("remember", req.RememberMe).Msg("Student logged in")
	redirect(c, safeNext(next, "/index"))
}

// Logout godoc
// GET /logout
// Ends the session and returns to the login page.
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims := middleware.GetClaims(c); claims != nil {
		if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
			h.log.Error().Err(err).Int("student_id", claims.StudentID).Msg("Logout failed")
		}
		middleware.AddFlash(c, middleware.FlashInfo, msgLoggedOut)
	}
	h.clearSessionCookie(c)
	redirect(c, "/login")
}

// apiLoginRequest is the JSON login payload.
type apiLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// APILogin godoc
// POST /api/v1/auth/login
// Returns a bearer token for API clients.
func (h *AuthHandler) APILogin(c *gin.Context) {
	var req apiLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, sess, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, false)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("API login failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"student":    student,
	})
}

// GetProfile godoc
// GET /api/v1/me
func (h *AuthHandler) GetProfile(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"student": middleware.CurrentStudent(c)})
}

// ChangePassword godoc
// POST /api/v1/me/password
// Replaces the signed-in student's password after checking the current one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req model.ChangePasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := middleware.CurrentStudent(c)
	if !student.CheckPassword(req.CurrentPassword) {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}
	if err := h.studentService.ChangePassword(c.Request.Context(), student.ID, req.Password); err != nil {
		h.log.Error().Err(err).Int("student_id", student.ID).Msg("Change password failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.log.Info().Int("student_id", student.ID).Msg("Password changed")
	response.Success(c, http.StatusOK, gin.H{"student": student})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, sess *service.Session) {
	maxAge := 0
	if sess.Persistent {
		maxAge = int(h.cfg.SessionTTL.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.SessionCookie, sess.Token, maxAge, "/", "", h.cfg.CookieSecure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.SessionCookie, "", -1, "/", "", h.cfg.CookieSecure, true)
}
