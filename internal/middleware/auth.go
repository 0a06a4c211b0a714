package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
	"github.com/stemsi/enroll-web/internal/response"
	"github.com/stemsi/enroll-web/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for session claims.
	ContextKeyClaims = "claims"
	// ContextKeyStudent is the Gin context key for the logged-in student.
	ContextKeyStudent = "student"
)

// LoginNotice is flashed when an anonymous visitor hits a login-only page.
const LoginNotice = "Please log in to access this page."

// LoadSession resolves the session token from the Authorization header or the
// session cookie and stores the claims and student in the context. Requests
// without a valid session pass through anonymously.
func LoadSession(authService *service.AuthService, studentService *service.StudentService, cookieName string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c, cookieName)
		if tokenStr == "" {
			c.Next()
			return
		}

		claims, err := authService.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			if !errors.Is(err, service.ErrSessionInvalid) {
				log.Error().Err(err).Msg("Session lookup failed")
			}
			c.Next()
			return
		}

		student, err := studentService.GetByID(c.Request.Context(), claims.StudentID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				log.Error().Err(err).Int("student_id", claims.StudentID).Msg("Load session student failed")
			}
			c.Next()
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyStudent, student)
		c.Next()
	}
}

// RequireLogin redirects anonymous visitors to the login page with a notice.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentStudent(c) != nil {
			c.Next()
			return
		}

		AddFlash(c, FlashInfo, LoginNotice)
		target := "/login"
		if c.Request.Method == http.MethodGet {
			target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		}
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	}
}

// RequireAPIAuth rejects API requests without a valid session.
func RequireAPIAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentStudent(c) == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		c.Next()
	}
}

// GetClaims retrieves the session claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// CurrentStudent returns the logged-in student or nil.
func CurrentStudent(c *gin.Context) *model.Student {
	val, exists := c.Get(ContextKeyStudent)
	if !exists {
		return nil
	}
	s, ok := val.(*model.Student)
	if !ok {
		return nil
	}
	return s
}

func extractToken(c *gin.Context, cookieName string) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if v, err := c.Cookie(cookieName); err == nil {
		return v
	}
	return ""
}
