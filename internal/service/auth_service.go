package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/enroll-web/internal/config"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionInvalid     = errors.New("session is no longer valid")
)

// Claims extends JWT standard claims with the logged-in student.
type Claims struct {
	jwt.RegisteredClaims
	StudentID int    `json:"student_id"`
	Username  string `json:"username"`
}

// Session is an issued login session.
type Session struct {
	Token     string
	ExpiresAt time.Time
	// Persistent sessions outlive the browser session (remember me).
	Persistent bool
}

// AuthService handles login, session tokens and logout.
type AuthService struct {
	cfg      *config.Config
	store    repository.Store
	sessions repository.SessionRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, store repository.Store, sessions repository.SessionRepository) *AuthService {
	return &AuthService{cfg: cfg, store: store, sessions: sessions}
}

// dummyStudent is compared against when the username is unknown so both
// failure paths spend the same bcrypt time.
var dummyStudent = func() *model.Student {
	s := &model.Student{}
	_ = s.SetPassword("not-a-real-password", 0)
	return s
}()

// Login verifies the credentials and opens a session. Unknown usernames and
// wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string, remember bool) (*model.Student, *Session, error) {
	student, err := s.store.Students().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			dummyStudent.CheckPassword(password)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup student: %w", err)
	}

	if !student.CheckPassword(password) {
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := s.IssueSession(ctx, student)
	if err != nil {
		return nil, nil, err
	}
	sess.Persistent = remember
	return student, sess, nil
}

// IssueSession signs a token for the student and registers it in the session store.
func (s *AuthService) IssueSession(ctx context.Context, student *model.Student) (*Session, error) {
	jti := uuid.New().String()
	now := time.Now()
	expires := now.Add(s.cfg.SessionTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(student.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		StudentID: student.ID,
		Username:  student.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.sessions.Save(ctx, jti, student.ID, s.cfg.SessionTTL); err != nil {
		return nil, err
	}

	return &Session{Token: signed, ExpiresAt: expires}, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.SessionSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// Authenticate validates the token and checks that its session is still live.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenStr)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	studentID, err := s.sessions.Lookup(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if studentID != claims.StudentID {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}

// Logout ends the session identified by claims.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return nil
	}
	return s.sessions.Delete(ctx, claims.ID)
}
