package service

import (
	"context"
	"errors"
	"strings"

	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
)

var ErrUsernameTaken = errors.New("username is already taken")

// StudentService handles student registration and lookup.
type StudentService struct {
	store      repository.Store
	bcryptCost int
}

// NewStudentService creates a new StudentService.
func NewStudentService(store repository.Store, bcryptCost int) *StudentService {
	return &StudentService{store: store, bcryptCost: bcryptCost}
}

// Register creates a student with a hashed password. Username uniqueness is
// enforced by the database constraint, not by a prior lookup.
func (s *StudentService) Register(ctx context.Context, req model.RegisterRequest) (*model.Student, error) {
	student := &model.Student{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Address:   strings.TrimSpace(req.Address),
	}
	if err := student.SetPassword(req.Password, s.bcryptCost); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		return tx.Students().Create(ctx, student)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return student, nil
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.store.Students().GetByID(ctx, id)
}

// GetByUsername retrieves a student by username.
func (s *StudentService) GetByUsername(ctx context.Context, username string) (*model.Student, error) {
	return s.store.Students().GetByUsername(ctx, username)
}

// ChangePassword replaces a student's password.
func (s *StudentService) ChangePassword(ctx context.Context, id int, password string) error {
	student := &model.Student{ID: id}
	if err := student.SetPassword(password, s.bcryptCost); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx repository.Store) error {
		return tx.Students().UpdatePassword(ctx, id, student.PasswordHash)
	})
}
