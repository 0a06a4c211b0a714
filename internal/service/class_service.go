package service

import (
	"context"
	"errors"
	"strings"

	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
)

var ErrClassNotFound = errors.New("class not found")

// ClassService handles class business logic.
type ClassService struct {
	store repository.Store
}

// NewClassService creates a new ClassService.
func NewClassService(store repository.Store) *ClassService {
	return &ClassService{store: store}
}

// GetByID retrieves a class by its ID.
func (s *ClassService) GetByID(ctx context.Context, id int) (*model.Class, error) {
	c, err := s.store.Classes().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrClassNotFound
	}
	return c, err
}

// List retrieves all classes.
func (s *ClassService) List(ctx context.Context) ([]model.Class, error) {
	return s.store.Classes().List(ctx)
}

// Create validates and stores a new class. Duplicate course numbers are allowed.
// Invalid input yields a *model.ValidationError and nothing is persisted.
func (s *ClassService) Create(ctx context.Context, req model.CreateClassRequest) (*model.Class, error) {
	class := &model.Class{
		CourseNum: strings.TrimSpace(req.CourseNum),
		Title:     strings.TrimSpace(req.Title),
		Major:     strings.TrimSpace(req.Major),
	}

	if err := model.ValidateCourseNum(class.CourseNum); err != nil {
		return nil, err
	}
	if err := model.ValidateTitle(class.Title); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Majors().GetByName(ctx, class.Major); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &model.ValidationError{Field: "major", Message: "Unknown major."}
			}
			return err
		}
		return tx.Classes().Create(ctx, class)
	})
	if err != nil {
		return nil, err
	}
	return class, nil
}
