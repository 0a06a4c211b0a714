package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
	"github.com/xuri/excelize/v2"
)

// EnrollmentService manages the student-class association.
//
// Per (student, class) pair the state is either enrolled or not enrolled.
// Enroll and Unenroll are idempotent: repeating either one leaves the state
// unchanged and reports false.
type EnrollmentService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(store repository.Store, log zerolog.Logger) *EnrollmentService {
	return &EnrollmentService{
		store: store,
		log:   log.With().Str("component", "enrollment_service").Logger(),
	}
}

// Enroll adds the student to the class roster. It reports whether a new
// enrollment was created; an existing one is left untouched.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, classID int) (bool, error) {
	var created bool
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Classes().GetByID(ctx, classID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrClassNotFound
			}
			return err
		}

		var err error
		created, err = tx.Enrollments().Add(ctx, studentID, classID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClassNotFound
		}
		return err
	})
	if err != nil {
		return false, err
	}

	if created {
		s.log.Debug().Int("student_id", studentID).Int("class_id", classID).Msg("Student enrolled")
	}
	return created, nil
}

// Unenroll removes the enrollment. It reports whether one existed.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, classID int) (bool, error) {
	var removed bool
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		removed, err = tx.Enrollments().Remove(ctx, studentID, classID)
		return err
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.log.Debug().Int("student_id", studentID).Int("class_id", classID).Msg("Student unenrolled")
	}
	return removed, nil
}

// IsEnrolled reports whether the student is enrolled in the class.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, studentID, classID int) (bool, error) {
	return s.store.Enrollments().Exists(ctx, studentID, classID)
}

// StudentClasses lists the student's enrollments with Class populated.
func (s *EnrollmentService) StudentClasses(ctx context.Context, studentID int) ([]model.Enrollment, error) {
	list, err := s.store.Enrollments().ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Enrollment{}
	}
	return list, nil
}

// EnrolledClassIDs returns the set of class ids the student is enrolled in.
func (s *EnrollmentService) EnrolledClassIDs(ctx context.Context, studentID int) (map[int]bool, error) {
	list, err := s.StudentClasses(ctx, studentID)
	if err != nil {
		return nil, err
	}
	ids := make(map[int]bool, len(list))
	for _, e := range list {
		ids[e.ClassID] = true
	}
	return ids, nil
}

// Roster lists the class enrollments with Student populated.
func (s *EnrollmentService) Roster(ctx context.Context, classID int) ([]model.Enrollment, error) {
	list, err := s.store.Enrollments().ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Enrollment{}
	}
	return list, nil
}

// rosterSheet is the worksheet name used by ExportRoster.
const rosterSheet = "Roster"

// ExportRoster builds a spreadsheet with one row per enrolled student.
// The caller must Close the returned file.
func (s *EnrollmentService) ExportRoster(ctx context.Context, class *model.Class) (*excelize.File, error) {
	roster, err := s.Roster(ctx, class.ID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	title := []interface{}{class.Label(), class.Title}
	if err := f.SetSheetRow(rosterSheet, "A1", &title); err != nil {
		f.Close()
		return nil, err
	}
	header := []interface{}{"Username", "First Name", "Last Name", "Email", "Enrolled At"}
	if err := f.SetSheetRow(rosterSheet, "A2", &header); err != nil {
		f.Close()
		return nil, err
	}

	for i, e := range roster {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{
			e.Student.Username,
			e.Student.FirstName,
			e.Student.LastName,
			e.Student.Email,
			e.EnrolledAt.Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}
