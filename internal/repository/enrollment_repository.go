package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stemsi/enroll-web/internal/database"
	"github.com/stemsi/enroll-web/internal/model"
)

// EnrollmentRepository handles the student-class association rows.
type EnrollmentRepository interface {
	// Add creates the pair and reports whether a new row was written.
	Add(ctx context.Context, studentID, classID int) (bool, error)
	// Remove deletes the pair and reports whether a row existed.
	Remove(ctx context.Context, studentID, classID int) (bool, error)
	Exists(ctx context.Context, studentID, classID int) (bool, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Enrollment, error)
	ListByClass(ctx context.Context, classID int) ([]model.Enrollment, error)
}

type enrollmentRepository struct {
	db database.DBTX
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(db database.DBTX) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

// Add relies on the (student_id, class_id) primary key instead of a
// check-then-insert, so concurrent enrolls cannot create duplicates.
func (r *enrollmentRepository) Add(ctx context.Context, studentID, classID int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO enrollments (student_id, class_id)
		 VALUES ($1, $2)
		 ON CONFLICT (student_id, class_id) DO NOTHING`,
		studentID, classID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == database.PgForeignKeyViolation {
			return false, ErrNotFound
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *enrollmentRepository) Remove(ctx context.Context, studentID, classID int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM enrollments WHERE student_id = $1 AND class_id = $2`,
		studentID, classID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *enrollmentRepository) Exists(ctx context.Context, studentID, classID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2)`,
		studentID, classID,
	).Scan(&exists)
	return exists, err
}

// ListByStudent returns the student's enrollments with Class populated.
func (r *enrollmentRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Enrollment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.student_id, e.class_id, e.enrolled_at,
		        c.id, c.course_num, c.title, c.major, c.created_at
		 FROM enrollments e
		 JOIN classes c ON c.id = e.class_id
		 WHERE e.student_id = $1
		 ORDER BY e.enrolled_at, c.id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Enrollment
	for rows.Next() {
		e := model.Enrollment{Class: &model.Class{}}
		if err := rows.Scan(&e.StudentID, &e.ClassID, &e.EnrolledAt,
			&e.Class.ID, &e.Class.CourseNum, &e.Class.Title, &e.Class.Major, &e.Class.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListByClass returns the class roster with Student populated.
func (r *enrollmentRepository) ListByClass(ctx context.Context, classID int) ([]model.Enrollment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.student_id, e.class_id, e.enrolled_at,
		        s.id, s.username, s.email, s.first_name, s.last_name, s.address, s.created_at, s.updated_at
		 FROM enrollments e
		 JOIN students s ON s.id = e.student_id
		 WHERE e.class_id = $1
		 ORDER BY s.last_name, s.first_name, s.id`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Enrollment
	for rows.Next() {
		e := model.Enrollment{Student: &model.Student{}}
		s := e.Student
		if err := rows.Scan(&e.StudentID, &e.ClassID, &e.EnrolledAt,
			&s.ID, &s.Username, &s.Email, &s.FirstName, &s.LastName, &s.Address, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
