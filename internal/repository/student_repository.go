package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stemsi/enroll-web/internal/database"
	"github.com/stemsi/enroll-web/internal/model"
)

var ErrDuplicateUsername = errors.New("student with this username already exists")

// StudentRepository handles student data access.
type StudentRepository interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
	GetByUsername(ctx context.Context, username string) (*model.Student, error)
	Create(ctx context.Context, s *model.Student) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

type studentRepository struct {
	db database.DBTX
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(db database.DBTX) StudentRepository {
	return &studentRepository{db: db}
}

const studentColumns = `id, username, email, password_hash, first_name, last_name, address, created_at, updated_at`

// GetByID retrieves a student by ID.
func (r *studentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.db.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Username, &s.Email, &s.PasswordHash, &s.FirstName, &s.LastName, &s.Address, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// GetByUsername retrieves a student by their unique username.
func (r *studentRepository) GetByUsername(ctx context.Context, username string) (*model.Student, error) {
	s := &model.Student{}
	err := r.db.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE username = $1`, username,
	).Scan(&s.ID, &s.Username, &s.Email, &s.PasswordHash, &s.FirstName, &s.LastName, &s.Address, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// Create inserts a new student. PasswordHash must already be set.
func (r *studentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO students (username, email, password_hash, first_name, last_name, address)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		s.Username, s.Email, s.PasswordHash, s.FirstName, s.LastName, s.Address,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == database.PgUniqueViolation {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}

// UpdatePassword updates a student's password hash.
func (r *studentRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE students SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
