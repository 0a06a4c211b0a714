package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/enroll-web/internal/database"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Store groups the repositories behind one handle so a service can run
// several of them inside a single transaction.
type Store interface {
	Students() StudentRepository
	Majors() MajorRepository
	Classes() ClassRepository
	Enrollments() EnrollmentRepository

	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise. Nested calls use a savepoint.
	WithTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	db database.DBTX
}

// NewStore creates a Store over a pool or an open transaction.
func NewStore(db database.DBTX) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Students() StudentRepository       { return NewStudentRepository(s.db) }
func (s *pgStore) Majors() MajorRepository           { return NewMajorRepository(s.db) }
func (s *pgStore) Classes() ClassRepository          { return NewClassRepository(s.db) }
func (s *pgStore) Enrollments() EnrollmentRepository { return NewEnrollmentRepository(s.db) }

func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&pgStore{db: tx})
	})
}

// notFound maps pgx.ErrNoRows to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
