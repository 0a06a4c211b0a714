package repository

import (
	"context"

	"github.com/stemsi/enroll-web/internal/database"
	"github.com/stemsi/enroll-web/internal/model"
)

type MajorRepository interface {
	GetAll(ctx context.Context) ([]*model.Major, error)
	GetByName(ctx context.Context, name string) (*model.Major, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, major *model.Major) error
}

type majorRepository struct {
	db database.DBTX
}

func NewMajorRepository(db database.DBTX) MajorRepository {
	return &majorRepository{db: db}
}

func (r *majorRepository) GetAll(ctx context.Context) ([]*model.Major, error) {
	query := `SELECT id, name, department, created_at FROM majors ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var majors []*model.Major
	for rows.Next() {
		m := &model.Major{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Department, &m.CreatedAt); err != nil {
			return nil, err
		}
		majors = append(majors, m)
	}
	return majors, rows.Err()
}

func (r *majorRepository) GetByName(ctx context.Context, name string) (*model.Major, error) {
	query := `SELECT id, name, department, created_at FROM majors WHERE name = $1`
	m := &model.Major{}
	err := r.db.QueryRow(ctx, query, name).Scan(&m.ID, &m.Name, &m.Department, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *majorRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM majors`).Scan(&n)
	return n, err
}

func (r *majorRepository) Create(ctx context.Context, major *model.Major) error {
	query := `
		INSERT INTO majors (name, department)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, major.Name, major.Department).Scan(&major.ID, &major.CreatedAt)
}
