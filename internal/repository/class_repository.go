package repository

import (
	"context"

	"github.com/stemsi/enroll-web/internal/database"
	"github.com/stemsi/enroll-web/internal/model"
)

// ClassRepository handles class data access.
type ClassRepository interface {
	GetByID(ctx context.Context, id int) (*model.Class, error)
	List(ctx context.Context) ([]model.Class, error)
	Create(ctx context.Context, c *model.Class) error
}

type classRepository struct {
	db database.DBTX
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(db database.DBTX) ClassRepository {
	return &classRepository{db: db}
}

// GetByID retrieves a class by its ID.
func (r *classRepository) GetByID(ctx context.Context, id int) (*model.Class, error) {
	c := &model.Class{}
	err := r.db.QueryRow(ctx,
		`SELECT id, course_num, title, major, created_at
		 FROM classes WHERE id = $1`, id,
	).Scan(&c.ID, &c.CourseNum, &c.Title, &c.Major, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// List retrieves all classes.
func (r *classRepository) List(ctx context.Context) ([]model.Class, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, course_num, title, major, created_at
		 FROM classes ORDER BY major, course_num, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []model.Class
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.CourseNum, &c.Title, &c.Major, &c.CreatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// Create inserts a new class. Course numbers are not unique.
func (r *classRepository) Create(ctx context.Context, c *model.Class) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO classes (course_num, title, major)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		c.CourseNum, c.Title, c.Major,
	).Scan(&c.ID, &c.CreatedAt)
}
