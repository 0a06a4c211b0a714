// Package repotest provides in-memory implementations of the repository
// interfaces for service and handler tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
)

type pair struct {
	studentID, classID int
}

type data struct {
	students    map[int]model.Student
	majors      map[string]model.Major
	classes     map[int]model.Class
	enrollments map[pair]time.Time

	nextStudent, nextMajor, nextClass int
}

func newData() *data {
	return &data{
		students:    map[int]model.Student{},
		majors:      map[string]model.Major{},
		classes:     map[int]model.Class{},
		enrollments: map[pair]time.Time{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.students {
		c.students[k] = v
	}
	for k, v := range d.majors {
		c.majors[k] = v
	}
	for k, v := range d.classes {
		c.classes[k] = v
	}
	for k, v := range d.enrollments {
		c.enrollments[k] = v
	}
	c.nextStudent, c.nextMajor, c.nextClass = d.nextStudent, d.nextMajor, d.nextClass
	return c
}

// Store is an in-memory repository.Store. Transactions work on a copy of
// the data that replaces the original only when the callback succeeds.
type Store struct {
	mu   *sync.Mutex // nil inside a transaction
	data *data
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, data: newData()}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Students() repository.StudentRepository       { return studentRepo{s} }
func (s *Store) Majors() repository.MajorRepository           { return majorRepo{s} }
func (s *Store) Classes() repository.ClassRepository          { return classRepo{s} }
func (s *Store) Enrollments() repository.EnrollmentRepository { return enrollmentRepo{s} }

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	unlock := s.lock()
	defer unlock()

	work := s.data.clone()
	if err := fn(&Store{data: work}); err != nil {
		return err
	}
	*s.data = *work
	return nil
}

// ─── Students ──────────────────────────────────────────────────────────

type studentRepo struct{ s *Store }

func (r studentRepo) GetByID(ctx context.Context, id int) (*model.Student, error) {
	defer r.s.lock()()
	st, ok := r.s.data.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (r studentRepo) GetByUsername(ctx context.Context, username string) (*model.Student, error) {
	defer r.s.lock()()
	for _, st := range r.s.data.students {
		if st.Username == username {
			st := st
			return &st, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r studentRepo) Create(ctx context.Context, st *model.Student) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.students {
		if existing.Username == st.Username {
			return repository.ErrDuplicateUsername
		}
	}
	r.s.data.nextStudent++
	now := time.Now()
	st.ID, st.CreatedAt, st.UpdatedAt = r.s.data.nextStudent, now, now
	r.s.data.students[st.ID] = *st
	return nil
}

func (r studentRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	defer r.s.lock()()
	st, ok := r.s.data.students[id]
	if !ok {
		return repository.ErrNotFound
	}
	st.PasswordHash = passwordHash
	st.UpdatedAt = time.Now()
	r.s.data.students[id] = st
	return nil
}

// ─── Majors ────────────────────────────────────────────────────────────

type majorRepo struct{ s *Store }

func (r majorRepo) GetAll(ctx context.Context) ([]*model.Major, error) {
	defer r.s.lock()()
	var out []*model.Major
	for _, m := range r.s.data.majors {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r majorRepo) GetByName(ctx context.Context, name string) (*model.Major, error) {
	defer r.s.lock()()
	m, ok := r.s.data.majors[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r majorRepo) Count(ctx context.Context) (int, error) {
	defer r.s.lock()()
	return len(r.s.data.majors), nil
}

func (r majorRepo) Create(ctx context.Context, m *model.Major) error {
	defer r.s.lock()()
	if _, ok := r.s.data.majors[m.Name]; ok {
		return fmt.Errorf("major %q already exists", m.Name)
	}
	r.s.data.nextMajor++
	m.ID, m.CreatedAt = r.s.data.nextMajor, time.Now()
	r.s.data.majors[m.Name] = *m
	return nil
}

// ─── Classes ───────────────────────────────────────────────────────────

type classRepo struct{ s *Store }

func (r classRepo) GetByID(ctx context.Context, id int) (*model.Class, error) {
	defer r.s.lock()()
	c, ok := r.s.data.classes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r classRepo) List(ctx context.Context) ([]model.Class, error) {
	defer r.s.lock()()
	var out []model.Class
	for _, c := range r.s.data.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Major != out[j].Major {
			return out[i].Major < out[j].Major
		}
		if out[i].CourseNum != out[j].CourseNum {
			return out[i].CourseNum < out[j].CourseNum
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r classRepo) Create(ctx context.Context, c *model.Class) error {
	defer r.s.lock()()
	if _, ok := r.s.data.majors[c.Major]; !ok {
		return fmt.Errorf("major %q does not exist", c.Major)
	}
	if err := model.ValidateCourseNum(c.CourseNum); err != nil {
		return err
	}
	r.s.data.nextClass++
	c.ID, c.CreatedAt = r.s.data.nextClass, time.Now()
	r.s.data.classes[c.ID] = *c
	return nil
}

// ─── Enrollments ───────────────────────────────────────────────────────

type enrollmentRepo struct{ s *Store }

func (r enrollmentRepo) Add(ctx context.Context, studentID, classID int) (bool, error) {
	defer r.s.lock()()
	if _, ok := r.s.data.students[studentID]; !ok {
		return false, repository.ErrNotFound
	}
	if _, ok := r.s.data.classes[classID]; !ok {
		return false, repository.ErrNotFound
	}
	k := pair{studentID, classID}
	if _, ok := r.s.data.enrollments[k]; ok {
		return false, nil
	}
	r.s.data.enrollments[k] = time.Now()
	return true, nil
}

func (r enrollmentRepo) Remove(ctx context.Context, studentID, classID int) (bool, error) {
	defer r.s.lock()()
	k := pair{studentID, classID}
	if _, ok := r.s.data.enrollments[k]; !ok {
		return false, nil
	}
	delete(r.s.data.enrollments, k)
	return true, nil
}

func (r enrollmentRepo) Exists(ctx context.Context, studentID, classID int) (bool, error) {
	defer r.s.lock()()
	_, ok := r.s.data.enrollments[pair{studentID, classID}]
	return ok, nil
}

func (r enrollmentRepo) ListByStudent(ctx context.Context, studentID int) ([]model.Enrollment, error) {
	defer r.s.lock()()
	var out []model.Enrollment
	for k, at := range r.s.data.enrollments {
		if k.studentID != studentID {
			continue
		}
		c := r.s.data.classes[k.classID]
		out = append(out, model.Enrollment{StudentID: k.studentID, ClassID: k.classID, EnrolledAt: at, Class: &c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassID < out[j].ClassID })
	return out, nil
}

func (r enrollmentRepo) ListByClass(ctx context.Context, classID int) ([]model.Enrollment, error) {
	defer r.s.lock()()
	var out []model.Enrollment
	for k, at := range r.s.data.enrollments {
		if k.classID != classID {
			continue
		}
		st := r.s.data.students[k.studentID]
		st.PasswordHash = ""
		out = append(out, model.Enrollment{StudentID: k.studentID, ClassID: k.classID, EnrolledAt: at, Student: &st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}
