package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/enroll-web/internal/repository"
)

type session struct {
	studentID int
	expires   time.Time
}

// SessionRepository is an in-memory repository.SessionRepository.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]session
}

// NewSessionRepository returns an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: map[string]session{}}
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func (r *SessionRepository) Save(ctx context.Context, tokenID string, studentID int, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[tokenID] = session{studentID: studentID, expires: time.Now().Add(ttl)}
	return nil
}

func (r *SessionRepository) Lookup(ctx context.Context, tokenID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenID]
	if !ok || time.Now().After(s.expires) {
		return 0, repository.ErrNotFound
	}
	return s.studentID, nil
}

func (r *SessionRepository) Delete(ctx context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tokenID)
	return nil
}

// Len reports the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
