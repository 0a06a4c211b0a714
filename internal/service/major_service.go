package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
)

// MajorService reads and seeds the majors catalogue.
type MajorService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewMajorService creates a new MajorService.
func NewMajorService(store repository.Store, log zerolog.Logger) *MajorService {
	return &MajorService{
		store: store,
		log:   log.With().Str("component", "major_service").Logger(),
	}
}

// GetAll lists every major ordered by name.
func (s *MajorService) GetAll(ctx context.Context) ([]*model.Major, error) {
	return s.store.Majors().GetAll(ctx)
}

// SeedDefaults fills an empty majors table with model.DefaultMajors.
// It returns the number of majors inserted.
func (s *MajorService) SeedDefaults(ctx context.Context) (int, error) {
	inserted := 0
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		n, err := tx.Majors().Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, m := range model.DefaultMajors {
			m := m
			if err := tx.Majors().Create(ctx, &m); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		s.log.Info().Int("count", inserted).Msg("Seeded default majors")
	}
	return inserted, nil
}
