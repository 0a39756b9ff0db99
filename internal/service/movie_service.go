package service

import (
	"context"
	"strings"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// MovieService seeds and reads the movie reference data.
type MovieService struct {
	store repository.Store
}

func NewMovieService(store repository.Store) *MovieService { return &MovieService{store: store} }

func (s *MovieService) CreateMovie(ctx context.Context, title string, durationMinutes int) (model.Movie, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Movie{}, apperr.Invalid("title is required")
	}
	if durationMinutes < 1 {
		return model.Movie{}, apperr.Invalid("duration must be at least one minute")
	}
	m := model.Movie{Title: title, DurationMinutes: durationMinutes}
	if err := s.store.CreateMovie(ctx, &m); err != nil {
		return model.Movie{}, err
	}
	return m, nil
}

func (s *MovieService) GetMovie(ctx context.Context, id uint64) (model.Movie, error) {
	m, err := s.store.GetMovie(ctx, id)
	return m, notFound(err, "movie", id)
}
