package course

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("course not found")

type (
	Repository interface {
		QueryCourses(ctx context.Context) ([]Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Course, error) {
	if id <= 0 {
		return Course{}, ErrNotFound
	}
	return svc.repo.GetCourseByID(ctx, id)
}

// Exists reports whether id references a known course.
func (svc *Service) Exists(ctx context.Context, id int) (bool, error) {
	_, err := svc.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
