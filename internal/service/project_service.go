package service

import (
	"context"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/scope"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

// ProjectService serves scoped project reads.
type ProjectService struct {
	store repository.Store
}

// NewProjectService constructs ProjectService.
func NewProjectService(store repository.Store) *ProjectService {
	return &ProjectService{store: store}
}

// List returns projects visible to actor.
func (s *ProjectService) List(ctx context.Context, actor domain.Actor, page repository.Page) ([]domain.Project, error) {
	projects, err := s.store.Projects().List(ctx, scope.VisibleProjects(actor), page.Normalize())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return projects, nil
}

// Get returns a single visible project.
func (s *ProjectService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Project, error) {
	return loadVisibleProject(ctx, s.store, actor, id)
}
