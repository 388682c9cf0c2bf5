package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

type projectRepo struct{ s *Store }

func (r projectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	var out *domain.Project
	r.s.read(func(d *dataset) {
		if p, ok := d.projects[id]; ok {
			p = copyProject(p)
			out = &p
		}
	})
	if out == nil {
		return nil, errNotFound
	}
	return out, nil
}

func (r projectRepo) Facts(_ context.Context, project *domain.Project) (scope.ProjectFacts, error) {
	var facts scope.ProjectFacts
	r.s.read(func(d *dataset) {
		facts = projectFacts(d, *project)
	})
	return facts, nil
}

func (r projectRepo) List(_ context.Context, pred scope.ProjectPredicate, page repository.Page) ([]domain.Project, error) {
	var result []domain.Project
	r.s.read(func(d *dataset) {
		for _, p := range d.projects {
			if pred.Matches(projectFacts(d, p)) {
				result = append(result, copyProject(p))
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, page), nil
}

func projectFacts(d *dataset, p domain.Project) scope.ProjectFacts {
	facts := scope.ProjectFacts{
		ManagerID: p.ManagerID,
		ClientID:  p.ClientID,
		TeamIDs:   cloneIDs(p.TeamIDs),
	}
	seen := map[string]bool{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			facts.TicketUserIDs = append(facts.TicketUserIDs, id)
		}
	}
	for _, t := range d.tickets {
		if t.ProjectID != p.ID || t.DeletedAt != nil {
			continue
		}
		add(t.CreatedBy)
		if t.AssigneeID != nil {
			add(*t.AssigneeID)
		}
	}
	sort.Strings(facts.TicketUserIDs)
	return facts
}

func copyProject(p domain.Project) domain.Project {
	p.ManagerID = copyString(p.ManagerID)
	p.ClientID = copyString(p.ClientID)
	p.TeamIDs = cloneIDs(p.TeamIDs)
	return p
}
