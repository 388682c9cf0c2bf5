package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.s.write(func(d *dataset) error {
		if ticket.ID == "" {
			ticket.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		d.tickets[ticket.ID] = copyTicket(*ticket)
		return nil
	})
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.s.write(func(d *dataset) error {
		current, ok := d.tickets[ticket.ID]
		if !ok || current.DeletedAt != nil {
			return errNotFound
		}
		ticket.UpdatedAt = time.Now().UTC()
		updated := copyTicket(*ticket)
		updated.CreatedAt = current.CreatedAt
		updated.ExternalKey = current.ExternalKey
		updated.ProjectID = current.ProjectID
		updated.CreatedBy = current.CreatedBy
		d.tickets[ticket.ID] = updated
		return nil
	})
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	r.s.read(func(d *dataset) {
		if t, ok := d.tickets[id]; ok && t.DeletedAt == nil {
			c := copyTicket(t)
			c.Status = domain.NormalizeTicketStatus(string(c.Status))
			out = &c
		}
	})
	if out == nil {
		return nil, errNotFound
	}
	return out, nil
}

func (r ticketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r ticketRepo) Facts(_ context.Context, ticket *domain.Ticket) (scope.TicketFacts, error) {
	var facts scope.TicketFacts
	var err error
	r.s.read(func(d *dataset) {
		project, ok := d.projects[ticket.ProjectID]
		if !ok {
			err = errNotFound
			return
		}
		facts = ticketFacts(d, *ticket, project)
	})
	return facts, err
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter, pred scope.TicketPredicate) ([]domain.Ticket, error) {
	var result []domain.Ticket
	r.s.read(func(d *dataset) {
		for _, t := range d.tickets {
			if t.DeletedAt != nil {
				continue
			}
			t = copyTicket(t)
			t.Status = domain.NormalizeTicketStatus(string(t.Status))
			if !matchesTicketFilter(t, filter) {
				continue
			}
			if !pred.Matches(ticketFacts(d, t, d.projects[t.ProjectID])) {
				continue
			}
			result = append(result, t)
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Page), nil
}

func (r ticketRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	return r.s.write(func(d *dataset) error {
		t, ok := d.tickets[id]
		if !ok || t.DeletedAt != nil {
			return errNotFound
		}
		deleted := at
		t.DeletedAt = &deleted
		t.UpdatedAt = time.Now().UTC()
		d.tickets[id] = t
		return nil
	})
}

func ticketFacts(d *dataset, t domain.Ticket, project domain.Project) scope.TicketFacts {
	facts := scope.TicketFacts{
		CreatedBy:       t.CreatedBy,
		AssigneeID:      t.AssigneeID,
		ProjectClientID: project.ClientID,
	}
	if t.AssigneeID != nil {
		facts.AssigneeTeamIDs = teamsOf(d, *t.AssigneeID)
	}
	return facts
}

func matchesTicketFilter(t domain.Ticket, f repository.TicketFilter) bool {
	if f.ProjectID != nil && t.ProjectID != *f.ProjectID {
		return false
	}
	if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
		return false
	}
	if len(f.Statuses) > 0 && !containsValue(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsValue(f.Priorities, t.Priority) {
		return false
	}
	if f.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		if term != "" && !strings.Contains(strings.ToLower(t.Title), term) && !strings.Contains(strings.ToLower(t.Description), term) {
			return false
		}
	}
	return true
}

func containsValue[T comparable](list []T, v T) bool {
	for _, candidate := range list {
		if candidate == v {
			return true
		}
	}
	return false
}

func copyTicket(t domain.Ticket) domain.Ticket {
	t.StageID = copyString(t.StageID)
	t.AssigneeID = copyString(t.AssigneeID)
	t.EstimatedHours = copyFloat(t.EstimatedHours)
	t.Deadline = copyTime(t.Deadline)
	t.OpenedAt = copyTime(t.OpenedAt)
	t.DeletedAt = copyTime(t.DeletedAt)
	return t
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
