package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	return r.s.write(func(d *dataset) error {
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		if user.Level == 0 {
			user.Level = 1
		}
		now := time.Now().UTC()
		user.CreatedAt = now
		user.UpdatedAt = now
		stored := *user
		stored.TeamIDs = nil
		stored.ClientID = nil
		d.users[user.ID] = stored
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	r.s.read(func(d *dataset) {
		if u, ok := d.users[id]; ok {
			u = decorateUser(d, u)
			out = &u
		}
	})
	if out == nil {
		return nil, errNotFound
	}
	return out, nil
}

func (r userRepo) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r userRepo) UpdatePoints(_ context.Context, id string, points, level int) error {
	return r.s.write(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return errNotFound
		}
		u.Points = points
		u.Level = level
		u.UpdatedAt = time.Now().UTC()
		d.users[id] = u
		return nil
	})
}

func (r userRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	var result []domain.User
	r.s.read(func(d *dataset) {
		for _, u := range d.users {
			if u.Role == role {
				result = append(result, decorateUser(d, u))
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r userRepo) ListVisible(_ context.Context, pred scope.UserPredicate, page repository.Page) ([]domain.User, error) {
	var result []domain.User
	r.s.read(func(d *dataset) {
		for _, u := range d.users {
			u = decorateUser(d, u)
			if pred.Matches(u.ID, u.TeamIDs) {
				result = append(result, u)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].Points != result[j].Points {
			return result[i].Points > result[j].Points
		}
		return result[i].Name < result[j].Name
	})
	return paginate(result, page), nil
}

func decorateUser(d *dataset, u domain.User) domain.User {
	u.TeamIDs = teamsOf(d, u.ID)
	u.ClientID = nil
	var ids []string
	for id, c := range d.clients {
		if c.UserID != nil && *c.UserID == u.ID {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		sort.Strings(ids)
		u.ClientID = &ids[0]
	}
	return u
}

func teamsOf(d *dataset, userID string) []string {
	var ids []string
	for teamID, members := range d.teamMembers {
		if containsValue(members, userID) {
			ids = append(ids, teamID)
		}
	}
	sort.Strings(ids)
	return ids
}

type teamRepo struct{ s *Store }

func (r teamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	var out *domain.Team
	r.s.read(func(d *dataset) {
		if t, ok := d.teams[id]; ok {
			out = &t
		}
	})
	if out == nil {
		return nil, errNotFound
	}
	return out, nil
}

func (r teamRepo) ListByUser(_ context.Context, userID string) ([]domain.Team, error) {
	var result []domain.Team
	r.s.read(func(d *dataset) {
		for _, id := range teamsOf(d, userID) {
			if t, ok := d.teams[id]; ok {
				result = append(result, t)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r teamRepo) MemberIDs(_ context.Context, teamIDs []string) ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	r.s.read(func(d *dataset) {
		for _, teamID := range teamIDs {
			for _, userID := range d.teamMembers[teamID] {
				if !seen[userID] {
					seen[userID] = true
					ids = append(ids, userID)
				}
			}
		}
	})
	sort.Strings(ids)
	return ids, nil
}

type clientRepo struct{ s *Store }

func (r clientRepo) GetByID(_ context.Context, id string) (*domain.Client, error) {
	var out *domain.Client
	r.s.read(func(d *dataset) {
		if c, ok := d.clients[id]; ok {
			c.UserID = copyString(c.UserID)
			out = &c
		}
	})
	if out == nil {
		return nil, errNotFound
	}
	return out, nil
}
