package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// Seeding helpers for entities whose administration lives outside this service.
// They are used by tests and by the demo fixture loaded when no database is configured.

// AddUser stores user, assigning an id when empty. Team and client links are
// managed through AddTeam and AddClient.
func (s *Store) AddUser(user domain.User) domain.User {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Level == 0 {
		user.Level = 1
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	_ = s.write(func(d *dataset) error {
		stored := user
		stored.TeamIDs, stored.ClientID = nil, nil
		d.users[user.ID] = stored
		return nil
	})
	return user
}

// AddTeam stores team with the given members.
func (s *Store) AddTeam(team domain.Team, memberIDs ...string) domain.Team {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	team.CreatedAt, team.UpdatedAt = now, now
	_ = s.write(func(d *dataset) error {
		d.teams[team.ID] = team
		d.teamMembers[team.ID] = cloneIDs(memberIDs)
		return nil
	})
	return team
}

// AddClient stores client. A non-nil UserID links the client's login account.
func (s *Store) AddClient(client domain.Client) domain.Client {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	_ = s.write(func(d *dataset) error {
		d.clients[client.ID] = client
		return nil
	})
	return client
}

// AddProject stores project.
func (s *Store) AddProject(project domain.Project) domain.Project {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Type == "" {
		project.Type = domain.ProjectTypeInternal
	}
	if project.Status == "" {
		project.Status = "active"
	}
	now := time.Now().UTC()
	project.CreatedAt, project.UpdatedAt = now, now
	_ = s.write(func(d *dataset) error {
		d.projects[project.ID] = copyProject(project)
		return nil
	})
	return project
}

// SetPointRate stores the monetary rate for level.
func (s *Store) SetPointRate(level int, rate float64) {
	_ = s.write(func(d *dataset) error {
		d.pointRates[level] = domain.PointRate{Level: level, Rate: rate}
		return nil
	})
}

// PutTicket stores ticket as-is, bypassing creation defaults. It lets fixtures
// carry rows in any status, including retired ones.
func (s *Store) PutTicket(ticket domain.Ticket) domain.Ticket {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.CreatedAt.IsZero() {
		now := time.Now().UTC()
		ticket.CreatedAt, ticket.UpdatedAt = now, now
	}
	_ = s.write(func(d *dataset) error {
		d.tickets[ticket.ID] = copyTicket(ticket)
		return nil
	})
	return ticket
}

// SeedDemo loads a small workspace: one user per role, a team, and an
// external project owned by the manager. It returns the users it created.
func (s *Store) SeedDemo() []domain.User {
	admin := s.AddUser(domain.User{Name: "Demo Admin", Email: "admin@demo.local", Role: domain.RoleAdmin})
	manager := s.AddUser(domain.User{Name: "Demo Manager", Email: "manager@demo.local", Role: domain.RoleManager})
	collab := s.AddUser(domain.User{Name: "Demo Collaborator", Email: "collab@demo.local", Role: domain.RoleCollaborator})
	clientUser := s.AddUser(domain.User{Name: "Demo Client", Email: "client@demo.local", Role: domain.RoleClient})

	team := s.AddTeam(domain.Team{Name: "Delivery"}, manager.ID, collab.ID)
	client := s.AddClient(domain.Client{Name: "Demo Co", Email: clientUser.Email, UserID: &clientUser.ID})
	s.AddProject(domain.Project{
		Name:      "Demo Portal",
		Type:      domain.ProjectTypeExternal,
		ManagerID: &manager.ID,
		ClientID:  &client.ID,
		TeamIDs:   []string{team.ID},
	})
	for level, rate := range map[int]float64{1: 0.10, 2: 0.20, 3: 0.30} {
		s.SetPointRate(level, rate)
	}
	return []domain.User{admin, manager, collab, clientUser}
}
