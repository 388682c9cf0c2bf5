package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/events"
	"github.com/spec-kit/ticket-rewards/internal/lifecycle"
	"github.com/spec-kit/ticket-rewards/internal/notification"
	"github.com/spec-kit/ticket-rewards/internal/points"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/repository/memory"
)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int        { return &v }

// Monday 2 March 2026, 09:00 UTC.
var monday9 = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingDispatcher struct {
	events.Dispatcher
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return r.Dispatcher.Publish(ctx, event)
}

func (r *recordingDispatcher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctx        context.Context
	store      *memory.Store
	clock      *fakeClock
	dispatcher *recordingDispatcher
	queue      *notification.MemoryQueue

	tickets     *TicketService
	assignments *AssignmentService
	requests    *TicketRequestService
	points      *PointsService
	projects    *ProjectService
	inbox       *InboxService

	admin, manager, collab, peer, outsider, clientUser domain.User
	team                                               domain.Team
	client                                             domain.Client
	project, otherProject                              domain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

// newFixtureWithStore wires the services over wrap(store) when wrap is non-nil.
func newFixtureWithStore(t *testing.T, wrap func(repository.Store) repository.Store) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: memory.NewStore(),
		clock: &fakeClock{now: monday9},
		queue: notification.NewMemoryQueue(64),
	}
	f.dispatcher = &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher(zap.NewNop())}

	f.admin = f.store.AddUser(domain.User{Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin})
	f.manager = f.store.AddUser(domain.User{Name: "Max", Role: domain.RoleManager})
	f.collab = f.store.AddUser(domain.User{Name: "Cleo", Role: domain.RoleCollaborator})
	f.peer = f.store.AddUser(domain.User{Name: "Pim", Role: domain.RoleCollaborator})
	f.outsider = f.store.AddUser(domain.User{Name: "Otto", Role: domain.RoleCollaborator})
	f.clientUser = f.store.AddUser(domain.User{Name: "Carla", Role: domain.RoleClient})
	f.team = f.store.AddTeam(domain.Team{Name: "Core"}, f.manager.ID, f.collab.ID, f.peer.ID)
	f.client = f.store.AddClient(domain.Client{Name: "Acme", UserID: strPtr(f.clientUser.ID)})
	f.project = f.store.AddProject(domain.Project{
		Name:      "Portal",
		Type:      domain.ProjectTypeExternal,
		ManagerID: strPtr(f.manager.ID),
		ClientID:  strPtr(f.client.ID),
		TeamIDs:   []string{f.team.ID},
	})
	f.otherProject = f.store.AddProject(domain.Project{Name: "Back office"})

	var store repository.Store = f.store
	if wrap != nil {
		store = wrap(f.store)
	}
	machine := lifecycle.NewMachine(time.UTC)
	f.tickets = NewTicketService(TicketDependencies{
		Store:      store,
		Machine:    machine,
		Ledger:     points.NewLedger(f.clock.Now),
		Dispatcher: f.dispatcher,
		Clock:      f.clock.Now,
	})
	f.assignments = NewAssignmentService(AssignmentDependencies{Store: store, Dispatcher: f.dispatcher, Clock: f.clock.Now})
	f.requests = NewTicketRequestService(TicketRequestDependencies{
		Store:      store,
		Machine:    machine,
		Dispatcher: f.dispatcher,
		Clock:      f.clock.Now,
	})
	f.points = NewPointsService(store)
	f.projects = NewProjectService(store)
	f.inbox = NewInboxService(store, f.clock.Now)
	NewNotificationService(f.dispatcher, f.queue, store, nil, zap.NewNop()).RegisterHandlers()
	return f
}

func (f *fixture) actor(t *testing.T, u domain.User) domain.Actor {
	t.Helper()
	stored, err := f.store.Users().GetByID(f.ctx, u.ID)
	require.NoError(t, err)
	return stored.Actor()
}

// drain empties the notification queue.
func (f *fixture) drain(t *testing.T) []notification.Job {
	t.Helper()
	var jobs []notification.Job
	for f.queue.Len() > 0 {
		job, err := f.queue.Dequeue(f.ctx)
		require.NoError(t, err)
		jobs = append(jobs, job)
	}
	return jobs
}

func jobsFor(jobs []notification.Job, userID string) []string {
	var types []string
	for _, j := range jobs {
		if j.UserID == userID {
			types = append(types, j.Type)
		}
	}
	return types
}

// newTicket creates a ticket as the manager, assigned to the collaborator.
func (f *fixture) newTicket(t *testing.T, reward int) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(f.ctx, f.actor(t, f.manager), CreateTicketInput{
		ProjectID:    f.project.ID,
		Title:        "Fix login",
		AssigneeID:   strPtr(f.collab.ID),
		RewardPoints: intPtr(reward),
	})
	require.NoError(t, err)
	return ticket
}
