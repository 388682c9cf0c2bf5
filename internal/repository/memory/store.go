// Package memory is an in-process repository.Store. Transactions run against a
// snapshot that replaces the committed state only when the unit of work succeeds,
// and writers are serialized, which stands in for row locks.
package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/repository"
)

type dataset struct {
	users         map[string]domain.User
	teams         map[string]domain.Team
	teamMembers   map[string][]string // team id -> user ids
	clients       map[string]domain.Client
	projects      map[string]domain.Project
	tickets       map[string]domain.Ticket
	requests      map[string]domain.TicketRequest
	ticketHistory []domain.TicketHistory
	pointHistory  []domain.PointHistory
	pointRates    map[int]domain.PointRate
	notifications []domain.Notification
}

func newDataset() *dataset {
	return &dataset{
		users:       map[string]domain.User{},
		teams:       map[string]domain.Team{},
		teamMembers: map[string][]string{},
		clients:     map[string]domain.Client{},
		projects:    map[string]domain.Project{},
		tickets:     map[string]domain.Ticket{},
		requests:    map[string]domain.TicketRequest{},
		pointRates:  map[int]domain.PointRate{},
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.teams {
		c.teams[k] = v
	}
	for k, v := range d.teamMembers {
		c.teamMembers[k] = append([]string(nil), v...)
	}
	for k, v := range d.clients {
		c.clients[k] = v
	}
	for k, v := range d.projects {
		c.projects[k] = v
	}
	for k, v := range d.tickets {
		c.tickets[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	for k, v := range d.pointRates {
		c.pointRates[k] = v
	}
	c.ticketHistory = append([]domain.TicketHistory(nil), d.ticketHistory...)
	c.pointHistory = append([]domain.PointHistory(nil), d.pointHistory...)
	c.notifications = append([]domain.Notification(nil), d.notifications...)
	return c
}

type shared struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	data    *dataset
}

// Store implements repository.Store in memory.
type Store struct {
	sh *shared
	tx *dataset
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sh: &shared{data: newDataset()}}
}

// WithinTx runs fn against a private snapshot and publishes it if fn succeeds.
// Nested calls join the outer unit of work.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.sh.writeMu.Lock()
	defer s.sh.writeMu.Unlock()

	s.sh.mu.RLock()
	snapshot := s.sh.data.clone()
	s.sh.mu.RUnlock()

	if err := fn(&Store{sh: s.sh, tx: snapshot}); err != nil {
		return err
	}

	s.sh.mu.Lock()
	s.sh.data = snapshot
	s.sh.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(d *dataset)) {
	if s.tx != nil {
		fn(s.tx)
		return
	}
	s.sh.mu.RLock()
	defer s.sh.mu.RUnlock()
	fn(s.sh.data)
}

// write applies fn directly outside a transaction. fn must validate before mutating.
func (s *Store) write(fn func(d *dataset) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.sh.writeMu.Lock()
	defer s.sh.writeMu.Unlock()
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()
	return fn(s.sh.data)
}

func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }
func (s *Store) TicketRequests() repository.TicketRequestRepository { return requestRepo{s} }
func (s *Store) TicketHistory() repository.TicketHistoryRepository { return ticketHistoryRepo{s} }
func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Teams() repository.TeamRepository { return teamRepo{s} }
func (s *Store) Clients() repository.ClientRepository { return clientRepo{s} }
func (s *Store) Projects() repository.ProjectRepository { return projectRepo{s} }
func (s *Store) PointHistory() repository.PointHistoryRepository { return pointHistoryRepo{s} }
func (s *Store) PointRates() repository.PointRateRepository { return pointRateRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }

var errNotFound = pgx.ErrNoRows

func paginate[T any](items []T, page repository.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

func cloneIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return append([]string(nil), ids...)
}
