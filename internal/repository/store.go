package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the query surface shared by the pool and an open transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories and runs units of work atomically.
// Repositories obtained from the Store passed to fn share fn's transaction.
type Store interface {
	Tickets() TicketRepository
	TicketRequests() TicketRequestRepository
	TicketHistory() TicketHistoryRepository
	Users() UserRepository
	Teams() TeamRepository
	Clients() ClientRepository
	Projects() ProjectRepository
	PointHistory() PointHistoryRepository
	PointRates() PointRateRepository
	Notifications() NotificationRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// NewStore returns a Postgres-backed store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgStore{pool: s.pool, db: tx, inTx: true})
	})
}

func (s *pgStore) Tickets() TicketRepository { return &ticketRepository{db: s.db} }
func (s *pgStore) TicketRequests() TicketRequestRepository { return &ticketRequestRepository{db: s.db} }
func (s *pgStore) TicketHistory() TicketHistoryRepository { return &ticketHistoryRepository{db: s.db} }
func (s *pgStore) Users() UserRepository { return &userRepository{db: s.db} }
func (s *pgStore) Teams() TeamRepository { return &teamRepository{db: s.db} }
func (s *pgStore) Clients() ClientRepository { return &clientRepository{db: s.db} }
func (s *pgStore) Projects() ProjectRepository { return &projectRepository{db: s.db} }
func (s *pgStore) PointHistory() PointHistoryRepository { return &pointHistoryRepository{db: s.db} }
func (s *pgStore) PointRates() PointRateRepository { return &pointRateRepository{db: s.db} }
func (s *pgStore) Notifications() NotificationRepository { return &notificationRepository{db: s.db} }

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum page size.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
