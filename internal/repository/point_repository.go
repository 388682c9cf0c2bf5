package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

// PointHistoryRepository is the append-only points journal.
type PointHistoryRepository interface {
	Create(ctx context.Context, entry *domain.PointHistory) error
	ListByUser(ctx context.Context, userID string, page Page) ([]domain.PointHistory, error)
	ListVisible(ctx context.Context, pred scope.UserPredicate, page Page) ([]domain.PointHistory, error)
}

// PointRateRepository reads the per-level monetary rates.
type PointRateRepository interface {
	GetByLevel(ctx context.Context, level int) (*domain.PointRate, error)
}

type pointHistoryRepository struct {
	db DBTX
}

func (r *pointHistoryRepository) Create(ctx context.Context, entry *domain.PointHistory) error {
	const query = `
        INSERT INTO point_history (user_id, ticket_id, points, description, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.TicketID,
		entry.Points,
		entry.Description,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *pointHistoryRepository) ListByUser(ctx context.Context, userID string, page Page) ([]domain.PointHistory, error) {
	return r.ListVisible(ctx, scope.UserPredicate{Kind: scope.KindRestricted, UserID: userID}, page)
}

func (r *pointHistoryRepository) ListVisible(ctx context.Context, pred scope.UserPredicate, page Page) ([]domain.PointHistory, error) {
	args := &queryArgs{}
	page = page.Normalize()
	query := fmt.Sprintf(`
        SELECT ph.id, ph.user_id, ph.ticket_id, ph.points, ph.description, ph.created_at
        FROM point_history ph WHERE %s
        ORDER BY ph.created_at DESC LIMIT %d OFFSET %d`,
		userScopeSQL(pred, "ph.user_id", args), page.Limit, page.Offset)
	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PointHistory
	for rows.Next() {
		var entry domain.PointHistory
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.TicketID, &entry.Points, &entry.Description, &entry.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

type pointRateRepository struct {
	db DBTX
}

func (r *pointRateRepository) GetByLevel(ctx context.Context, level int) (*domain.PointRate, error) {
	var rate domain.PointRate
	if err := r.db.QueryRow(ctx, `SELECT level, rate FROM point_rates WHERE level=$1`, level).Scan(&rate.Level, &rate.Rate); err != nil {
		return nil, err
	}
	return &rate, nil
}
