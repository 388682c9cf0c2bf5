package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

// TicketRequestFilter narrows request listings.
type TicketRequestFilter struct {
	Status    *domain.TicketRequestStatus
	ProjectID *string
	Page      Page
}

// TicketRequestRepository persists client ticket requests.
type TicketRequestRepository interface {
	Create(ctx context.Context, req *domain.TicketRequest) error
	GetByID(ctx context.Context, id string) (*domain.TicketRequest, error)
	GetForUpdate(ctx context.Context, id string) (*domain.TicketRequest, error)
	UpdateDecision(ctx context.Context, req *domain.TicketRequest) error
	List(ctx context.Context, filter TicketRequestFilter, pred scope.RequestPredicate) ([]domain.TicketRequest, error)
	Stats(ctx context.Context, pred scope.RequestPredicate) (domain.TicketRequestStats, error)
}

type ticketRequestRepository struct {
	db DBTX
}

const requestColumns = `r.id, r.title, r.description, r.project_id, r.client_id, r.stage_id, r.priority, r.status,
               r.rejection_reason, r.validator_id, r.ticket_id, r.validated_at, r.created_at, r.updated_at`

func (r *ticketRequestRepository) Create(ctx context.Context, req *domain.TicketRequest) error {
	const query = `
        INSERT INTO ticket_requests (title, description, project_id, client_id, stage_id, priority, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		req.Title,
		req.Description,
		req.ProjectID,
		req.ClientID,
		req.StageID,
		req.Priority,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *ticketRequestRepository) GetByID(ctx context.Context, id string) (*domain.TicketRequest, error) {
	return scanTicketRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM ticket_requests r WHERE r.id=$1`, id))
}

func (r *ticketRequestRepository) GetForUpdate(ctx context.Context, id string) (*domain.TicketRequest, error) {
	return scanTicketRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM ticket_requests r WHERE r.id=$1 FOR UPDATE`, id))
}

// UpdateDecision writes the decision columns. The pending guard makes a second
// decision affect no rows even without a prior lock.
func (r *ticketRequestRepository) UpdateDecision(ctx context.Context, req *domain.TicketRequest) error {
	const query = `
        UPDATE ticket_requests SET status=$1, rejection_reason=$2, validator_id=$3, ticket_id=$4,
            validated_at=$5, updated_at=NOW()
        WHERE id=$6 AND status='pending'
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		req.Status,
		req.RejectionReason,
		req.ValidatorID,
		req.TicketID,
		req.ValidatedAt,
		req.ID,
	).Scan(&req.UpdatedAt)
}

func (r *ticketRequestRepository) List(ctx context.Context, filter TicketRequestFilter, pred scope.RequestPredicate) ([]domain.TicketRequest, error) {
	args := &queryArgs{}
	clauses := []string{requestScopeSQL(pred, args)}
	if filter.Status != nil {
		clauses = append(clauses, "r.status = "+args.add(*filter.Status))
	}
	if filter.ProjectID != nil {
		clauses = append(clauses, "r.project_id = "+args.add(*filter.ProjectID))
	}
	page := filter.Page.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM ticket_requests r WHERE %s ORDER BY r.created_at DESC LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), page.Limit, page.Offset)

	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketRequest
	for rows.Next() {
		req, err := scanTicketRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *ticketRequestRepository) Stats(ctx context.Context, pred scope.RequestPredicate) (domain.TicketRequestStats, error) {
	args := &queryArgs{}
	query := `
        SELECT COUNT(*) FILTER (WHERE r.status='pending'),
               COUNT(*) FILTER (WHERE r.status='approved'),
               COUNT(*) FILTER (WHERE r.status='rejected'),
               COUNT(*)
        FROM ticket_requests r WHERE ` + requestScopeSQL(pred, args)
	var stats domain.TicketRequestStats
	err := r.db.QueryRow(ctx, query, args.values...).Scan(&stats.Pending, &stats.Approved, &stats.Rejected, &stats.Total)
	return stats, err
}

func scanTicketRequest(row pgx.Row) (*domain.TicketRequest, error) {
	var req domain.TicketRequest
	var priority, status string
	if err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Description,
		&req.ProjectID,
		&req.ClientID,
		&req.StageID,
		&priority,
		&status,
		&req.RejectionReason,
		&req.ValidatorID,
		&req.TicketID,
		&req.ValidatedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	req.Priority = domain.TicketPriority(priority)
	req.Status = domain.TicketRequestStatus(status)
	return &req, nil
}
