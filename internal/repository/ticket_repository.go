package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

// TicketFilter captures list parameters. Scope is applied separately.
type TicketFilter struct {
	ProjectID  *string
	AssigneeID *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm *string
	Page       Page
}

// TicketRepository encapsulates ticket persistence. Soft-deleted rows are invisible
// to every read.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	Facts(ctx context.Context, ticket *domain.Ticket) (scope.TicketFacts, error)
	List(ctx context.Context, filter TicketFilter, pred scope.TicketPredicate) ([]domain.Ticket, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type ticketRepository struct {
	db DBTX
}

const ticketColumns = `t.id, t.external_key, t.project_id, t.stage_id, t.created_by, t.assignee_id,
               t.title, t.description, t.status, t.priority, t.estimated_hours, t.actual_hours,
               t.reward_points, t.deadline, t.opened_at, t.created_at, t.updated_at, t.deleted_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, project_id, stage_id, created_by, assignee_id, title, description,
            status, priority, estimated_hours, actual_hours, reward_points, deadline, opened_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.ProjectID,
		ticket.StageID,
		ticket.CreatedBy,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.EstimatedHours,
		ticket.ActualHours,
		ticket.RewardPoints,
		ticket.Deadline,
		ticket.OpenedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET stage_id=$1, assignee_id=$2, title=$3, description=$4, status=$5, priority=$6,
            estimated_hours=$7, actual_hours=$8, reward_points=$9, deadline=$10, opened_at=$11, updated_at=NOW()
        WHERE id=$12 AND deleted_at IS NULL
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.StageID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.EstimatedHours,
		ticket.ActualHours,
		ticket.RewardPoints,
		ticket.Deadline,
		ticket.OpenedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1 AND t.deleted_at IS NULL`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1 AND t.deleted_at IS NULL FOR UPDATE`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) Facts(ctx context.Context, ticket *domain.Ticket) (scope.TicketFacts, error) {
	facts := scope.TicketFacts{CreatedBy: ticket.CreatedBy, AssigneeID: ticket.AssigneeID}
	const query = `
        SELECT p.client_id,
               COALESCE(ARRAY(SELECT tu.team_id::text FROM team_user tu WHERE tu.user_id = $2), '{}')
        FROM projects p WHERE p.id = $1`
	var assignee any
	if ticket.AssigneeID != nil {
		assignee = *ticket.AssigneeID
	}
	if err := r.db.QueryRow(ctx, query, ticket.ProjectID, assignee).Scan(&facts.ProjectClientID, &facts.AssigneeTeamIDs); err != nil {
		return scope.TicketFacts{}, fmt.Errorf("load ticket scope facts: %w", err)
	}
	return facts, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter, pred scope.TicketPredicate) ([]domain.Ticket, error) {
	args := &queryArgs{}
	clauses := []string{"t.deleted_at IS NULL", ticketScopeSQL(pred, args)}

	if filter.ProjectID != nil {
		clauses = append(clauses, "t.project_id = "+args.add(*filter.ProjectID))
	}
	if filter.AssigneeID != nil {
		clauses = append(clauses, "t.assignee_id = "+args.add(*filter.AssigneeID))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("t.status = ANY(%s::text[])", args.add(statusValues(filter.Statuses))))
	}
	if len(filter.Priorities) > 0 {
		values := make([]string, len(filter.Priorities))
		for i, p := range filter.Priorities {
			values[i] = string(p)
		}
		clauses = append(clauses, fmt.Sprintf("t.priority = ANY(%s::text[])", args.add(values)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		p := args.add("%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%")
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.title) LIKE %s OR LOWER(t.description) LIKE %s)", p, p))
	}

	page := filter.Page.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE %s ORDER BY t.updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), page.Limit, page.Offset)

	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE tickets SET deleted_at=$1, updated_at=NOW() WHERE id=$2 AND deleted_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var status string
	if err := row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.ProjectID,
		&ticket.StageID,
		&ticket.CreatedBy,
		&ticket.AssigneeID,
		&ticket.Title,
		&ticket.Description,
		&status,
		&ticket.Priority,
		&ticket.EstimatedHours,
		&ticket.ActualHours,
		&ticket.RewardPoints,
		&ticket.Deadline,
		&ticket.OpenedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DeletedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.NormalizeTicketStatus(status)
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
