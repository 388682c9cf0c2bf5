package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

// ProjectRepository reads projects. Project mutation is owned by another service.
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	Facts(ctx context.Context, project *domain.Project) (scope.ProjectFacts, error)
	List(ctx context.Context, pred scope.ProjectPredicate, page Page) ([]domain.Project, error)
}

type projectRepository struct {
	db DBTX
}

const projectColumns = `p.id, p.name, p.type, p.description, p.manager_id, p.client_id, p.status, p.created_at, p.updated_at,
               COALESCE(ARRAY(SELECT pt.team_id::text FROM project_team pt WHERE pt.project_id = p.id ORDER BY pt.team_id), '{}')`

func (r *projectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return scanProject(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id=$1`, id))
}

func (r *projectRepository) Facts(ctx context.Context, project *domain.Project) (scope.ProjectFacts, error) {
	facts := scope.ProjectFacts{
		ManagerID: project.ManagerID,
		ClientID:  project.ClientID,
		TeamIDs:   project.TeamIDs,
	}
	const query = `
        SELECT DISTINCT u::text FROM (
            SELECT created_by AS u FROM tickets WHERE project_id=$1 AND deleted_at IS NULL
            UNION
            SELECT assignee_id AS u FROM tickets WHERE project_id=$1 AND deleted_at IS NULL AND assignee_id IS NOT NULL
        ) participants`
	rows, err := r.db.Query(ctx, query, project.ID)
	if err != nil {
		return scope.ProjectFacts{}, fmt.Errorf("load project participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return scope.ProjectFacts{}, err
		}
		facts.TicketUserIDs = append(facts.TicketUserIDs, id)
	}
	return facts, rows.Err()
}

func (r *projectRepository) List(ctx context.Context, pred scope.ProjectPredicate, page Page) ([]domain.Project, error) {
	args := &queryArgs{}
	page = page.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM projects p WHERE %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`,
		projectColumns, projectScopeSQL(pred, args), page.Limit, page.Offset)
	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *project)
	}
	return result, rows.Err()
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var project domain.Project
	var projectType string
	if err := row.Scan(
		&project.ID,
		&project.Name,
		&projectType,
		&project.Description,
		&project.ManagerID,
		&project.ClientID,
		&project.Status,
		&project.CreatedAt,
		&project.UpdatedAt,
		&project.TeamIDs,
	); err != nil {
		return nil, err
	}
	project.Type = domain.ProjectType(projectType)
	return &project, nil
}
