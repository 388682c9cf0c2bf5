package repository

import (
	"context"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// TeamRepository reads teams and their memberships. Team administration is external.
type TeamRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Team, error)
	MemberIDs(ctx context.Context, teamIDs []string) ([]string, error)
}

type teamRepository struct {
	db DBTX
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = `
        SELECT id, name, description, created_at, updated_at
        FROM teams WHERE id=$1`
	var team domain.Team
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) ListByUser(ctx context.Context, userID string) ([]domain.Team, error) {
	const query = `
        SELECT t.id, t.name, t.description, t.created_at, t.updated_at
        FROM teams t JOIN team_user tu ON tu.team_id = t.id
        WHERE tu.user_id=$1 ORDER BY t.name`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}

func (r *teamRepository) MemberIDs(ctx context.Context, teamIDs []string) ([]string, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT DISTINCT user_id::text FROM team_user WHERE team_id = ANY($1::uuid[])`, teamIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
