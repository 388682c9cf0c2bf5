package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

// UserRepository defines persistence access for workspace users. Team ids and the
// linked client id are loaded with every read.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetForUpdate(ctx context.Context, id string) (*domain.User, error)
	UpdatePoints(ctx context.Context, id string, points, level int) error
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	ListVisible(ctx context.Context, pred scope.UserPredicate, page Page) ([]domain.User, error)
}

type userRepository struct {
	db DBTX
}

const userColumns = `u.id, u.name, u.email, u.phone, u.role, u.points, u.level, u.created_at, u.updated_at,
               COALESCE(ARRAY(SELECT tu.team_id::text FROM team_user tu WHERE tu.user_id = u.id ORDER BY tu.team_id), '{}'),
               (SELECT c.id::text FROM clients c WHERE c.user_id = u.id ORDER BY c.created_at LIMIT 1)`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, phone, role, points, level)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Phone,
		user.Role,
		user.Points,
		user.Level,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id=$1`, id))
}

// GetForUpdate locks the user row until the surrounding transaction ends.
func (r *userRepository) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id=$1 FOR UPDATE OF u`, id))
}

func (r *userRepository) UpdatePoints(ctx context.Context, id string, points, level int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET points=$1, level=$2, updated_at=NOW() WHERE id=$3`, points, level, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users u WHERE u.role=$1 ORDER BY u.name`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) ListVisible(ctx context.Context, pred scope.UserPredicate, page Page) ([]domain.User, error) {
	args := &queryArgs{}
	page = page.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM users u WHERE %s ORDER BY u.points DESC, u.name LIMIT %d OFFSET %d`,
		userColumns, userScopeSQL(pred, "u.id", args), page.Limit, page.Offset)
	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var role string
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&role,
		&user.Points,
		&user.Level,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.TeamIDs,
		&user.ClientID,
	); err != nil {
		return nil, err
	}
	user.Role = domain.ParseRole(role)
	return &user, nil
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}
