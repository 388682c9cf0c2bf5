package repository

import (
	"context"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// ClientRepository reads external customers.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
}

type clientRepository struct {
	db DBTX
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	var client domain.Client
	if err := r.db.QueryRow(ctx, `SELECT id, name, email, user_id FROM clients WHERE id=$1`, id).Scan(
		&client.ID,
		&client.Name,
		&client.Email,
		&client.UserID,
	); err != nil {
		return nil, err
	}
	return &client, nil
}
