package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// NotificationRepository persists delivered notification records.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
}

type notificationRepository struct {
	db DBTX
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, type, title, message, data, channel, is_read, is_sent, sent_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		jsonObject(n.Data),
		n.Channel,
		n.Read,
		n.Sent,
		n.SentAt,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET is_sent=TRUE, sent_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, user_id, type, title, message, data, channel, is_read, is_sent, read_at, sent_at, created_at
        FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var channel string
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.Data,
			&channel,
			&n.Read,
			&n.Sent,
			&n.ReadAt,
			&n.SentAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		n.Channel = domain.Channel(channel)
		result = append(result, n)
	}
	return result, rows.Err()
}

// MarkRead only touches rows owned by userID; anything else reports pgx.ErrNoRows.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET is_read=TRUE, read_at=COALESCE(read_at, $1) WHERE id=$2 AND user_id=$3`, at, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET is_read=TRUE, read_at=$1 WHERE user_id=$2 AND is_read=FALSE`, at, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
