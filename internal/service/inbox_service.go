package service

import (
	"context"
	"time"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

const inboxLimit = 20

// InboxService lets users read and acknowledge their own notifications.
type InboxService struct {
	store repository.Store
	now   func() time.Time
}

// NewInboxService constructs InboxService.
func NewInboxService(store repository.Store, clock func() time.Time) *InboxService {
	if clock == nil {
		clock = time.Now
	}
	return &InboxService{store: store, now: clock}
}

// List returns the latest notifications of actor.
func (s *InboxService) List(ctx context.Context, actor domain.Actor) ([]domain.Notification, error) {
	items, err := s.store.Notifications().ListByUser(ctx, actor.UserID, inboxLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// MarkRead acknowledges one notification owned by actor.
func (s *InboxService) MarkRead(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.store.Notifications().MarkRead(ctx, id, actor.UserID, s.now()); err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewNotFound("notification", nil)
		}
		return apperrors.MapError(err)
	}
	return nil
}

// MarkAllRead acknowledges every unread notification of actor.
func (s *InboxService) MarkAllRead(ctx context.Context, actor domain.Actor) (int64, error) {
	n, err := s.store.Notifications().MarkAllRead(ctx, actor.UserID, s.now())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return n, nil
}
