package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

type ticketHistoryRepo struct{ s *Store }

func (r ticketHistoryRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	return r.s.write(func(d *dataset) error {
		history.ID = uuid.NewString()
		history.CreatedAt = time.Now().UTC()
		d.ticketHistory = append(d.ticketHistory, *history)
		return nil
	})
}

func (r ticketHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var result []domain.TicketHistory
	r.s.read(func(d *dataset) {
		for _, h := range d.ticketHistory {
			if h.TicketID == ticketID {
				result = append(result, h)
			}
		}
	})
	return result, nil
}

type pointHistoryRepo struct{ s *Store }

func (r pointHistoryRepo) Create(_ context.Context, entry *domain.PointHistory) error {
	return r.s.write(func(d *dataset) error {
		entry.ID = uuid.NewString()
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		stored := *entry
		stored.TicketID = copyString(entry.TicketID)
		d.pointHistory = append(d.pointHistory, stored)
		return nil
	})
}

func (r pointHistoryRepo) ListByUser(ctx context.Context, userID string, page repository.Page) ([]domain.PointHistory, error) {
	return r.ListVisible(ctx, scope.UserPredicate{Kind: scope.KindRestricted, UserID: userID}, page)
}

func (r pointHistoryRepo) ListVisible(_ context.Context, pred scope.UserPredicate, page repository.Page) ([]domain.PointHistory, error) {
	var result []domain.PointHistory
	r.s.read(func(d *dataset) {
		// newest first; append order breaks timestamp ties
		for i := len(d.pointHistory) - 1; i >= 0; i-- {
			entry := d.pointHistory[i]
			if pred.Matches(entry.UserID, teamsOf(d, entry.UserID)) {
				result = append(result, entry)
			}
		}
	})
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return paginate(result, page), nil
}

type pointRateRepo struct{ s *Store }

func (r pointRateRepo) GetByLevel(_ context.Context, level int) (*domain.PointRate, error) {
	var out *domain.PointRate
	r.s.read(func(d *dataset) {
		if rate, ok := d.pointRates[level]; ok {
			out = &rate
		}
	})
	if out == nil {
		return nil, errNotFound
	}
	return out, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	return r.s.write(func(d *dataset) error {
		n.ID = uuid.NewString()
		n.CreatedAt = time.Now().UTC()
		d.notifications = append(d.notifications, *n)
		return nil
	})
}

func (r notificationRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	return r.s.write(func(d *dataset) error {
		for i := range d.notifications {
			if d.notifications[i].ID == id {
				sent := at
				d.notifications[i].Sent = true
				d.notifications[i].SentAt = &sent
				return nil
			}
		}
		return errNotFound
	})
}

func (r notificationRepo) ListByUser(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	var result []domain.Notification
	r.s.read(func(d *dataset) {
		for i := len(d.notifications) - 1; i >= 0 && len(result) < limit; i-- {
			if d.notifications[i].UserID == userID {
				result = append(result, d.notifications[i])
			}
		}
	})
	return result, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id, userID string, at time.Time) error {
	return r.s.write(func(d *dataset) error {
		for i := range d.notifications {
			n := &d.notifications[i]
			if n.ID != id || n.UserID != userID {
				continue
			}
			n.Read = true
			if n.ReadAt == nil {
				readAt := at
				n.ReadAt = &readAt
			}
			return nil
		}
		return errNotFound
	})
}

func (r notificationRepo) MarkAllRead(_ context.Context, userID string, at time.Time) (int64, error) {
	var count int64
	err := r.s.write(func(d *dataset) error {
		for i := range d.notifications {
			n := &d.notifications[i]
			if n.UserID != userID || n.Read {
				continue
			}
			readAt := at
			n.Read = true
			n.ReadAt = &readAt
			count++
		}
		return nil
	})
	return count, err
}
