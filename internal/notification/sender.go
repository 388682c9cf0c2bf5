package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/observability"
	"github.com/spec-kit/ticket-rewards/internal/repository"
)

// Sender records a job as an in-app notification and pushes it to the external
// channels it asks for. Channel failures are logged, not returned.
type Sender struct {
	users         repository.UserRepository
	notifications repository.NotificationRepository
	gateways      map[domain.Channel]Gateway
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewSender builds a sender over the given gateways.
func NewSender(store repository.Store, metrics *observability.Metrics, logger *zap.Logger, gateways ...Gateway) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	byChannel := make(map[domain.Channel]Gateway, len(gateways))
	for _, gw := range gateways {
		byChannel[gw.Channel()] = gw
	}
	return &Sender{
		users:         store.Users(),
		notifications: store.Notifications(),
		gateways:      byChannel,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// Deliver persists the notification record and attempts every external channel.
// It returns an error only when the record itself could not be stored.
func (s *Sender) Deliver(ctx context.Context, job Job) (*domain.Notification, error) {
	recipient, err := s.users.GetByID(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("load recipient %s: %w", job.UserID, err)
	}

	record := &domain.Notification{
		UserID:  job.UserID,
		Type:    job.Type,
		Title:   job.Title,
		Message: job.Message,
		Data:    job.Data,
		Channel: domain.PrimaryChannel(job.Channels),
	}
	if err := s.notifications.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	allSent := true
	for _, channel := range job.Channels {
		if channel == domain.ChannelSystem {
			continue
		}
		gw, ok := s.gateways[channel]
		if !ok {
			allSent = false
			continue
		}
		if err := gw.Send(ctx, recipient, job); err != nil {
			allSent = false
			s.metrics.RecordNotification(observability.NotificationFailed, string(channel))
			s.logger.Warn("notification channel failed",
				zap.String("channel", string(channel)),
				zap.String("user_id", job.UserID),
				zap.String("type", job.Type),
				zap.Error(err))
			continue
		}
		s.metrics.RecordNotification(observability.NotificationDelivered, string(channel))
	}

	if allSent {
		at := s.now()
		if err := s.notifications.MarkSent(ctx, record.ID, at); err != nil {
			s.logger.Warn("mark notification sent failed", zap.String("notification_id", record.ID), zap.Error(err))
		} else {
			record.Sent = true
			record.SentAt = &at
		}
	}
	s.metrics.RecordNotification(observability.NotificationDelivered, string(domain.ChannelSystem))
	return record, nil
}
