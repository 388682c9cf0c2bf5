package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/events"
	"github.com/spec-kit/ticket-rewards/internal/notification"
	"github.com/spec-kit/ticket-rewards/internal/observability"
	"github.com/spec-kit/ticket-rewards/internal/repository"
)

var (
	statusChannels = []domain.Channel{domain.ChannelSystem, domain.ChannelWhatsApp}
	assignChannels = []domain.Channel{domain.ChannelSystem, domain.ChannelEmail, domain.ChannelWhatsApp}
	systemChannels = []domain.Channel{domain.ChannelSystem}
	mailChannels   = []domain.Channel{domain.ChannelSystem, domain.ChannelEmail}
)

// NotificationService turns committed domain events into notification jobs.
// It decides recipients and channels only; delivery happens in the worker.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      notification.Queue
	store      repository.Store
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue notification.Queue, store repository.Store, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		store:      store,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketRequestSubmitted, n.handleRequestSubmitted)
	n.dispatcher.Subscribe(events.EventTicketRequestApproved, n.handleRequestApproved)
	n.dispatcher.Subscribe(events.EventTicketRequestRejected, n.handleRequestRejected)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok || payload.AssigneeID == nil || *payload.AssigneeID == event.ActorID {
		return nil
	}
	n.enqueue(ctx, notification.Job{
		UserID:   *payload.AssigneeID,
		Type:     notification.TypeTicketAssigned,
		Title:    "Ticket assigned",
		Message:  fmt.Sprintf("Ticket %q has been assigned to you.", payload.Title),
		Data:     map[string]any{"ticket_id": event.EntityID},
		Channels: assignChannels,
	})
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok || payload.AssigneeID == nil {
		return nil
	}
	if *payload.AssigneeID == event.ActorID {
		// Self pick-up: the creator learns who took the ticket.
		if payload.CreatedBy != "" && payload.CreatedBy != event.ActorID {
			n.enqueue(ctx, notification.Job{
				UserID:   payload.CreatedBy,
				Type:     notification.TypeTicketPickedUp,
				Title:    "Ticket picked up",
				Message:  fmt.Sprintf("Ticket %q has been picked up.", payload.Title),
				Data:     map[string]any{"ticket_id": event.EntityID, "assignee_id": *payload.AssigneeID},
				Channels: []domain.Channel{domain.ChannelSystem},
			})
		}
		return nil
	}
	n.enqueue(ctx, notification.Job{
		UserID:   *payload.AssigneeID,
		Type:     notification.TypeTicketAssigned,
		Title:    "Ticket assigned",
		Message:  fmt.Sprintf("Ticket %q has been assigned to you.", payload.Title),
		Data:     map[string]any{"ticket_id": event.EntityID},
		Channels: assignChannels,
	})
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	data := map[string]any{
		"ticket_id":  event.EntityID,
		"old_status": payload.OldStatus,
		"new_status": payload.NewStatus,
	}
	participants := participantsExcept(event.ActorID, payload.CreatedBy, payload.AssigneeID)

	for _, userID := range participants {
		n.enqueue(ctx, notification.Job{
			UserID:   userID,
			Type:     notification.TypeTicketStatusChanged,
			Title:    "Status updated",
			Message:  fmt.Sprintf("Ticket %q moved from %s to %s.", payload.Title, payload.OldStatus, payload.NewStatus),
			Data:     data,
			Channels: statusChannels,
		})
	}

	if payload.AssigneeID != nil {
		assignee := *payload.AssigneeID
		if payload.PenaltyApplied {
			n.enqueue(ctx, notification.Job{
				UserID:   assignee,
				Type:     notification.TypeTicketPenalty,
				Title:    "Rework penalty",
				Message:  fmt.Sprintf("Ticket %q went back to work after resolution; its reward dropped from %d to %d points.", payload.Title, payload.PenaltyBefore, payload.PenaltyAfter),
				Data:     data,
				Channels: statusChannels,
			})
		}
		if payload.RevisionRequested {
			n.enqueue(ctx, notification.Job{
				UserID:   assignee,
				Type:     notification.TypeTicketRevisionRequested,
				Title:    "Updates required",
				Message:  fmt.Sprintf("Ticket %q was reopened and needs updates.", payload.Title),
				Data:     data,
				Channels: statusChannels,
			})
		}
		if payload.CreditedPoints > 0 {
			n.enqueue(ctx, notification.Job{
				UserID:   assignee,
				Type:     notification.TypePointsEarned,
				Title:    "Points earned",
				Message:  fmt.Sprintf("You earned %d points for closing ticket %q.", payload.CreditedPoints, payload.Title),
				Data:     map[string]any{"ticket_id": event.EntityID, "points": payload.CreditedPoints},
				Channels: statusChannels,
			})
		}
	}

	if payload.Reopened {
		for _, userID := range participantsExcept("", payload.CreatedBy, payload.AssigneeID) {
			n.enqueue(ctx, notification.Job{
				UserID:   userID,
				Type:     notification.TypeTicketReopened,
				Title:    "Ticket reopened",
				Message:  fmt.Sprintf("Ticket %q was reopened (%s to %s).", payload.Title, payload.OldStatus, payload.NewStatus),
				Data:     data,
				Channels: statusChannels,
			})
		}
	}
	return nil
}

func (n *NotificationService) handleRequestSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRequestSubmittedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	admins, err := n.store.Users().ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	for _, admin := range admins {
		n.enqueue(ctx, notification.Job{
			UserID:   admin.ID,
			Type:     notification.TypeRequestSubmitted,
			Title:    "New ticket request",
			Message:  fmt.Sprintf("A client submitted the ticket request %q.", payload.Title),
			Data:     map[string]any{"ticket_request_id": event.EntityID, "project_id": payload.ProjectID},
			Channels: systemChannels,
		})
	}
	return nil
}

func (n *NotificationService) handleRequestApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRequestApprovedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	data := map[string]any{"ticket_request_id": event.EntityID, "ticket_id": payload.TicketID}
	if payload.ClientUserID != nil {
		n.enqueue(ctx, notification.Job{
			UserID:   *payload.ClientUserID,
			Type:     notification.TypeRequestApproved,
			Title:    "Ticket request approved",
			Message:  fmt.Sprintf("Your request %q was approved and is now being worked on.", payload.Title),
			Data:     data,
			Channels: mailChannels,
		})
	}
	if payload.AssigneeID != nil && *payload.AssigneeID != event.ActorID {
		n.enqueue(ctx, notification.Job{
			UserID:   *payload.AssigneeID,
			Type:     notification.TypeTicketAssigned,
			Title:    "Ticket assigned",
			Message:  fmt.Sprintf("Ticket %q has been assigned to you.", payload.Title),
			Data:     data,
			Channels: assignChannels,
		})
	}
	return nil
}

func (n *NotificationService) handleRequestRejected(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRequestRejectedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	if payload.ClientUserID == nil {
		return nil
	}
	n.enqueue(ctx, notification.Job{
		UserID:   *payload.ClientUserID,
		Type:     notification.TypeRequestRejected,
		Title:    "Ticket request rejected",
		Message:  fmt.Sprintf("Your request %q was rejected: %s", payload.Title, payload.Reason),
		Data:     map[string]any{"ticket_request_id": event.EntityID, "reason": payload.Reason},
		Channels: mailChannels,
	})
	return nil
}

// enqueue never fails the caller; a full or broken queue drops the job with a log line.
func (n *NotificationService) enqueue(ctx context.Context, job notification.Job) {
	job.ID = uuid.NewString()
	job.CreatedAt = n.now()
	channel := string(domain.PrimaryChannel(job.Channels))
	if err := n.queue.Enqueue(ctx, job); err != nil {
		n.metrics.RecordNotification(observability.NotificationDropped, channel)
		n.logger.Warn("notification dropped",
			zap.String("user_id", job.UserID),
			zap.String("type", job.Type),
			zap.Error(err))
		return
	}
	n.metrics.RecordNotification(observability.NotificationEnqueued, channel)
}

func participantsExcept(actorID, createdBy string, assigneeID *string) []string {
	var out []string
	if createdBy != "" && createdBy != actorID {
		out = append(out, createdBy)
	}
	if assigneeID != nil && *assigneeID != createdBy && *assigneeID != actorID {
		out = append(out, *assigneeID)
	}
	return out
}
