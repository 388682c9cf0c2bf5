package service

import (
	"context"
	"time"

	"github.com/spec-kit/ticket-rewards/internal/authz"
	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/events"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	now        func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Clock      func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AssignmentService{store: deps.Store, dispatcher: deps.Dispatcher, now: clock}
}

// AssignTicket sets or clears the assignee (manager/admin only).
func (s *AssignmentService) AssignTicket(ctx context.Context, actor domain.Actor, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	if err := authz.CanManageTicket(actor); err != nil {
		return nil, err
	}
	if assigneeID != nil {
		if _, err := loadAssignee(ctx, s.store, *assigneeID); err != nil {
			return nil, err
		}
	}
	var (
		updated  *domain.Ticket
		previous *string
		changed  bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return lookupError(err, "ticket")
		}
		if err := checkTicketScope(ctx, tx, actor, ticket); err != nil {
			return err
		}
		updated = ticket
		if sameAssignee(ticket.AssigneeID, assigneeID) {
			return nil
		}
		previous = ticket.AssigneeID
		ticket.AssigneeID = assigneeID
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		changed = true
		history := historyEntry(ticket.ID, actor.UserID, domain.ChangeTypeAssignee,
			map[string]any{"assignee_id": previous}, map[string]any{"assignee_id": assigneeID})
		return tx.TicketHistory().Create(ctx, &history)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if changed {
		publish(ctx, s.dispatcher, s.now, events.EventTicketAssigned, updated.ID, actor.UserID, events.TicketAssignedPayload{
			Title:              updated.Title,
			CreatedBy:          updated.CreatedBy,
			PreviousAssigneeID: previous,
			AssigneeID:         updated.AssigneeID,
		})
	}
	return updated, nil
}

// SelfAssignTicket lets a collaborator pick up an unassigned ticket they can already see.
func (s *AssignmentService) SelfAssignTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if actor.EffectiveRole() == domain.RoleClient {
		return nil, apperrors.NewForbidden("clients cannot take tickets")
	}
	var (
		updated *domain.Ticket
		changed bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return lookupError(err, "ticket")
		}
		if err := checkTicketScope(ctx, tx, actor, ticket); err != nil {
			return err
		}
		if ticket.AssigneeID != nil {
			if *ticket.AssigneeID == actor.UserID {
				updated = ticket
				return nil
			}
			return apperrors.NewConflict("ticket already assigned", map[string]any{"ticket_id": ticketID})
		}
		self := actor.UserID
		ticket.AssigneeID = &self
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		updated = ticket
		changed = true
		history := historyEntry(ticket.ID, actor.UserID, domain.ChangeTypeAssignee,
			map[string]any{"assignee_id": nil}, map[string]any{"assignee_id": self})
		return tx.TicketHistory().Create(ctx, &history)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if changed {
		publish(ctx, s.dispatcher, s.now, events.EventTicketAssigned, updated.ID, actor.UserID, events.TicketAssignedPayload{
			Title:      updated.Title,
			CreatedBy:  updated.CreatedBy,
			AssigneeID: updated.AssigneeID,
		})
	}
	return updated, nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
