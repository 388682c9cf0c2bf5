package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-rewards/internal/authz"
	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/events"
	"github.com/spec-kit/ticket-rewards/internal/lifecycle"
	"github.com/spec-kit/ticket-rewards/internal/points"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/scope"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

// TicketService implements ticket lifecycle operations.
type TicketService struct {
	store      repository.Store
	machine    *lifecycle.Machine
	ledger     *points.Ledger
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Machine    *lifecycle.Machine
	Ledger     *points.Ledger
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewTicketService constructs TicketService.
func NewTicketService(deps TicketDependencies) *TicketService {
	machine := deps.Machine
	if machine == nil {
		machine = lifecycle.NewMachine(time.UTC)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	ledger := deps.Ledger
	if ledger == nil {
		ledger = points.NewLedger(clock)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		store:      deps.Store,
		machine:    machine,
		ledger:     ledger,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// CreateTicketInput carries fields for a new ticket.
type CreateTicketInput struct {
	ProjectID      string
	StageID        *string
	Title          string
	Description    string
	Priority       string
	AssigneeID     *string
	EstimatedHours *float64
	Deadline       *time.Time
	RewardPoints   *int
}

// UpdateTicketInput carries editable ticket fields. Nil fields are left untouched.
type UpdateTicketInput struct {
	Title          *string
	Description    *string
	Priority       *string
	StageID        *string
	EstimatedHours *float64
	Deadline       *time.Time
	RewardPoints   *int
}

// ListTicketsInput carries list filters.
type ListTicketsInput struct {
	ProjectID  *string
	AssigneeID *string
	Statuses   []string
	Priorities []string
	Search     *string
	Limit      int
	Offset     int
}

// TransitionResult describes a completed status change.
type TransitionResult struct {
	Ticket   *domain.Ticket
	Effects  lifecycle.Effects
	Credited int
	Assignee *domain.User
}

// CreateTicket validates input and stores a new ticket in the initial lifecycle state.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if err := authz.CanCreateTicket(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority := domain.TicketPriorityNormal
	if strings.TrimSpace(input.Priority) != "" {
		p, ok := domain.ParseTicketPriority(input.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
		}
		priority = p
	}
	if err := validateHours(input.EstimatedHours); err != nil {
		return nil, err
	}
	reward := 0
	if input.RewardPoints != nil {
		if err := authz.CanManageTicket(actor); err != nil {
			return nil, apperrors.NewForbidden("only managers can set reward points")
		}
		if *input.RewardPoints < 0 {
			return nil, apperrors.NewValidationError("reward_points must be non-negative", nil)
		}
		reward = *input.RewardPoints
	}

	if _, err := loadVisibleProject(ctx, s.store, actor, input.ProjectID); err != nil {
		return nil, err
	}
	if input.AssigneeID != nil {
		if _, err := loadAssignee(ctx, s.store, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		ExternalKey:    generateTicketKey(),
		ProjectID:      input.ProjectID,
		StageID:        input.StageID,
		CreatedBy:      actor.UserID,
		AssigneeID:     input.AssigneeID,
		Title:          title,
		Description:    input.Description,
		Priority:       priority,
		EstimatedHours: input.EstimatedHours,
		RewardPoints:   reward,
		Deadline:       input.Deadline,
	}
	s.machine.Initialize(ticket, lifecycle.InitialStatus, s.now())
	if err := s.store.Tickets().Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.EventTicketCreated, ticket.ID, actor.UserID, events.TicketCreatedPayload{
		Title:      ticket.Title,
		ProjectID:  ticket.ProjectID,
		CreatedBy:  ticket.CreatedBy,
		AssigneeID: ticket.AssigneeID,
	})
	return ticket, nil
}

// GetTicket returns a ticket visible to actor.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "ticket")
	}
	if err := checkTicketScope(ctx, s.store, actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets lists tickets inside the actor's scope.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, input ListTicketsInput) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		ProjectID:  input.ProjectID,
		AssigneeID: input.AssigneeID,
		SearchTerm: input.Search,
		Page:       repository.Page{Limit: input.Limit, Offset: input.Offset}.Normalize(),
	}
	for _, raw := range input.Statuses {
		status, ok := domain.ParseTicketStatus(raw)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range input.Priorities {
		priority, ok := domain.ParseTicketPriority(raw)
		if !ok {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	tickets, err := s.store.Tickets().List(ctx, filter, scope.VisibleTickets(actor))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateTicket edits descriptive fields. Reward changes are limited to managers and admins.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, id string, input UpdateTicketInput) (*domain.Ticket, error) {
	if err := authz.CanEditTicket(actor); err != nil {
		return nil, err
	}
	if err := validateHours(input.EstimatedHours); err != nil {
		return nil, err
	}
	if input.RewardPoints != nil {
		if err := authz.CanManageTicket(actor); err != nil {
			return nil, apperrors.NewForbidden("only managers can set reward points")
		}
		if *input.RewardPoints < 0 {
			return nil, apperrors.NewValidationError("reward_points must be non-negative", nil)
		}
	}
	var priority *domain.TicketPriority
	if input.Priority != nil {
		p, ok := domain.ParseTicketPriority(*input.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		priority = &p
	}

	var updated *domain.Ticket
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, "ticket")
		}
		if err := checkTicketScope(ctx, tx, actor, ticket); err != nil {
			return err
		}
		var changes []domain.TicketHistory
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return apperrors.NewValidationError("title cannot be empty", nil)
			}
			ticket.Title = title
		}
		if input.Description != nil {
			ticket.Description = *input.Description
		}
		if input.StageID != nil {
			ticket.StageID = input.StageID
		}
		if input.EstimatedHours != nil {
			ticket.EstimatedHours = input.EstimatedHours
		}
		if input.Deadline != nil {
			ticket.Deadline = input.Deadline
		}
		if priority != nil && *priority != ticket.Priority {
			changes = append(changes, historyEntry(ticket.ID, actor.UserID, domain.ChangeTypePriority,
				map[string]any{"priority": ticket.Priority}, map[string]any{"priority": *priority}))
			ticket.Priority = *priority
		}
		if input.RewardPoints != nil && *input.RewardPoints != ticket.RewardPoints {
			changes = append(changes, historyEntry(ticket.ID, actor.UserID, domain.ChangeTypeReward,
				map[string]any{"reward_points": ticket.RewardPoints}, map[string]any{"reward_points": *input.RewardPoints}))
			ticket.RewardPoints = *input.RewardPoints
		}
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		for i := range changes {
			if err := tx.TicketHistory().Create(ctx, &changes[i]); err != nil {
				return err
			}
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// DeleteTicket soft deletes a ticket.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, id string) error {
	if err := authz.CanManageTicket(actor); err != nil {
		return err
	}
	ticket, err := s.GetTicket(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.Tickets().SoftDelete(ctx, ticket.ID, s.now()); err != nil {
		return lookupError(err, "ticket")
	}
	return nil
}

// ChangeStatus moves a ticket along the lifecycle graph. The status write, any penalty
// and any point credit commit together or not at all.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, id, rawStatus string) (*TransitionResult, error) {
	target, ok := domain.ParseTicketStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": rawStatus})
	}

	result := &TransitionResult{}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, "ticket")
		}
		if err := checkTicketScope(ctx, tx, actor, ticket); err != nil {
			return err
		}
		from := ticket.Status
		if err := authz.CanTransition(actor, ticket, from, target); err != nil {
			return err
		}
		oldReward := ticket.RewardPoints
		effects, err := s.machine.Apply(ticket, target, s.now())
		if err != nil {
			return err
		}
		result.Ticket = ticket
		result.Effects = effects
		if effects.NoOp {
			return nil
		}
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}

		if effects.CreditDue && ticket.AssigneeID != nil && ticket.RewardPoints > 0 {
			entry, assignee, err := s.ledger.Credit(ctx, tx.Users(), tx.PointHistory(), *ticket.AssigneeID, &ticket.ID,
				ticket.RewardPoints, fmt.Sprintf("Ticket %s closed", ticket.ExternalKey))
			if err != nil {
				return err
			}
			if entry != nil {
				result.Credited = entry.Points
				result.Assignee = assignee
			}
		}

		newValue := map[string]any{
			"status":        ticket.Status,
			"reward_points": ticket.RewardPoints,
		}
		if effects.ActualHours != nil {
			newValue["actual_hours"] = *effects.ActualHours
		}
		if result.Credited > 0 {
			newValue["credited_points"] = result.Credited
		}
		if effects.Penalty != nil {
			newValue["penalty_applied"] = true
		}
		history := historyEntry(ticket.ID, actor.UserID, domain.ChangeTypeStatus,
			map[string]any{"status": from, "reward_points": oldReward}, newValue)
		return tx.TicketHistory().Create(ctx, &history)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if result.Effects.NoOp {
		return result, nil
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", result.Ticket.ID),
		zap.String("from", string(result.Effects.From)),
		zap.String("to", string(result.Effects.To)),
		zap.Int("credited", result.Credited),
	)
	payload := events.TicketStatusChangedPayload{
		Title:             result.Ticket.Title,
		CreatedBy:         result.Ticket.CreatedBy,
		AssigneeID:        result.Ticket.AssigneeID,
		OldStatus:         result.Effects.From,
		NewStatus:         result.Effects.To,
		CreditedPoints:    result.Credited,
		RevisionRequested: result.Effects.RevisionRequested,
		Reopened:          result.Effects.Reopened,
	}
	if p := result.Effects.Penalty; p != nil {
		payload.PenaltyApplied = true
		payload.PenaltyBefore = p.Before
		payload.PenaltyAfter = p.After
	}
	s.publishEvent(ctx, events.EventTicketStatusChanged, result.Ticket.ID, actor.UserID, payload)
	return result, nil
}

// AllowedTransitions lists the statuses actor may move the ticket to next.
func (s *TicketService) AllowedTransitions(ctx context.Context, actor domain.Actor, id string) ([]domain.TicketStatus, error) {
	ticket, err := s.GetTicket(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.EffectiveRole() == domain.RoleClient {
		return []domain.TicketStatus{}, nil
	}
	return lifecycle.Targets(ticket.Status, actor.EffectiveRole().Privileged()), nil
}

// TicketHistory returns the audit trail of a visible ticket.
func (s *TicketService) TicketHistory(ctx context.Context, actor domain.Actor, id string) ([]domain.TicketHistory, error) {
	if _, err := s.GetTicket(ctx, actor, id); err != nil {
		return nil, err
	}
	history, err := s.store.TicketHistory().ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

func (s *TicketService) publishEvent(ctx context.Context, eventType events.EventType, entityID, actorID string, payload any) {
	publish(ctx, s.dispatcher, s.now, eventType, entityID, actorID, payload)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, eventType events.EventType, entityID, actorID string, payload any) {
	if dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		ActorID:   actorID,
		Timestamp: now(),
		Payload:   payload,
	}
	_ = dispatcher.Publish(ctx, event)
}

func checkTicketScope(ctx context.Context, store repository.Store, actor domain.Actor, ticket *domain.Ticket) error {
	facts, err := store.Tickets().Facts(ctx, ticket)
	if err != nil {
		return apperrors.MapError(err)
	}
	return authz.CanAccessTicket(actor, facts)
}

func loadVisibleProject(ctx context.Context, store repository.Store, actor domain.Actor, projectID string) (*domain.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, apperrors.NewValidationError("project_id is required", nil)
	}
	project, err := store.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, lookupError(err, "project")
	}
	facts, err := store.Projects().Facts(ctx, project)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := authz.CanAccessProject(actor, facts); err != nil {
		return nil, err
	}
	return project, nil
}

func loadAssignee(ctx context.Context, store repository.Store, userID string) (*domain.User, error) {
	user, err := store.Users().GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewValidationError("assignee does not exist", map[string]any{"assignee_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	if user.Role == domain.RoleClient {
		return nil, apperrors.NewValidationError("clients cannot be assigned tickets", map[string]any{"assignee_id": userID})
	}
	return user, nil
}

func lookupError(err error, resource string) error {
	if apperrors.IsNoRows(err) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.MapError(err)
}

func validateHours(hours *float64) error {
	if hours != nil && *hours < 0 {
		return apperrors.NewValidationError("estimated_hours must be non-negative", nil)
	}
	return nil
}

func historyEntry(ticketID, actorID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) domain.TicketHistory {
	changedBy := actorID
	return domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &changedBy,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
