package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-rewards/internal/authz"
	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/events"
	"github.com/spec-kit/ticket-rewards/internal/lifecycle"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/scope"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

// TicketRequestService runs the client request workflow: submit, approve, reject.
type TicketRequestService struct {
	store      repository.Store
	machine    *lifecycle.Machine
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketRequestDependencies bundles collaborators for the request workflow.
type TicketRequestDependencies struct {
	Store      repository.Store
	Machine    *lifecycle.Machine
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewTicketRequestService constructs TicketRequestService.
func NewTicketRequestService(deps TicketRequestDependencies) *TicketRequestService {
	machine := deps.Machine
	if machine == nil {
		machine = lifecycle.NewMachine(time.UTC)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketRequestService{
		store:      deps.Store,
		machine:    machine,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// SubmitRequestInput is what a client provides.
type SubmitRequestInput struct {
	ProjectID   string
	StageID     *string
	Title       string
	Description string
	Priority    string
}

// ApproveRequestInput lets the approver shape the spawned ticket.
type ApproveRequestInput struct {
	AssigneeID     *string
	EstimatedHours *float64
	Deadline       *time.Time
	RewardPoints   *int
}

// ListRequestsInput carries list filters.
type ListRequestsInput struct {
	Status    string
	ProjectID *string
	Limit     int
	Offset    int
}

// ApprovalResult holds the decided request and the ticket it spawned.
type ApprovalResult struct {
	Request *domain.TicketRequest
	Ticket  *domain.Ticket
}

// Submit records a pending request from a client against one of its projects.
func (s *TicketRequestService) Submit(ctx context.Context, actor domain.Actor, input SubmitRequestInput) (*domain.TicketRequest, error) {
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
	if actor.EffectiveRole() != domain.RoleClient || actor.ClientID == nil {
		return nil, apperrors.NewForbidden("only clients can submit ticket requests")
	}
	project, err := s.store.Projects().GetByID(ctx, input.ProjectID)
	if err != nil {
		return nil, lookupError(err, "project")
	}
	if err := authz.CanSubmitRequest(actor, project); err != nil {
		return nil, err
	}

	req := &domain.TicketRequest{
		Title:       title,
		Description: input.Description,
		ProjectID:   project.ID,
		ClientID:    *actor.ClientID,
		StageID:     input.StageID,
		Priority:    priority,
		Status:      domain.TicketRequestPending,
	}
	if err := s.store.TicketRequests().Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, s.now, events.EventTicketRequestSubmitted, req.ID, actor.UserID, events.TicketRequestSubmittedPayload{
		Title:     req.Title,
		ProjectID: req.ProjectID,
		ClientID:  req.ClientID,
	})
	return req, nil
}

// Approve spawns a ticket from a pending request. The ticket insert and the
// request decision commit together.
func (s *TicketRequestService) Approve(ctx context.Context, actor domain.Actor, id string, input ApproveRequestInput) (*ApprovalResult, error) {
	if err := authz.RequireApprover(actor); err != nil {
		return nil, err
	}
	if err := validateHours(input.EstimatedHours); err != nil {
		return nil, err
	}
	if input.RewardPoints != nil && *input.RewardPoints < 0 {
		return nil, apperrors.NewValidationError("reward_points must be non-negative", nil)
	}
	if input.AssigneeID != nil {
		if _, err := loadAssignee(ctx, s.store, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	result := &ApprovalResult{}
	var clientUserID *string
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		req, err := s.lockPending(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		now := s.now()
		ticket := &domain.Ticket{
			ExternalKey:    generateTicketKey(),
			ProjectID:      req.ProjectID,
			StageID:        req.StageID,
			CreatedBy:      actor.UserID,
			AssigneeID:     input.AssigneeID,
			Title:          req.Title,
			Description:    req.Description,
			Priority:       req.Priority,
			EstimatedHours: input.EstimatedHours,
			Deadline:       input.Deadline,
		}
		if input.RewardPoints != nil {
			ticket.RewardPoints = *input.RewardPoints
		}
		s.machine.Initialize(ticket, lifecycle.ApprovedRequestStatus, now)
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}

		validator := actor.UserID
		req.Status = domain.TicketRequestApproved
		req.ValidatorID = &validator
		req.ValidatedAt = &now
		req.TicketID = &ticket.ID
		if err := decide(ctx, tx, req); err != nil {
			return err
		}
		clientUserID, err = clientUser(ctx, tx, req.ClientID)
		if err != nil {
			return err
		}
		result.Request = req
		result.Ticket = ticket
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket request approved",
		zap.String("request_id", result.Request.ID),
		zap.String("ticket_id", result.Ticket.ID),
		zap.String("validator_id", actor.UserID),
	)
	publish(ctx, s.dispatcher, s.now, events.EventTicketRequestApproved, result.Request.ID, actor.UserID, events.TicketRequestApprovedPayload{
		Title:        result.Request.Title,
		TicketID:     result.Ticket.ID,
		ClientUserID: clientUserID,
		AssigneeID:   result.Ticket.AssigneeID,
	})
	return result, nil
}

// Reject closes a pending request with a mandatory reason.
func (s *TicketRequestService) Reject(ctx context.Context, actor domain.Actor, id, reason string) (*domain.TicketRequest, error) {
	if err := authz.RequireApprover(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("rejection reason is required", nil)
	}

	var (
		rejected     *domain.TicketRequest
		clientUserID *string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		req, err := s.lockPending(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		now := s.now()
		validator := actor.UserID
		req.Status = domain.TicketRequestRejected
		req.RejectionReason = &reason
		req.ValidatorID = &validator
		req.ValidatedAt = &now
		if err := decide(ctx, tx, req); err != nil {
			return err
		}
		clientUserID, err = clientUser(ctx, tx, req.ClientID)
		if err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, s.now, events.EventTicketRequestRejected, rejected.ID, actor.UserID, events.TicketRequestRejectedPayload{
		Title:        rejected.Title,
		Reason:       reason,
		ClientUserID: clientUserID,
	})
	return rejected, nil
}

// Get returns a request visible to actor.
func (s *TicketRequestService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.TicketRequest, error) {
	req, err := s.store.TicketRequests().GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "ticket request")
	}
	if err := authz.CanAccessRequest(actor, req); err != nil {
		return nil, err
	}
	return req, nil
}

// List lists requests visible to actor.
func (s *TicketRequestService) List(ctx context.Context, actor domain.Actor, input ListRequestsInput) ([]domain.TicketRequest, error) {
	filter := repository.TicketRequestFilter{
		ProjectID: input.ProjectID,
		Page:      repository.Page{Limit: input.Limit, Offset: input.Offset}.Normalize(),
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status := domain.TicketRequestStatus(strings.ToLower(raw))
		switch status {
		case domain.TicketRequestPending, domain.TicketRequestApproved, domain.TicketRequestRejected:
			filter.Status = &status
		default:
			return nil, apperrors.NewValidationError("invalid request status", map[string]any{"status": raw})
		}
	}
	requests, err := s.store.TicketRequests().List(ctx, filter, scope.VisibleTicketRequests(actor))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return requests, nil
}

// Stats counts requests per status for approvers.
func (s *TicketRequestService) Stats(ctx context.Context, actor domain.Actor) (domain.TicketRequestStats, error) {
	if err := authz.RequireApprover(actor); err != nil {
		return domain.TicketRequestStats{}, err
	}
	stats, err := s.store.TicketRequests().Stats(ctx, scope.VisibleTicketRequests(actor))
	if err != nil {
		return domain.TicketRequestStats{}, apperrors.MapError(err)
	}
	return stats, nil
}

func (s *TicketRequestService) lockPending(ctx context.Context, tx repository.Store, actor domain.Actor, id string) (*domain.TicketRequest, error) {
	req, err := tx.TicketRequests().GetForUpdate(ctx, id)
	if err != nil {
		return nil, lookupError(err, "ticket request")
	}
	if err := authz.CanAccessRequest(actor, req); err != nil {
		return nil, err
	}
	if req.Status != domain.TicketRequestPending {
		return nil, alreadyDecided(req)
	}
	return req, nil
}

// decide persists the decision, treating a lost race as a conflict.
func decide(ctx context.Context, tx repository.Store, req *domain.TicketRequest) error {
	if err := tx.TicketRequests().UpdateDecision(ctx, req); err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewConflict("ticket request already decided", map[string]any{"request_id": req.ID})
		}
		return err
	}
	return nil
}

func alreadyDecided(req *domain.TicketRequest) error {
	return apperrors.NewConflict("ticket request already decided", map[string]any{
		"request_id": req.ID,
		"status":     req.Status,
	})
}

func clientUser(ctx context.Context, tx repository.Store, clientID string) (*string, error) {
	client, err := tx.Clients().GetByID(ctx, clientID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return client.UserID, nil
}
