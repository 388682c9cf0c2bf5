package handlers

import (
	"time"

	"github.com/spec-kit/ticket-rewards/internal/api/dto"
	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/service"
)

func ticketResponse(ticket *domain.Ticket, now time.Time) dto.TicketResponse {
	return dto.TicketResponse{
		ID:             ticket.ID,
		ExternalKey:    ticket.ExternalKey,
		ProjectID:      ticket.ProjectID,
		StageID:        ticket.StageID,
		CreatedBy:      ticket.CreatedBy,
		AssigneeID:     ticket.AssigneeID,
		Title:          ticket.Title,
		Description:    ticket.Description,
		Status:         ticket.Status,
		Priority:       ticket.Priority,
		EstimatedHours: ticket.EstimatedHours,
		ActualHours:    ticket.ActualHours,
		RewardPoints:   ticket.RewardPoints,
		Deadline:       ticket.Deadline,
		Overdue:        ticket.IsOverdue(now),
		OpenedAt:       ticket.OpenedAt,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

func transitionResponse(res *service.TransitionResult, now time.Time) dto.TransitionResponse {
	out := dto.TransitionResponse{
		Ticket:            ticketResponse(res.Ticket, now),
		From:              res.Effects.From,
		To:                res.Effects.To,
		Changed:           !res.Effects.NoOp,
		PenaltyApplied:    res.Effects.Penalty != nil,
		CreditedPoints:    res.Credited,
		RevisionRequested: res.Effects.RevisionRequested,
		Reopened:          res.Effects.Reopened,
	}
	if res.Credited > 0 && res.Assignee != nil {
		level := res.Assignee.Level
		out.AssigneeLevel = &level
	}
	return out
}

func historyResponses(history []domain.TicketHistory) []dto.TicketHistoryResponse {
	out := make([]dto.TicketHistoryResponse, 0, len(history))
	for _, h := range history {
		out = append(out, dto.TicketHistoryResponse{
			ID:          h.ID,
			ChangedByID: h.ChangedByID,
			ChangeType:  string(h.ChangeType),
			OldValue:    h.OldValue,
			NewValue:    h.NewValue,
			CreatedAt:   h.CreatedAt,
		})
	}
	return out
}

func ticketRequestResponse(req *domain.TicketRequest) dto.TicketRequestResponse {
	return dto.TicketRequestResponse{
		ID:              req.ID,
		Title:           req.Title,
		Description:     req.Description,
		ProjectID:       req.ProjectID,
		ClientID:        req.ClientID,
		StageID:         req.StageID,
		Priority:        req.Priority,
		Status:          req.Status,
		RejectionReason: req.RejectionReason,
		ValidatorID:     req.ValidatorID,
		TicketID:        req.TicketID,
		ValidatedAt:     req.ValidatedAt,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
}

func pointHistoryResponses(entries []domain.PointHistory) []dto.PointHistoryResponse {
	out := make([]dto.PointHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.PointHistoryResponse{
			ID:          e.ID,
			UserID:      e.UserID,
			TicketID:    e.TicketID,
			Points:      e.Points,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

func projectResponse(p *domain.Project) dto.ProjectResponse {
	teamIDs := p.TeamIDs
	if teamIDs == nil {
		teamIDs = []string{}
	}
	return dto.ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Type:        string(p.Type),
		Description: p.Description,
		ManagerID:   p.ManagerID,
		ClientID:    p.ClientID,
		TeamIDs:     teamIDs,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
	}
}

func notificationResponse(n *domain.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		Channel:   string(n.Channel),
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
