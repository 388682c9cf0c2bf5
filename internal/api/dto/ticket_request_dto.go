package dto

import (
	"time"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// SubmitTicketRequestRequest is the client's request payload.
type SubmitTicketRequestRequest struct {
	ProjectID   string  `json:"project_id"`
	StageID     *string `json:"stage_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
}

// ApproveTicketRequestRequest shapes the ticket spawned on approval.
type ApproveTicketRequestRequest struct {
	AssigneeID     *string    `json:"assignee_id"`
	EstimatedHours *float64   `json:"estimated_hours"`
	Deadline       *time.Time `json:"deadline"`
	RewardPoints   *int       `json:"reward_points"`
}

// RejectTicketRequestRequest payload.
type RejectTicketRequestRequest struct {
	Reason string `json:"reason"`
}

// TicketRequestResponse represents a ticket request.
type TicketRequestResponse struct {
	ID              string                     `json:"id"`
	Title           string                     `json:"title"`
	Description     string                     `json:"description"`
	ProjectID       string                     `json:"project_id"`
	ClientID        string                     `json:"client_id"`
	StageID         *string                    `json:"stage_id"`
	Priority        domain.TicketPriority      `json:"priority"`
	Status          domain.TicketRequestStatus `json:"status"`
	RejectionReason *string                    `json:"rejection_reason"`
	ValidatorID     *string                    `json:"validator_id"`
	TicketID        *string                    `json:"ticket_id"`
	ValidatedAt     *time.Time                 `json:"validated_at"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// ApprovalResponse pairs the decided request with its new ticket.
type ApprovalResponse struct {
	Request TicketRequestResponse `json:"request"`
	Ticket  TicketResponse        `json:"ticket"`
}

// TicketRequestStatsResponse counts requests per status.
type TicketRequestStatsResponse struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
