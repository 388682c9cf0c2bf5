package dto

import (
	"time"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ProjectID      string     `json:"project_id"`
	StageID        *string    `json:"stage_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       string     `json:"priority"`
	AssigneeID     *string    `json:"assignee_id"`
	EstimatedHours *float64   `json:"estimated_hours"`
	Deadline       *time.Time `json:"deadline"`
	RewardPoints   *int       `json:"reward_points"`
}

// UpdateTicketRequest payload. Omitted fields are left unchanged.
type UpdateTicketRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Priority       *string    `json:"priority"`
	StageID        *string    `json:"stage_id"`
	EstimatedHours *float64   `json:"estimated_hours"`
	Deadline       *time.Time `json:"deadline"`
	RewardPoints   *int       `json:"reward_points"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// AssignTicketRequest payload. A null assignee unassigns the ticket.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID             string                `json:"id"`
	ExternalKey    string                `json:"external_key"`
	ProjectID      string                `json:"project_id"`
	StageID        *string               `json:"stage_id"`
	CreatedBy      string                `json:"created_by"`
	AssigneeID     *string               `json:"assignee_id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	EstimatedHours *float64              `json:"estimated_hours"`
	ActualHours    float64               `json:"actual_hours"`
	RewardPoints   int                   `json:"reward_points"`
	Deadline       *time.Time            `json:"deadline"`
	Overdue        bool                  `json:"overdue"`
	OpenedAt       *time.Time            `json:"opened_at"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TransitionResponse reports a status change and its side effects.
type TransitionResponse struct {
	Ticket            TicketResponse      `json:"ticket"`
	From              domain.TicketStatus `json:"from"`
	To                domain.TicketStatus `json:"to"`
	Changed           bool                `json:"changed"`
	PenaltyApplied    bool                `json:"penalty_applied"`
	CreditedPoints    int                 `json:"credited_points"`
	AssigneeLevel     *int                `json:"assignee_level,omitempty"`
	RevisionRequested bool                `json:"revision_requested"`
	Reopened          bool                `json:"reopened"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          string         `json:"id"`
	ChangedByID *string        `json:"changed_by_id"`
	ChangeType  string         `json:"change_type"`
	OldValue    map[string]any `json:"old_value"`
	NewValue    map[string]any `json:"new_value"`
	CreatedAt   time.Time      `json:"created_at"`
}
