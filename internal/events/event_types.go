package events

import (
	"time"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketAssigned         EventType = "ticket_assigned"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketRequestSubmitted EventType = "ticket_request_submitted"
	EventTicketRequestApproved  EventType = "ticket_request_approved"
	EventTicketRequestRejected  EventType = "ticket_request_rejected"
)

// Event represents a committed domain change. Events are published after the
// transaction that produced them commits.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	EntityID  string    `json:"entity_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title      string  `json:"title"`
	ProjectID  string  `json:"project_id"`
	CreatedBy  string  `json:"created_by"`
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Title              string  `json:"title"`
	CreatedBy          string  `json:"created_by,omitempty"`
	PreviousAssigneeID *string `json:"previous_assignee_id,omitempty"`
	AssigneeID         *string `json:"assignee_id,omitempty"`
}

// TicketStatusChangedPayload payload. PenaltyBefore/PenaltyAfter are set when a
// rework penalty was applied; CreditedPoints when the close credited the assignee.
type TicketStatusChangedPayload struct {
	Title             string              `json:"title"`
	CreatedBy         string              `json:"created_by"`
	AssigneeID        *string             `json:"assignee_id,omitempty"`
	OldStatus         domain.TicketStatus `json:"old_status"`
	NewStatus         domain.TicketStatus `json:"new_status"`
	PenaltyApplied    bool                `json:"penalty_applied"`
	PenaltyBefore     int                 `json:"penalty_before,omitempty"`
	PenaltyAfter      int                 `json:"penalty_after,omitempty"`
	CreditedPoints    int                 `json:"credited_points,omitempty"`
	RevisionRequested bool                `json:"revision_requested"`
	Reopened          bool                `json:"reopened"`
}

// TicketRequestSubmittedPayload payload.
type TicketRequestSubmittedPayload struct {
	Title     string `json:"title"`
	ProjectID string `json:"project_id"`
	ClientID  string `json:"client_id"`
}

// TicketRequestApprovedPayload payload.
type TicketRequestApprovedPayload struct {
	Title        string  `json:"title"`
	TicketID     string  `json:"ticket_id"`
	ClientUserID *string `json:"client_user_id,omitempty"`
	AssigneeID   *string `json:"assignee_id,omitempty"`
}

// TicketRequestRejectedPayload payload.
type TicketRequestRejectedPayload struct {
	Title        string  `json:"title"`
	Reason       string  `json:"reason"`
	ClientUserID *string `json:"client_user_id,omitempty"`
}
