// Package notification carries notification obligations from committed domain
// changes to the delivery channels. Nothing here runs inside a business transaction.
package notification

import (
	"time"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// Notification types used as Job.Type.
const (
	TypeTicketAssigned          = "ticket_assigned"
	TypeTicketPickedUp          = "ticket_picked_up"
	TypeTicketStatusChanged     = "ticket_status_changed"
	TypeTicketPenalty           = "ticket_penalty"
	TypeTicketRevisionRequested = "ticket_revision_requested"
	TypeTicketReopened          = "ticket_reopened"
	TypePointsEarned            = "points_earned"
	TypeRequestSubmitted        = "ticket_request_submitted"
	TypeRequestApproved         = "ticket_request_approved"
	TypeRequestRejected         = "ticket_request_rejected"
)

// Job is one notification addressed to one user.
type Job struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      string           `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	Channels  []domain.Channel `json:"channels"`
	CreatedAt time.Time        `json:"created_at"`
}

// Wants reports whether the job asks for channel.
func (j Job) Wants(channel domain.Channel) bool {
	for _, c := range j.Channels {
		if c == channel {
			return true
		}
	}
	return false
}
