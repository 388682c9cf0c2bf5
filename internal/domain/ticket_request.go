package domain

import "time"

// TicketRequestStatus enumerates request decisions.
type TicketRequestStatus string

const (
	TicketRequestPending  TicketRequestStatus = "pending"
	TicketRequestApproved TicketRequestStatus = "approved"
	TicketRequestRejected TicketRequestStatus = "rejected"
)

// TicketRequest is a client-submitted precursor to a ticket.
type TicketRequest struct {
	ID              string
	Title           string
	Description     string
	ProjectID       string
	ClientID        string
	StageID         *string
	Priority        TicketPriority
	Status          TicketRequestStatus
	RejectionReason *string
	ValidatorID     *string
	TicketID        *string
	ValidatedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TicketRequestStats summarizes requests by status.
type TicketRequestStats struct {
	Pending  int
	Approved int
	Rejected int
	Total    int
}
