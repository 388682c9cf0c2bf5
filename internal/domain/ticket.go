package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusReopen     TicketStatus = "reopen"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Retired values that may still be persisted in old rows.
const (
	legacyStatusOpen     = "open"
	legacyStatusRejected = "rejected"
)

// TicketStatuses lists the canonical statuses.
var TicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusInProgress,
	TicketStatusReopen,
	TicketStatusResolved,
	TicketStatusClosed,
}

// ParseTicketStatus accepts canonical values only; this is the write path.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	status := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// NormalizeTicketStatus maps persisted values, including retired ones, onto the canonical set.
func NormalizeTicketStatus(raw string) TicketStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case legacyStatusOpen:
		return TicketStatusInProgress
	case legacyStatusRejected:
		return TicketStatusClosed
	}
	return TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether s is canonical.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Finished reports whether work on the ticket is considered done.
func (s TicketStatus) Finished() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityNormal TicketPriority = "normal"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ParseTicketPriority validates a priority value.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	p := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return p, true
	}
	return p, false
}

// Ticket is a unit of trackable work within a project.
type Ticket struct {
	ID             string
	ExternalKey    string
	ProjectID      string
	StageID        *string
	CreatedBy      string
	AssigneeID     *string
	Title          string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	EstimatedHours *float64
	ActualHours    float64
	RewardPoints   int
	Deadline       *time.Time
	OpenedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// IsOverdue reports a passed deadline on unfinished work.
func (t *Ticket) IsOverdue(now time.Time) bool {
	return t.Deadline != nil && now.After(*t.Deadline) && !t.Status.Finished()
}

// IsAssignedTo reports whether userID is the assignee.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// Participants returns creator and assignee without duplicates.
func (t *Ticket) Participants() []string {
	ids := []string{t.CreatedBy}
	if t.AssigneeID != nil && *t.AssigneeID != t.CreatedBy {
		ids = append(ids, *t.AssigneeID)
	}
	return ids
}
