package lifecycle

import (
	"time"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/points"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

const (
	// InitialStatus is the status of newly created tickets.
	InitialStatus = domain.TicketStatusPending
	// ApprovedRequestStatus is the status of tickets spawned from approved requests.
	ApprovedRequestStatus = domain.TicketStatusInProgress
)

// Penalty records a rework penalty applied to a ticket's reward.
type Penalty struct {
	Before int
	After  int
}

// Effects describes what a transition did to the ticket and what the caller
// still owes (credit, notifications).
type Effects struct {
	From              domain.TicketStatus
	To                domain.TicketStatus
	NoOp              bool
	OpenedAtSet       bool
	ActualHours       *float64
	Penalty           *Penalty
	CreditDue         bool
	RevisionRequested bool
	Reopened          bool
}

// Machine applies status transitions. Role checks happen before Apply.
type Machine struct {
	loc *time.Location
}

// NewMachine builds a machine computing business hours in loc.
func NewMachine(loc *time.Location) *Machine {
	if loc == nil {
		loc = time.UTC
	}
	return &Machine{loc: loc}
}

// Location returns the business calendar location.
func (m *Machine) Location() *time.Location {
	return m.loc
}

// Initialize puts a new ticket into status, stamping opened_at when work starts immediately.
func (m *Machine) Initialize(ticket *domain.Ticket, status domain.TicketStatus, now time.Time) {
	ticket.Status = status
	if status == domain.TicketStatusInProgress && ticket.OpenedAt == nil {
		opened := now
		ticket.OpenedAt = &opened
	}
}

// Apply validates the edge and mutates ticket. On error the ticket is untouched.
func (m *Machine) Apply(ticket *domain.Ticket, to domain.TicketStatus, now time.Time) (Effects, error) {
	from := domain.NormalizeTicketStatus(string(ticket.Status))
	if !to.Valid() {
		return Effects{}, apperrors.NewValidationError("unknown status", map[string]any{"status": to})
	}
	effects := Effects{From: from, To: to}
	if from == to {
		effects.NoOp = true
		return effects, nil
	}
	if _, ok := Lookup(from, to); !ok {
		return Effects{}, apperrors.NewInvalidTransition("invalid status transition", map[string]any{
			"from": from,
			"to":   to,
		})
	}

	switch {
	case to == domain.TicketStatusInProgress:
		if ticket.OpenedAt == nil {
			opened := now
			ticket.OpenedAt = &opened
			effects.OpenedAtSet = true
		}
		if from == domain.TicketStatusResolved {
			before := ticket.RewardPoints
			ticket.RewardPoints = points.Penalize(before)
			effects.Penalty = &Penalty{Before: before, After: ticket.RewardPoints}
		}
	case to == domain.TicketStatusResolved && from == domain.TicketStatusInProgress:
		if ticket.OpenedAt != nil {
			hours := BusinessHours(*ticket.OpenedAt, now, m.loc)
			ticket.ActualHours = hours
			effects.ActualHours = &hours
		}
	case to == domain.TicketStatusReopen:
		effects.RevisionRequested = true
	case to == domain.TicketStatusClosed:
		effects.CreditDue = from != domain.TicketStatusClosed
	}

	effects.Reopened = IsReopening(from, to)
	ticket.Status = to
	return effects, nil
}
