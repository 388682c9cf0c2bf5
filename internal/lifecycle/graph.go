// Package lifecycle owns the ticket status graph and the side effects each
// transition carries (opened_at stamping, worked hours, rework penalty, credit due).
package lifecycle

import "github.com/spec-kit/ticket-rewards/internal/domain"

// Denial tells callers how a refused, role-gated edge must be reported.
type Denial int

const (
	// DenyInvalidTransition reports the attempt as an invalid transition.
	DenyInvalidTransition Denial = iota
	// DenyForbidden reports the attempt as an authorization failure.
	DenyForbidden
)

// Edge is an allowed status change.
type Edge struct {
	From       domain.TicketStatus
	To         domain.TicketStatus
	Privileged bool
	Denial     Denial
	Reason     string
}

var edges = []Edge{
	{From: domain.TicketStatusPending, To: domain.TicketStatusInProgress},
	{From: domain.TicketStatusInProgress, To: domain.TicketStatusResolved},
	{From: domain.TicketStatusReopen, To: domain.TicketStatusInProgress},

	{From: domain.TicketStatusResolved, To: domain.TicketStatusInProgress, Privileged: true,
		Reason: "resolved tickets must be reopened before work resumes"},
	{From: domain.TicketStatusResolved, To: domain.TicketStatusReopen, Privileged: true, Denial: DenyForbidden,
		Reason: "only managers and admins can reopen tickets"},
	{From: domain.TicketStatusClosed, To: domain.TicketStatusReopen, Privileged: true, Denial: DenyForbidden,
		Reason: "only managers and admins can reopen tickets"},
	{From: domain.TicketStatusResolved, To: domain.TicketStatusClosed, Privileged: true,
		Reason: "only managers and admins can close tickets"},

	// manager/admin overrides
	{From: domain.TicketStatusPending, To: domain.TicketStatusClosed, Privileged: true,
		Reason: "only managers and admins can close tickets"},
	{From: domain.TicketStatusInProgress, To: domain.TicketStatusClosed, Privileged: true,
		Reason: "only managers and admins can close tickets"},
	{From: domain.TicketStatusReopen, To: domain.TicketStatusClosed, Privileged: true,
		Reason: "only managers and admins can close tickets"},
	{From: domain.TicketStatusClosed, To: domain.TicketStatusInProgress, Privileged: true,
		Reason: "closed tickets must be reopened before work resumes"},
}

// Lookup returns the edge between two statuses, if the graph has one.
func Lookup(from, to domain.TicketStatus) (Edge, bool) {
	for _, e := range edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// Targets lists the statuses reachable from from, optionally including privileged edges.
func Targets(from domain.TicketStatus, privileged bool) []domain.TicketStatus {
	var out []domain.TicketStatus
	for _, e := range edges {
		if e.From != from || (e.Privileged && !privileged) {
			continue
		}
		out = append(out, e.To)
	}
	return out
}

// IsReopening reports a move out of finished work into anything but finished or reopen.
func IsReopening(from, to domain.TicketStatus) bool {
	if from != domain.TicketStatusClosed && from != domain.TicketStatusResolved {
		return false
	}
	switch to {
	case domain.TicketStatusClosed, domain.TicketStatusResolved, domain.TicketStatusReopen:
		return false
	}
	return true
}
