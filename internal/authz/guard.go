// Package authz holds the per-action permission checks layered on top of scope.
//
// Scope failures come back as NOT_FOUND domain errors wrapping ErrOutOfScope, so
// callers can tell them apart while the wire response stays identical to a miss.
package authz

import (
	"errors"
	"net/http"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/lifecycle"
	"github.com/spec-kit/ticket-rewards/internal/scope"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

// ErrOutOfScope marks an entity that exists but is not visible to the actor.
var ErrOutOfScope = errors.New("entity outside actor scope")

// OutOfScope builds the error returned for invisible entities. It renders exactly
// like apperrors.NewNotFound(resource, nil).
func OutOfScope(resource string) error {
	notFound := apperrors.NewNotFound(resource, nil).(*apperrors.DomainError)
	return &apperrors.DomainError{
		Code:       notFound.Code,
		Message:    notFound.Message,
		HTTPStatus: http.StatusNotFound,
		Details:    notFound.Details,
		Err:        ErrOutOfScope,
	}
}

// IsOutOfScope reports whether err came from a scope check.
func IsOutOfScope(err error) bool {
	return errors.Is(err, ErrOutOfScope)
}

// CanAccessTicket checks a single ticket read against the actor's ticket scope.
func CanAccessTicket(actor domain.Actor, facts scope.TicketFacts) error {
	if scope.VisibleTickets(actor).Matches(facts) {
		return nil
	}
	return OutOfScope("ticket")
}

// CanAccessProject checks a single project read against the actor's project scope.
func CanAccessProject(actor domain.Actor, facts scope.ProjectFacts) error {
	if scope.VisibleProjects(actor).Matches(facts) {
		return nil
	}
	return OutOfScope("project")
}

// CanAccessRequest checks a single ticket request read.
func CanAccessRequest(actor domain.Actor, req *domain.TicketRequest) error {
	if scope.VisibleTicketRequests(actor).Matches(req.ClientID) {
		return nil
	}
	return OutOfScope("ticket request")
}

// CanViewUser checks access to another user's points data.
func CanViewUser(actor domain.Actor, user *domain.User) error {
	if scope.VisibleUsers(actor).Matches(user.ID, user.TeamIDs) {
		return nil
	}
	return OutOfScope("user")
}

// CanTransition decides whether actor may move ticket from one status to another.
// The ticket must already have passed CanAccessTicket.
func CanTransition(actor domain.Actor, ticket *domain.Ticket, from, to domain.TicketStatus) error {
	role := actor.EffectiveRole()
	if role == domain.RoleClient {
		return apperrors.NewForbidden("clients cannot change ticket status")
	}
	if !to.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": to})
	}
	if from == to {
		return nil
	}
	edge, ok := lifecycle.Lookup(from, to)
	if !ok {
		return apperrors.NewInvalidTransition("invalid status transition", map[string]any{
			"from": from,
			"to":   to,
		})
	}
	if !edge.Privileged || role.Privileged() {
		return nil
	}
	if edge.Denial == lifecycle.DenyForbidden {
		return apperrors.NewForbidden(edge.Reason)
	}
	return apperrors.NewInvalidTransition(edge.Reason, map[string]any{
		"from":      from,
		"to":        to,
		"ticket_id": ticket.ID,
	})
}

// CanApproveRequest reports whether actor may approve or reject ticket requests.
func CanApproveRequest(actor domain.Actor) bool {
	return actor.EffectiveRole().Privileged()
}

// RequireApprover is CanApproveRequest as an error.
func RequireApprover(actor domain.Actor) error {
	if CanApproveRequest(actor) {
		return nil
	}
	return apperrors.NewForbidden("only managers and admins can validate ticket requests")
}

// CanSubmitRequest allows clients to request work on their own projects only.
func CanSubmitRequest(actor domain.Actor, project *domain.Project) error {
	if actor.EffectiveRole() != domain.RoleClient || actor.ClientID == nil {
		return apperrors.NewForbidden("only clients can submit ticket requests")
	}
	if project.ClientID == nil || *project.ClientID != *actor.ClientID {
		return OutOfScope("project")
	}
	return nil
}

// CanCreateTicket rejects roles without ticket write access.
func CanCreateTicket(actor domain.Actor) error {
	if actor.EffectiveRole() == domain.RoleClient {
		return apperrors.NewForbidden("clients submit ticket requests instead of tickets")
	}
	return nil
}

// CanManageTicket covers assignment, deletion and reward changes.
func CanManageTicket(actor domain.Actor) error {
	if actor.EffectiveRole().Privileged() {
		return nil
	}
	return apperrors.NewForbidden("only managers and admins can manage tickets")
}

// CanEditTicket covers plain field edits: any non-client participant in scope.
func CanEditTicket(actor domain.Actor) error {
	return CanCreateTicket(actor)
}
