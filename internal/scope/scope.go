// Package scope derives the visibility predicates for an actor. Every read path in
// the service consumes these predicates; nothing here touches storage.
package scope

import "github.com/spec-kit/ticket-rewards/internal/domain"

// Kind describes how wide a predicate is.
type Kind int

const (
	// KindNone matches nothing.
	KindNone Kind = iota
	// KindAll matches everything.
	KindAll
	// KindRestricted matches when any populated clause matches.
	KindRestricted
)

func (k Kind) String() string {
	switch k {
	case KindAll:
		return "all"
	case KindRestricted:
		return "restricted"
	}
	return "none"
}

// TicketPredicate restricts visible tickets.
type TicketPredicate struct {
	Kind            Kind
	ParticipantID   string
	AssigneeTeamIDs []string
	ClientID        string
}

// TicketFacts are the ticket attributes a TicketPredicate is evaluated against.
type TicketFacts struct {
	CreatedBy       string
	AssigneeID      *string
	AssigneeTeamIDs []string
	ProjectClientID *string
}

// Matches evaluates the predicate in memory.
func (p TicketPredicate) Matches(f TicketFacts) bool {
	switch p.Kind {
	case KindAll:
		return true
	case KindNone:
		return false
	}
	if p.ParticipantID != "" {
		if f.CreatedBy == p.ParticipantID || (f.AssigneeID != nil && *f.AssigneeID == p.ParticipantID) {
			return true
		}
	}
	if len(p.AssigneeTeamIDs) > 0 && f.AssigneeID != nil && intersects(p.AssigneeTeamIDs, f.AssigneeTeamIDs) {
		return true
	}
	if p.ClientID != "" && f.ProjectClientID != nil && *f.ProjectClientID == p.ClientID {
		return true
	}
	return false
}

// VisibleTickets returns the ticket predicate for actor.
func VisibleTickets(actor domain.Actor) TicketPredicate {
	switch actor.EffectiveRole() {
	case domain.RoleAdmin:
		return TicketPredicate{Kind: KindAll}
	case domain.RoleClient:
		if actor.ClientID == nil || *actor.ClientID == "" {
			return TicketPredicate{Kind: KindNone}
		}
		return TicketPredicate{Kind: KindRestricted, ClientID: *actor.ClientID}
	case domain.RoleManager:
		if actor.UserID == "" {
			return TicketPredicate{Kind: KindNone}
		}
		return TicketPredicate{
			Kind:            KindRestricted,
			ParticipantID:   actor.UserID,
			AssigneeTeamIDs: copyIDs(actor.TeamIDs),
		}
	default:
		if actor.UserID == "" {
			return TicketPredicate{Kind: KindNone}
		}
		return TicketPredicate{Kind: KindRestricted, ParticipantID: actor.UserID}
	}
}

// ProjectPredicate restricts visible projects.
type ProjectPredicate struct {
	Kind          Kind
	ManagerID     string
	TeamIDs       []string
	ClientID      string
	ParticipantID string
}

// ProjectFacts are the project attributes a ProjectPredicate is evaluated against.
// TicketUserIDs holds creators and assignees of the project's tickets.
type ProjectFacts struct {
	ManagerID     *string
	ClientID      *string
	TeamIDs       []string
	TicketUserIDs []string
}

// Matches evaluates the predicate in memory.
func (p ProjectPredicate) Matches(f ProjectFacts) bool {
	switch p.Kind {
	case KindAll:
		return true
	case KindNone:
		return false
	}
	if p.ManagerID != "" && f.ManagerID != nil && *f.ManagerID == p.ManagerID {
		return true
	}
	if len(p.TeamIDs) > 0 && intersects(p.TeamIDs, f.TeamIDs) {
		return true
	}
	if p.ClientID != "" && f.ClientID != nil && *f.ClientID == p.ClientID {
		return true
	}
	if p.ParticipantID != "" && contains(f.TicketUserIDs, p.ParticipantID) {
		return true
	}
	return false
}

// VisibleProjects returns the project predicate for actor.
func VisibleProjects(actor domain.Actor) ProjectPredicate {
	switch actor.EffectiveRole() {
	case domain.RoleAdmin:
		return ProjectPredicate{Kind: KindAll}
	case domain.RoleClient:
		if actor.ClientID == nil || *actor.ClientID == "" {
			return ProjectPredicate{Kind: KindNone}
		}
		return ProjectPredicate{Kind: KindRestricted, ClientID: *actor.ClientID}
	case domain.RoleManager:
		if actor.UserID == "" {
			return ProjectPredicate{Kind: KindNone}
		}
		return ProjectPredicate{
			Kind:      KindRestricted,
			ManagerID: actor.UserID,
			TeamIDs:   copyIDs(actor.TeamIDs),
		}
	default:
		if actor.UserID == "" {
			return ProjectPredicate{Kind: KindNone}
		}
		return ProjectPredicate{
			Kind:          KindRestricted,
			ManagerID:     actor.UserID,
			TeamIDs:       copyIDs(actor.TeamIDs),
			ParticipantID: actor.UserID,
		}
	}
}

// RequestPredicate restricts visible ticket requests.
type RequestPredicate struct {
	Kind     Kind
	ClientID string
}

// Matches evaluates the predicate against a request's client.
func (p RequestPredicate) Matches(clientID string) bool {
	switch p.Kind {
	case KindAll:
		return true
	case KindRestricted:
		return p.ClientID != "" && p.ClientID == clientID
	}
	return false
}

// VisibleTicketRequests returns the request predicate for actor. Collaborators
// never see client requests.
func VisibleTicketRequests(actor domain.Actor) RequestPredicate {
	switch actor.EffectiveRole() {
	case domain.RoleAdmin, domain.RoleManager:
		return RequestPredicate{Kind: KindAll}
	case domain.RoleClient:
		if actor.ClientID == nil || *actor.ClientID == "" {
			return RequestPredicate{Kind: KindNone}
		}
		return RequestPredicate{Kind: KindRestricted, ClientID: *actor.ClientID}
	}
	return RequestPredicate{Kind: KindNone}
}

// UserPredicate restricts whose point history an actor may read.
type UserPredicate struct {
	Kind    Kind
	UserID  string
	TeamIDs []string
}

// Matches evaluates the predicate against a user and their teams.
func (p UserPredicate) Matches(userID string, teamIDs []string) bool {
	switch p.Kind {
	case KindAll:
		return true
	case KindNone:
		return false
	}
	if p.UserID != "" && p.UserID == userID {
		return true
	}
	return len(p.TeamIDs) > 0 && intersects(p.TeamIDs, teamIDs)
}

// VisibleUsers returns the user predicate for actor: admins see everyone, managers
// their teams' members, everybody else only themselves.
func VisibleUsers(actor domain.Actor) UserPredicate {
	if actor.EffectiveRole() == domain.RoleAdmin {
		return UserPredicate{Kind: KindAll}
	}
	if actor.UserID == "" {
		return UserPredicate{Kind: KindNone}
	}
	pred := UserPredicate{Kind: KindRestricted, UserID: actor.UserID}
	if actor.EffectiveRole() == domain.RoleManager {
		pred.TeamIDs = copyIDs(actor.TeamIDs)
	}
	return pred
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}

func contains(list []string, id string) bool {
	for _, candidate := range list {
		if candidate == id {
			return true
		}
	}
	return false
}

func copyIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return append([]string(nil), ids...)
}
