package domain

import "strings"

// Role enumerates the mutually exclusive user roles.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleCollaborator Role = "collaborator"
	RoleClient       Role = "client"
)

// ParseRole normalizes a stored or claimed role. Unknown values come back as-is and
// are treated as collaborator-equivalent by Actor.EffectiveRole.
func ParseRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCollaborator, RoleClient:
		return true
	}
	return false
}

// Privileged reports whether the role may override the ticket lifecycle.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// Actor is the authenticated caller passed explicitly through every operation.
type Actor struct {
	UserID   string
	Role     Role
	TeamIDs  []string
	ClientID *string
}

// EffectiveRole maps unset or unknown roles onto the self-scoped collaborator role.
func (a Actor) EffectiveRole() Role {
	if !a.Role.Valid() {
		return RoleCollaborator
	}
	return a.Role
}

// InTeam reports whether the actor belongs to teamID.
func (a Actor) InTeam(teamID string) bool {
	for _, id := range a.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// SharesTeam reports whether any of teamIDs is one of the actor's teams.
func (a Actor) SharesTeam(teamIDs []string) bool {
	for _, id := range teamIDs {
		if a.InTeam(id) {
			return true
		}
	}
	return false
}
