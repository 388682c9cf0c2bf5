package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/scope"
)

func strPtr(s string) *string { return &s }

func TestTicketScopeSQL(t *testing.T) {
	args := &queryArgs{}
	assert.Equal(t, "TRUE", ticketScopeSQL(scope.VisibleTickets(domain.Actor{UserID: "a", Role: domain.RoleAdmin}), args))
	assert.Empty(t, args.values)

	noClient := scope.VisibleTickets(domain.Actor{UserID: "c", Role: domain.RoleClient})
	assert.Equal(t, "FALSE", ticketScopeSQL(noClient, args))

	manager := domain.Actor{UserID: "m1", Role: domain.RoleManager, TeamIDs: []string{"team-1"}}
	args = &queryArgs{values: []any{"existing"}}
	clause := ticketScopeSQL(scope.VisibleTickets(manager), args)
	assert.Equal(t,
		"((t.created_by = $2 OR t.assignee_id = $2) OR t.assignee_id IN (SELECT tu.user_id FROM team_user tu WHERE tu.team_id = ANY($3::uuid[])))",
		clause)
	assert.Equal(t, []any{"existing", "m1", []string{"team-1"}}, args.values)

	lonely := domain.Actor{UserID: "m2", Role: domain.RoleManager}
	args = &queryArgs{}
	assert.Equal(t, "((t.created_by = $1 OR t.assignee_id = $1))", ticketScopeSQL(scope.VisibleTickets(lonely), args))
}

func TestProjectScopeSQL(t *testing.T) {
	client := domain.Actor{UserID: "u", Role: domain.RoleClient, ClientID: strPtr("client-1")}
	args := &queryArgs{}
	assert.Equal(t, "(p.client_id = $1)", projectScopeSQL(scope.VisibleProjects(client), args))
	assert.Equal(t, []any{"client-1"}, args.values)

	collab := domain.Actor{UserID: "c1", Role: domain.RoleCollaborator}
	args = &queryArgs{}
	clause := projectScopeSQL(scope.VisibleProjects(collab), args)
	assert.Contains(t, clause, "p.manager_id = $1")
	assert.Contains(t, clause, "EXISTS (SELECT 1 FROM tickets pt2")
	assert.Len(t, args.values, 2)
}

func TestRequestAndUserScopeSQL(t *testing.T) {
	args := &queryArgs{}
	collab := domain.Actor{UserID: "c1", Role: domain.RoleCollaborator}
	assert.Equal(t, "FALSE", requestScopeSQL(scope.VisibleTicketRequests(collab), args))
	assert.Equal(t, "(ph.user_id = $1)", userScopeSQL(scope.VisibleUsers(collab), "ph.user_id", args))
}

func TestStatusValuesIncludesRetiredAliases(t *testing.T) {
	assert.Equal(t,
		[]string{"pending", "in_progress", "open", "closed", "rejected"},
		statusValues([]domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusInProgress, domain.TicketStatusClosed}))
}
