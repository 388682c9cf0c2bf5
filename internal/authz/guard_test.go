package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/scope"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

func strPtr(s string) *string { return &s }

var (
	admin        = domain.Actor{UserID: "a1", Role: domain.RoleAdmin}
	manager      = domain.Actor{UserID: "m1", Role: domain.RoleManager, TeamIDs: []string{"team-1"}}
	collaborator = domain.Actor{UserID: "c1", Role: domain.RoleCollaborator, TeamIDs: []string{"team-1"}}
	client       = domain.Actor{UserID: "cl1", Role: domain.RoleClient, ClientID: strPtr("client-1")}
)

func TestCanTransition(t *testing.T) {
	ticket := &domain.Ticket{ID: "t1", CreatedBy: "c1"}

	tests := []struct {
		name  string
		actor domain.Actor
		from  domain.TicketStatus
		to    domain.TicketStatus
		code  string
	}{
		{"collaborator starts work", collaborator, domain.TicketStatusPending, domain.TicketStatusInProgress, ""},
		{"collaborator resolves", collaborator, domain.TicketStatusInProgress, domain.TicketStatusResolved, ""},
		{"collaborator resumes reopen", collaborator, domain.TicketStatusReopen, domain.TicketStatusInProgress, ""},
		{"collaborator shortcut from resolved", collaborator, domain.TicketStatusResolved, domain.TicketStatusInProgress, apperrors.CodeInvalidTransition},
		{"collaborator closes", collaborator, domain.TicketStatusResolved, domain.TicketStatusClosed, apperrors.CodeInvalidTransition},
		{"collaborator closes early", collaborator, domain.TicketStatusInProgress, domain.TicketStatusClosed, apperrors.CodeInvalidTransition},
		{"collaborator reopens", collaborator, domain.TicketStatusClosed, domain.TicketStatusReopen, apperrors.CodeForbidden},
		{"unknown role treated as collaborator", domain.Actor{UserID: "x", Role: "guest"}, domain.TicketStatusResolved, domain.TicketStatusClosed, apperrors.CodeInvalidTransition},
		{"manager closes", manager, domain.TicketStatusResolved, domain.TicketStatusClosed, ""},
		{"manager reopens", manager, domain.TicketStatusClosed, domain.TicketStatusReopen, ""},
		{"manager override close", manager, domain.TicketStatusPending, domain.TicketStatusClosed, ""},
		{"admin shortcut from resolved", admin, domain.TicketStatusResolved, domain.TicketStatusInProgress, ""},
		{"admin cannot skip graph", admin, domain.TicketStatusPending, domain.TicketStatusResolved, apperrors.CodeInvalidTransition},
		{"client never writes", client, domain.TicketStatusPending, domain.TicketStatusInProgress, apperrors.CodeForbidden},
		{"unknown target", admin, domain.TicketStatusPending, domain.TicketStatus("ouvert"), apperrors.CodeValidation},
		{"same status", collaborator, domain.TicketStatusResolved, domain.TicketStatusResolved, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CanTransition(tc.actor, ticket, tc.from, tc.to)
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestCanAccessTicketHidesExistence(t *testing.T) {
	facts := scope.TicketFacts{CreatedBy: "someone", AssigneeID: strPtr("other")}

	err := CanAccessTicket(collaborator, facts)
	require.Error(t, err)
	assert.True(t, IsOutOfScope(err))

	scoped := apperrors.ToDomainError(err)
	missing := apperrors.ToDomainError(apperrors.NewNotFound("ticket", nil))
	assert.Equal(t, missing.Code, scoped.Code)
	assert.Equal(t, missing.Message, scoped.Message)
	assert.Equal(t, missing.HTTPStatus, scoped.HTTPStatus)
	assert.Equal(t, missing.Details, scoped.Details)

	assert.NoError(t, CanAccessTicket(admin, facts))
	assert.False(t, IsOutOfScope(apperrors.NewNotFound("ticket", nil)))
}

func TestCanAccessProject(t *testing.T) {
	facts := scope.ProjectFacts{ClientID: strPtr("client-1"), TeamIDs: []string{"team-9"}}

	assert.NoError(t, CanAccessProject(client, facts))
	assert.True(t, IsOutOfScope(CanAccessProject(manager, facts)))
	assert.NoError(t, CanAccessProject(collaborator, scope.ProjectFacts{TicketUserIDs: []string{"c1"}}))
}

func TestCanAccessRequest(t *testing.T) {
	req := &domain.TicketRequest{ID: "r1", ClientID: "client-1"}

	assert.NoError(t, CanAccessRequest(client, req))
	assert.NoError(t, CanAccessRequest(manager, req))
	assert.True(t, IsOutOfScope(CanAccessRequest(collaborator, req)))

	other := domain.Actor{UserID: "cl2", Role: domain.RoleClient, ClientID: strPtr("client-2")}
	assert.True(t, IsOutOfScope(CanAccessRequest(other, req)))
}

func TestRequestValidationRoles(t *testing.T) {
	assert.True(t, CanApproveRequest(admin))
	assert.True(t, CanApproveRequest(manager))
	assert.False(t, CanApproveRequest(collaborator))
	assert.False(t, CanApproveRequest(client))
	assert.True(t, apperrors.HasCode(RequireApprover(collaborator), apperrors.CodeForbidden))
}

func TestCanSubmitRequest(t *testing.T) {
	own := &domain.Project{ID: "p1", ClientID: strPtr("client-1")}
	foreign := &domain.Project{ID: "p2", ClientID: strPtr("client-2")}
	internal := &domain.Project{ID: "p3"}

	assert.NoError(t, CanSubmitRequest(client, own))
	assert.True(t, IsOutOfScope(CanSubmitRequest(client, foreign)))
	assert.True(t, IsOutOfScope(CanSubmitRequest(client, internal)))
	assert.True(t, apperrors.HasCode(CanSubmitRequest(manager, own), apperrors.CodeForbidden))
}

func TestTicketManagementRoles(t *testing.T) {
	assert.NoError(t, CanManageTicket(manager))
	assert.Error(t, CanManageTicket(collaborator))
	assert.NoError(t, CanCreateTicket(collaborator))
	assert.Error(t, CanCreateTicket(client))
	assert.Error(t, CanEditTicket(client))
}

func TestCanViewUser(t *testing.T) {
	member := &domain.User{ID: "c1", TeamIDs: []string{"team-1"}}
	stranger := &domain.User{ID: "z1", TeamIDs: []string{"team-7"}}

	assert.NoError(t, CanViewUser(manager, member))
	assert.True(t, IsOutOfScope(CanViewUser(manager, stranger)))
	assert.NoError(t, CanViewUser(collaborator, member))
	assert.True(t, IsOutOfScope(CanViewUser(collaborator, stranger)))
}
