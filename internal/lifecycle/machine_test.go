package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

func newTicket(status domain.TicketStatus, reward int) *domain.Ticket {
	assignee := "u2"
	return &domain.Ticket{
		ID:           "t1",
		CreatedBy:    "u1",
		AssigneeID:   &assignee,
		Status:       status,
		RewardPoints: reward,
	}
}

func TestApplyStartStampsOpenedAtOnce(t *testing.T) {
	m := NewMachine(time.UTC)
	ticket := newTicket(domain.TicketStatusPending, 100)

	effects, err := m.Apply(ticket, domain.TicketStatusInProgress, at(2, 9))
	require.NoError(t, err)
	assert.True(t, effects.OpenedAtSet)
	require.NotNil(t, ticket.OpenedAt)
	assert.Equal(t, at(2, 9), *ticket.OpenedAt)

	ticket.Status = domain.TicketStatusReopen
	effects, err = m.Apply(ticket, domain.TicketStatusInProgress, at(4, 9))
	require.NoError(t, err)
	assert.False(t, effects.OpenedAtSet)
	assert.Nil(t, effects.Penalty)
	assert.Equal(t, at(2, 9), *ticket.OpenedAt)
	assert.Equal(t, 100, ticket.RewardPoints)
}

func TestApplyResolveComputesActualHours(t *testing.T) {
	m := NewMachine(time.UTC)
	ticket := newTicket(domain.TicketStatusInProgress, 100)
	opened := at(6, 9)
	ticket.OpenedAt = &opened

	effects, err := m.Apply(ticket, domain.TicketStatusResolved, at(9, 9))
	require.NoError(t, err)
	require.NotNil(t, effects.ActualHours)
	assert.Equal(t, 8.00, *effects.ActualHours)
	assert.Equal(t, 8.00, ticket.ActualHours)
	assert.False(t, effects.CreditDue)
}

func TestApplyReworkPenaltyCompounds(t *testing.T) {
	m := NewMachine(time.UTC)
	ticket := newTicket(domain.TicketStatusResolved, 100)

	effects, err := m.Apply(ticket, domain.TicketStatusInProgress, at(3, 9))
	require.NoError(t, err)
	require.NotNil(t, effects.Penalty)
	assert.Equal(t, Penalty{Before: 100, After: 80}, *effects.Penalty)
	assert.True(t, effects.Reopened)

	_, err = m.Apply(ticket, domain.TicketStatusResolved, at(3, 12))
	require.NoError(t, err)
	_, err = m.Apply(ticket, domain.TicketStatusInProgress, at(3, 13))
	require.NoError(t, err)
	assert.Equal(t, 64, ticket.RewardPoints)
}

func TestApplyCloseFlagsCredit(t *testing.T) {
	m := NewMachine(time.UTC)
	ticket := newTicket(domain.TicketStatusResolved, 50)

	effects, err := m.Apply(ticket, domain.TicketStatusClosed, at(3, 9))
	require.NoError(t, err)
	assert.True(t, effects.CreditDue)
	assert.False(t, effects.Reopened)

	effects, err = m.Apply(ticket, domain.TicketStatusClosed, at(3, 10))
	require.NoError(t, err)
	assert.True(t, effects.NoOp)
	assert.False(t, effects.CreditDue)
}

func TestApplyReopenRequestsRevision(t *testing.T) {
	m := NewMachine(time.UTC)
	ticket := newTicket(domain.TicketStatusClosed, 50)

	effects, err := m.Apply(ticket, domain.TicketStatusReopen, at(3, 9))
	require.NoError(t, err)
	assert.True(t, effects.RevisionRequested)
	assert.False(t, effects.Reopened)
	assert.Equal(t, domain.TicketStatusReopen, ticket.Status)
}

func TestApplyRejectsUnknownEdgesWithoutMutation(t *testing.T) {
	m := NewMachine(time.UTC)
	ticket := newTicket(domain.TicketStatusPending, 40)

	_, err := m.Apply(ticket, domain.TicketStatusResolved, at(3, 9))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Nil(t, ticket.OpenedAt)

	_, err = m.Apply(ticket, domain.TicketStatus("open"), at(3, 9))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestApplyNormalizesLegacyStoredStatus(t *testing.T) {
	m := NewMachine(time.UTC)
	ticket := newTicket(domain.TicketStatus("open"), 40)
	opened := at(2, 9)
	ticket.OpenedAt = &opened

	effects, err := m.Apply(ticket, domain.TicketStatusResolved, at(3, 9))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, effects.From)
}

func TestIsReopening(t *testing.T) {
	assert.True(t, IsReopening(domain.TicketStatusResolved, domain.TicketStatusInProgress))
	assert.True(t, IsReopening(domain.TicketStatusClosed, domain.TicketStatusInProgress))
	assert.False(t, IsReopening(domain.TicketStatusClosed, domain.TicketStatusReopen))
	assert.False(t, IsReopening(domain.TicketStatusResolved, domain.TicketStatusClosed))
	assert.False(t, IsReopening(domain.TicketStatusInProgress, domain.TicketStatusPending))
}

func TestTargets(t *testing.T) {
	assert.ElementsMatch(t, []domain.TicketStatus{domain.TicketStatusResolved}, Targets(domain.TicketStatusInProgress, false))
	assert.ElementsMatch(t,
		[]domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusReopen, domain.TicketStatusClosed},
		Targets(domain.TicketStatusResolved, true))
	assert.Empty(t, Targets(domain.TicketStatusClosed, false))
}
