package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-rewards/internal/authz"
	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/events"
	"github.com/spec-kit/ticket-rewards/internal/notification"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

// failingStore injects write failures inside transactions.
type failingStore struct {
	repository.Store
	failPoints       error
	failDecision     error
	failTicketCreate error
	failTicketLookup error
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&failingStore{
			Store:            tx,
			failPoints:       f.failPoints,
			failDecision:     f.failDecision,
			failTicketCreate: f.failTicketCreate,
			failTicketLookup: f.failTicketLookup,
		})
	})
}

func (f *failingStore) PointHistory() repository.PointHistoryRepository {
	if f.failPoints == nil {
		return f.Store.PointHistory()
	}
	return failingJournal{PointHistoryRepository: f.Store.PointHistory(), err: f.failPoints}
}

func (f *failingStore) TicketRequests() repository.TicketRequestRepository {
	if f.failDecision == nil {
		return f.Store.TicketRequests()
	}
	return failingRequests{TicketRequestRepository: f.Store.TicketRequests(), err: f.failDecision}
}

func (f *failingStore) Tickets() repository.TicketRepository {
	if f.failTicketCreate == nil && f.failTicketLookup == nil {
		return f.Store.Tickets()
	}
	return failingTickets{TicketRepository: f.Store.Tickets(), create: f.failTicketCreate, lookup: f.failTicketLookup}
}

type failingTickets struct {
	repository.TicketRepository
	create error
	lookup error
}

func (r failingTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	if r.create != nil {
		return r.create
	}
	return r.TicketRepository.Create(ctx, ticket)
}

func (r failingTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if r.lookup != nil {
		return nil, r.lookup
	}
	return r.TicketRepository.GetByID(ctx, id)
}

func (r failingTickets) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	if r.lookup != nil {
		return nil, r.lookup
	}
	return r.TicketRepository.GetForUpdate(ctx, id)
}

type failingJournal struct {
	repository.PointHistoryRepository
	err error
}

func (j failingJournal) Create(context.Context, *domain.PointHistory) error { return j.err }

type failingRequests struct {
	repository.TicketRequestRepository
	err error
}

func (r failingRequests) UpdateDecision(context.Context, *domain.TicketRequest) error { return r.err }

func TestCreateTicketStartsPending(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, 50)

	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Nil(t, ticket.OpenedAt)
	assert.True(t, strings.HasPrefix(ticket.ExternalKey, "TCK-"))
	assert.Len(t, ticket.ExternalKey, 12)
	assert.Equal(t, f.manager.ID, ticket.CreatedBy)
	assert.Equal(t, 50, ticket.RewardPoints)
	assert.Equal(t, domain.TicketPriorityNormal, ticket.Priority)

	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.dispatcher.types())
	jobs := f.drain(t)
	assert.Equal(t, []string{notification.TypeTicketAssigned}, jobsFor(jobs, f.collab.ID))
	assert.Empty(t, jobsFor(jobs, f.manager.ID))
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		actor domain.User
		input CreateTicketInput
		code  string
	}{
		{"client", f.clientUser, CreateTicketInput{ProjectID: f.project.ID, Title: "x"}, apperrors.CodeForbidden},
		{"collaborator sets reward", f.collab, CreateTicketInput{ProjectID: f.project.ID, Title: "x", RewardPoints: intPtr(10)}, apperrors.CodeForbidden},
		{"negative reward", f.manager, CreateTicketInput{ProjectID: f.project.ID, Title: "x", RewardPoints: intPtr(-1)}, apperrors.CodeValidation},
		{"blank title", f.collab, CreateTicketInput{ProjectID: f.project.ID, Title: "  "}, apperrors.CodeValidation},
		{"bad priority", f.collab, CreateTicketInput{ProjectID: f.project.ID, Title: "x", Priority: "asap"}, apperrors.CodeValidation},
		{"project out of scope", f.outsider, CreateTicketInput{ProjectID: f.project.ID, Title: "x"}, apperrors.CodeNotFound},
		{"missing project", f.collab, CreateTicketInput{ProjectID: "nope", Title: "x"}, apperrors.CodeNotFound},
		{"client assignee", f.manager, CreateTicketInput{ProjectID: f.project.ID, Title: "x", AssigneeID: strPtr(f.clientUser.ID)}, apperrors.CodeValidation},
		{"unknown assignee", f.manager, CreateTicketInput{ProjectID: f.project.ID, Title: "x", AssigneeID: strPtr("ghost")}, apperrors.CodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.tickets.CreateTicket(f.ctx, f.actor(t, tc.actor), tc.input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tc.code), "got %v", err)
		})
	}
	assert.Empty(t, f.dispatcher.types())
}

func TestChangeStatusFullCycleCreditsAssigneeOnce(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, 100)
	collab := f.actor(t, f.collab)
	manager := f.actor(t, f.manager)

	res, err := f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "in_progress")
	require.NoError(t, err)
	assert.True(t, res.Effects.OpenedAtSet)
	require.NotNil(t, res.Ticket.OpenedAt)
	assert.True(t, monday9.Equal(*res.Ticket.OpenedAt))

	f.clock.Advance(24 * time.Hour)
	res, err = f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "resolved")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, res.Ticket.ActualHours, 0.001)

	res, err = f.tickets.ChangeStatus(f.ctx, manager, ticket.ID, "closed")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Credited)
	require.NotNil(t, res.Assignee)
	assert.Equal(t, 100, res.Assignee.Points)

	res, err = f.tickets.ChangeStatus(f.ctx, manager, ticket.ID, "closed")
	require.NoError(t, err)
	assert.True(t, res.Effects.NoOp)
	assert.Zero(t, res.Credited)

	user, err := f.store.Users().GetByID(f.ctx, f.collab.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, user.Points)
	assert.Equal(t, 1, user.Level)

	entries, err := f.store.PointHistory().ListByUser(f.ctx, f.collab.ID, repository.Page{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 100, entries[0].Points)
	assert.Equal(t, ticket.ID, *entries[0].TicketID)

	history, err := f.tickets.TicketHistory(f.ctx, manager, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	for _, h := range history {
		assert.Equal(t, domain.ChangeTypeStatus, h.ChangeType)
	}

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketStatusChanged,
		events.EventTicketStatusChanged,
	}, f.dispatcher.types())
	jobs := f.drain(t)
	assert.Contains(t, jobsFor(jobs, f.collab.ID), notification.TypePointsEarned)
}

func TestChangeStatusReworkPenaltyCompounds(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, 100)
	collab := f.actor(t, f.collab)
	admin := f.actor(t, f.admin)
	manager := f.actor(t, f.manager)

	for _, step := range []struct {
		actor  domain.Actor
		status string
	}{
		{collab, "in_progress"},
		{collab, "resolved"},
		{admin, "in_progress"},
	} {
		_, err := f.tickets.ChangeStatus(f.ctx, step.actor, ticket.ID, step.status)
		require.NoError(t, err)
	}
	got, err := f.tickets.GetTicket(f.ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.RewardPoints)

	_, err = f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "resolved")
	require.NoError(t, err)
	res, err := f.tickets.ChangeStatus(f.ctx, manager, ticket.ID, "in_progress")
	require.NoError(t, err)
	require.NotNil(t, res.Effects.Penalty)
	assert.Equal(t, 80, res.Effects.Penalty.Before)
	assert.Equal(t, 64, res.Effects.Penalty.After)
	assert.True(t, res.Effects.Reopened)

	jobs := jobsFor(f.drain(t), f.collab.ID)
	assert.Contains(t, jobs, notification.TypeTicketPenalty)
	assert.Contains(t, jobs, notification.TypeTicketReopened)
}

func TestCollaboratorDenialsLeaveTicketUntouched(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, 100)
	collab := f.actor(t, f.collab)
	manager := f.actor(t, f.manager)

	_, err := f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "in_progress")
	require.NoError(t, err)
	_, err = f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "resolved")
	require.NoError(t, err)

	_, err = f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "closed")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "got %v", err)
	_, err = f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "in_progress")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "got %v", err)
	_, err = f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "reopen")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "got %v", err)
	_, err = f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "ouvert")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)

	got, err := f.tickets.GetTicket(f.ctx, manager, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, got.Status)
	assert.Equal(t, 100, got.RewardPoints)

	user, err := f.store.Users().GetByID(f.ctx, f.collab.ID)
	require.NoError(t, err)
	assert.Zero(t, user.Points)

	allowed, err := f.tickets.AllowedTransitions(f.ctx, collab, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, allowed)
	allowed, err = f.tickets.AllowedTransitions(f.ctx, manager, ticket.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.TicketStatus{
		domain.TicketStatusInProgress, domain.TicketStatusReopen, domain.TicketStatusClosed,
	}, allowed)
}

func TestChangeStatusClientIsForbidden(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, 10)
	client := f.actor(t, f.clientUser)

	seen, err := f.tickets.GetTicket(f.ctx, client, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, seen.ID)

	_, err = f.tickets.ChangeStatus(f.ctx, client, ticket.ID, "in_progress")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "got %v", err)
}

func TestOutOfScopeLooksLikeMissing(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, 10)
	outsider := f.actor(t, f.outsider)

	_, hidden := f.tickets.ChangeStatus(f.ctx, outsider, ticket.ID, "in_progress")
	_, missing := f.tickets.ChangeStatus(f.ctx, outsider, "does-not-exist", "in_progress")
	require.Error(t, hidden)
	require.Error(t, missing)

	assert.True(t, authz.IsOutOfScope(hidden))
	assert.False(t, authz.IsOutOfScope(missing))
	h, m := apperrors.ToDomainError(hidden), apperrors.ToDomainError(missing)
	assert.Equal(t, m.Code, h.Code)
	assert.Equal(t, m.Message, h.Message)
	assert.Equal(t, m.HTTPStatus, h.HTTPStatus)
	assert.Equal(t, m.Details, h.Details)

	got, err := f.tickets.GetTicket(f.ctx, f.actor(t, f.manager), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, got.Status)
}

func TestChangeStatusRollsBackWhenCreditFails(t *testing.T) {
	var wrapper *failingStore
	f := newFixtureWithStore(t, func(s repository.Store) repository.Store {
		wrapper = &failingStore{Store: s}
		return wrapper
	})
	ticket := f.newTicket(t, 100)
	collab := f.actor(t, f.collab)
	manager := f.actor(t, f.manager)
	_, err := f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "in_progress")
	require.NoError(t, err)
	_, err = f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, "resolved")
	require.NoError(t, err)
	published := len(f.dispatcher.types())

	wrapper.failPoints = errors.New("disk full")
	_, err = f.tickets.ChangeStatus(f.ctx, manager, ticket.ID, "closed")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	got, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, got.Status)
	user, err := f.store.Users().GetByID(f.ctx, f.collab.ID)
	require.NoError(t, err)
	assert.Zero(t, user.Points)
	history, err := f.store.TicketHistory().ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Len(t, f.dispatcher.types(), published)
}

func TestLegacyStatusesAreNormalized(t *testing.T) {
	f := newFixture(t)
	opened := monday9.Add(-time.Hour)
	legacy := f.store.PutTicket(domain.Ticket{
		ExternalKey: "TCK-LEGACY01",
		ProjectID:   f.project.ID,
		CreatedBy:   f.manager.ID,
		AssigneeID:  strPtr(f.collab.ID),
		Title:       "Old row",
		Status:      "open",
		Priority:    domain.TicketPriorityLow,
		OpenedAt:    &opened,
	})
	collab := f.actor(t, f.collab)

	got, err := f.tickets.GetTicket(f.ctx, collab, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, got.Status)

	listed, err := f.tickets.ListTickets(f.ctx, collab, ListTicketsInput{Statuses: []string{"in_progress"}})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, legacy.ID, listed[0].ID)

	res, err := f.tickets.ChangeStatus(f.ctx, collab, legacy.ID, "resolved")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, res.Effects.From)
	assert.InDelta(t, 0.33, res.Ticket.ActualHours, 0.001)
}

func TestListTicketsRespectsScope(t *testing.T) {
	f := newFixture(t)
	teamTicket := f.newTicket(t, 10)
	admin := f.actor(t, f.admin)
	internal, err := f.tickets.CreateTicket(f.ctx, admin, CreateTicketInput{ProjectID: f.otherProject.ID, Title: "Internal"})
	require.NoError(t, err)

	ids := func(actor domain.User) []string {
		list, err := f.tickets.ListTickets(f.ctx, f.actor(t, actor), ListTicketsInput{})
		require.NoError(t, err)
		var out []string
		for _, tk := range list {
			out = append(out, tk.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []string{teamTicket.ID, internal.ID}, ids(f.admin))
	assert.ElementsMatch(t, []string{teamTicket.ID}, ids(f.manager))
	assert.ElementsMatch(t, []string{teamTicket.ID}, ids(f.collab))
	assert.ElementsMatch(t, []string{teamTicket.ID}, ids(f.clientUser))
	assert.Empty(t, ids(f.peer))
	assert.Empty(t, ids(f.outsider))

	_, err = f.tickets.ListTickets(f.ctx, admin, ListTicketsInput{Statuses: []string{"open"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestManagerWithoutTeamSeesOnlyOwnTickets(t *testing.T) {
	f := newFixture(t)
	f.newTicket(t, 10)
	loner := f.store.AddUser(domain.User{Name: "Lou", Role: domain.RoleManager})

	list, err := f.tickets.ListTickets(f.ctx, f.actor(t, loner), ListTicketsInput{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateTicketRecordsHistory(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, 10)
	collab := f.actor(t, f.collab)

	updated, err := f.tickets.UpdateTicket(f.ctx, collab, ticket.ID, UpdateTicketInput{
		Title:    strPtr("Fix login form"),
		Priority: strPtr("urgent"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Fix login form", updated.Title)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)

	_, err = f.tickets.UpdateTicket(f.ctx, collab, ticket.ID, UpdateTicketInput{RewardPoints: intPtr(500)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.UpdateTicket(f.ctx, f.actor(t, f.manager), ticket.ID, UpdateTicketInput{RewardPoints: intPtr(500)})
	require.NoError(t, err)

	history, err := f.tickets.TicketHistory(f.ctx, collab, ticket.ID)
	require.NoError(t, err)
	var kinds []domain.TicketChangeType
	for _, h := range history {
		kinds = append(kinds, h.ChangeType)
	}
	assert.ElementsMatch(t, []domain.TicketChangeType{domain.ChangeTypePriority, domain.ChangeTypeReward}, kinds)
}

func TestAssignTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, 10)
	f.drain(t)

	_, err := f.assignments.AssignTicket(f.ctx, f.actor(t, f.collab), ticket.ID, strPtr(f.peer.ID))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	updated, err := f.assignments.AssignTicket(f.ctx, f.actor(t, f.manager), ticket.ID, strPtr(f.peer.ID))
	require.NoError(t, err)
	assert.Equal(t, f.peer.ID, *updated.AssigneeID)
	assert.Equal(t, []string{notification.TypeTicketAssigned}, jobsFor(f.drain(t), f.peer.ID))

	// same assignee again is silent
	_, err = f.assignments.AssignTicket(f.ctx, f.actor(t, f.manager), ticket.ID, strPtr(f.peer.ID))
	require.NoError(t, err)
	assert.Empty(t, f.drain(t))

	history, err := f.store.TicketHistory().ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ChangeTypeAssignee, history[0].ChangeType)

	// the previous assignee lost sight of the ticket
	_, err = f.tickets.GetTicket(f.ctx, f.actor(t, f.collab), ticket.ID)
	assert.True(t, authz.IsOutOfScope(err))
}

func TestSelfAssignTicket(t *testing.T) {
	f := newFixture(t)
	collab := f.actor(t, f.collab)
	ticket, err := f.tickets.CreateTicket(f.ctx, collab, CreateTicketInput{ProjectID: f.project.ID, Title: "Spike"})
	require.NoError(t, err)
	assert.Nil(t, ticket.AssigneeID)

	taken, err := f.assignments.SelfAssignTicket(f.ctx, collab, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, f.collab.ID, *taken.AssigneeID)

	_, err = f.assignments.SelfAssignTicket(f.ctx, f.actor(t, f.manager), ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)
}

func TestSelfAssignNotifiesCreator(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.tickets.CreateTicket(f.ctx, f.actor(t, f.manager), CreateTicketInput{ProjectID: f.project.ID, Title: "Spike"})
	require.NoError(t, err)
	f.drain(t)

	_, err = f.assignments.SelfAssignTicket(f.ctx, f.actor(t, f.admin), ticket.ID)
	require.NoError(t, err)
	types := f.dispatcher.types()
	assert.Equal(t, events.EventTicketAssigned, types[len(types)-1])

	jobs := f.drain(t)
	assert.Equal(t, []string{notification.TypeTicketPickedUp}, jobsFor(jobs, f.manager.ID))
	assert.Empty(t, jobsFor(jobs, f.admin.ID))

	// Taking a ticket already held by the caller changes nothing and stays silent.
	before := len(f.dispatcher.types())
	_, err = f.assignments.SelfAssignTicket(f.ctx, f.actor(t, f.admin), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.types(), before)
	assert.Empty(t, f.drain(t))
}

func TestDeleteTicketHidesIt(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, 10)

	assert.True(t, apperrors.HasCode(f.tickets.DeleteTicket(f.ctx, f.actor(t, f.collab), ticket.ID), apperrors.CodeForbidden))
	require.NoError(t, f.tickets.DeleteTicket(f.ctx, f.actor(t, f.manager), ticket.ID))

	_, err := f.tickets.GetTicket(f.ctx, f.actor(t, f.admin), ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestMalformedTicketIDLooksMissing(t *testing.T) {
	f := newFixtureWithStore(t, func(s repository.Store) repository.Store {
		return &failingStore{Store: s, failTicketLookup: &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}}
	})
	admin := f.actor(t, f.admin)

	_, malformed := f.tickets.GetTicket(f.ctx, admin, "abc")
	_, missing := newFixture(t).tickets.GetTicket(f.ctx, admin, "abc")
	require.Error(t, malformed)
	assert.Equal(t, apperrors.ToDomainError(missing), apperrors.ToDomainError(malformed))

	_, err := f.tickets.ChangeStatus(f.ctx, admin, "abc", "closed")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)
}
