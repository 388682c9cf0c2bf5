package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-rewards/internal/authz"
	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

// closeTicket walks a fresh ticket through to closed.
func (f *fixture) closeTicket(t *testing.T, reward int) {
	t.Helper()
	ticket := f.newTicket(t, reward)
	collab := f.actor(t, f.collab)
	for _, status := range []string{"in_progress", "resolved"} {
		_, err := f.tickets.ChangeStatus(f.ctx, collab, ticket.ID, status)
		require.NoError(t, err)
	}
	_, err := f.tickets.ChangeStatus(f.ctx, f.actor(t, f.manager), ticket.ID, "closed")
	require.NoError(t, err)
}

func TestPointsSummary(t *testing.T) {
	f := newFixture(t)
	f.closeTicket(t, 700)
	f.closeTicket(t, 400)
	f.store.SetPointRate(2, 0.25)

	summary, err := f.points.Summary(f.ctx, f.actor(t, f.collab), f.collab.ID)
	require.NoError(t, err)
	assert.Equal(t, 1100, summary.Points)
	assert.Equal(t, 2, summary.Level)
	assert.Equal(t, 2000, summary.NextLevelAt)
	assert.InDelta(t, 0.25, summary.Rate, 1e-9)
	assert.InDelta(t, 275.0, summary.Value, 1e-9)
}

func TestPointsSummaryFallsBackToDefaultRate(t *testing.T) {
	f := newFixture(t)
	f.closeTicket(t, 300)

	summary, err := f.points.Summary(f.ctx, f.actor(t, f.manager), f.collab.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Level)
	assert.InDelta(t, 0.10, summary.Rate, 1e-9)
	assert.InDelta(t, 30.0, summary.Value, 1e-9)
}

func TestPointsVisibility(t *testing.T) {
	f := newFixture(t)
	f.closeTicket(t, 100)

	_, err := f.points.Summary(f.ctx, f.actor(t, f.peer), f.collab.ID)
	assert.True(t, authz.IsOutOfScope(err))
	_, err = f.points.History(f.ctx, f.actor(t, f.outsider), f.collab.ID, repository.Page{})
	assert.True(t, authz.IsOutOfScope(err))
	_, err = f.points.Summary(f.ctx, f.actor(t, f.admin), "ghost")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	own, err := f.points.History(f.ctx, f.actor(t, f.collab), f.collab.ID, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, own, 1)

	team, err := f.points.TeamHistory(f.ctx, f.actor(t, f.manager), repository.Page{})
	require.NoError(t, err)
	assert.Len(t, team, 1)

	_, err = f.points.TeamHistory(f.ctx, f.actor(t, f.collab), repository.Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	loner := f.store.AddUser(domain.User{Name: "Lou", Role: domain.RoleManager})
	empty, err := f.points.TeamHistory(f.ctx, f.actor(t, loner), repository.Page{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLeaderboardOrdersByPoints(t *testing.T) {
	f := newFixture(t)
	f.closeTicket(t, 100)

	board, err := f.points.Leaderboard(f.ctx, f.actor(t, f.manager), repository.Page{})
	require.NoError(t, err)
	require.NotEmpty(t, board)
	assert.Equal(t, f.collab.ID, board[0].ID)
	for _, u := range board {
		assert.NotEqual(t, f.outsider.ID, u.ID)
	}
}

func TestProjectScope(t *testing.T) {
	f := newFixture(t)

	list, err := f.projects.List(f.ctx, f.actor(t, f.clientUser), repository.Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.project.ID, list[0].ID)

	_, err = f.projects.Get(f.ctx, f.actor(t, f.clientUser), f.otherProject.ID)
	assert.True(t, authz.IsOutOfScope(err))

	all, err := f.projects.List(f.ctx, f.actor(t, f.admin), repository.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
