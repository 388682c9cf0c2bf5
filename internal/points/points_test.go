package points

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

func TestLevelFor(t *testing.T) {
	cases := map[int]int{
		-5:   1,
		0:    1,
		1:    1,
		999:  1,
		1000: 1,
		1001: 2,
		2000: 2,
		2001: 3,
	}
	for pts, want := range cases {
		assert.Equal(t, want, LevelFor(pts), "points=%d", pts)
	}
}

func TestPenalize(t *testing.T) {
	assert.Equal(t, 80, Penalize(100))
	assert.Equal(t, 64, Penalize(Penalize(100)))
	assert.Equal(t, 2, Penalize(3))
	assert.Equal(t, 8, Penalize(10))
	assert.Equal(t, 0, Penalize(0))
	assert.Equal(t, 0, Penalize(-20))
}

func TestDefaultRate(t *testing.T) {
	assert.Equal(t, 0.1, DefaultRate(1))
	assert.Equal(t, 0.3, DefaultRate(3))
	assert.Equal(t, 0.1, DefaultRate(0))
}

type accountsMock struct {
	mock.Mock
}

func (m *accountsMock) GetForUpdate(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *accountsMock) UpdatePoints(ctx context.Context, id string, pts, level int) error {
	return m.Called(ctx, id, pts, level).Error(0)
}

type journalMock struct {
	mock.Mock
}

func (m *journalMock) Create(ctx context.Context, entry *domain.PointHistory) error {
	return m.Called(ctx, entry).Error(0)
}

func fixedClock() time.Time {
	return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
}

func TestCreditCrossesLevel(t *testing.T) {
	ctx := context.Background()
	accounts := new(accountsMock)
	journal := new(journalMock)
	ticketID := "t1"

	accounts.On("GetForUpdate", ctx, "u1").Return(&domain.User{ID: "u1", Points: 950, Level: 1}, nil)
	accounts.On("UpdatePoints", ctx, "u1", 1010, 2).Return(nil)
	journal.On("Create", ctx, mock.MatchedBy(func(e *domain.PointHistory) bool {
		return e.UserID == "u1" && e.Points == 60 && e.TicketID != nil && *e.TicketID == "t1"
	})).Return(nil)

	entry, user, err := NewLedger(fixedClock).Credit(ctx, accounts, journal, "u1", &ticketID, 60, "Ticket t1 closed")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, fixedClock(), entry.CreatedAt)
	assert.Equal(t, 1010, user.Points)
	assert.Equal(t, 2, user.Level)

	accounts.AssertExpectations(t)
	journal.AssertExpectations(t)
}

func TestCreditIgnoresNonPositiveAmounts(t *testing.T) {
	accounts := new(accountsMock)
	journal := new(journalMock)

	entry, user, err := NewLedger(fixedClock).Credit(context.Background(), accounts, journal, "u1", nil, 0, "nothing")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Nil(t, user)
	accounts.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
	journal.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreditPropagatesJournalFailure(t *testing.T) {
	ctx := context.Background()
	accounts := new(accountsMock)
	journal := new(journalMock)
	boom := errors.New("disk full")

	accounts.On("GetForUpdate", ctx, "u1").Return(&domain.User{ID: "u1", Points: 10, Level: 1}, nil)
	accounts.On("UpdatePoints", ctx, "u1", 15, 1).Return(nil)
	journal.On("Create", ctx, mock.Anything).Return(boom)

	_, _, err := NewLedger(fixedClock).Credit(ctx, accounts, journal, "u1", nil, 5, "bonus")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestCreditPropagatesMissingUser(t *testing.T) {
	ctx := context.Background()
	accounts := new(accountsMock)
	journal := new(journalMock)
	missing := errors.New("not found")

	accounts.On("GetForUpdate", ctx, "ghost").Return(nil, missing)

	_, _, err := NewLedger(fixedClock).Credit(ctx, accounts, journal, "ghost", nil, 5, "bonus")
	assert.ErrorIs(t, err, missing)
	accounts.AssertNotCalled(t, "UpdatePoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
