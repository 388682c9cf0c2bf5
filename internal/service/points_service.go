package service

import (
	"context"
	"math"

	"github.com/spec-kit/ticket-rewards/internal/authz"
	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/points"
	"github.com/spec-kit/ticket-rewards/internal/repository"
	"github.com/spec-kit/ticket-rewards/internal/scope"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

// PointsService exposes balances and point history.
type PointsService struct {
	store repository.Store
}

// NewPointsService constructs PointsService.
func NewPointsService(store repository.Store) *PointsService {
	return &PointsService{store: store}
}

// PointsSummary is a user's balance valued at the rate for their level.
type PointsSummary struct {
	UserID      string
	Points      int
	Level       int
	NextLevelAt int
	Rate        float64
	Value       float64
}

// Summary returns the balance of userID, which must be visible to actor.
func (s *PointsService) Summary(ctx context.Context, actor domain.Actor, userID string) (*PointsSummary, error) {
	user, err := s.visibleUser(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	level := user.Level
	if level < 1 {
		level = points.LevelFor(user.Points)
	}
	rate := points.DefaultRate(level)
	stored, err := s.store.PointRates().GetByLevel(ctx, level)
	switch {
	case err == nil:
		rate = stored.Rate
	case !apperrors.IsNoRows(err):
		return nil, apperrors.MapError(err)
	}
	return &PointsSummary{
		UserID:      user.ID,
		Points:      user.Points,
		Level:       level,
		NextLevelAt: level * points.PointsPerLevel,
		Rate:        rate,
		Value:       math.Round(float64(user.Points)*rate*100) / 100,
	}, nil
}

// History lists point entries of userID, newest first.
func (s *PointsService) History(ctx context.Context, actor domain.Actor, userID string, page repository.Page) ([]domain.PointHistory, error) {
	if _, err := s.visibleUser(ctx, actor, userID); err != nil {
		return nil, err
	}
	entries, err := s.store.PointHistory().ListByUser(ctx, userID, page.Normalize())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// TeamHistory lists point entries across the users an admin or manager oversees.
func (s *PointsService) TeamHistory(ctx context.Context, actor domain.Actor, page repository.Page) ([]domain.PointHistory, error) {
	if !actor.EffectiveRole().Privileged() {
		return nil, apperrors.NewForbidden("only managers and admins can view team points")
	}
	entries, err := s.store.PointHistory().ListVisible(ctx, scope.VisibleUsers(actor), page.Normalize())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// Leaderboard ranks visible users by balance.
func (s *PointsService) Leaderboard(ctx context.Context, actor domain.Actor, page repository.Page) ([]domain.User, error) {
	users, err := s.store.Users().ListVisible(ctx, scope.VisibleUsers(actor), page.Normalize())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

func (s *PointsService) visibleUser(ctx context.Context, actor domain.Actor, userID string) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	if err := authz.CanViewUser(actor, user); err != nil {
		return nil, err
	}
	return user, nil
}
