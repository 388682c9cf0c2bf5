package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-rewards/internal/api/dto"
	"github.com/spec-kit/ticket-rewards/internal/service"
)

// PointsHandler serves balances, ledger history and the leaderboard.
type PointsHandler struct {
	service *service.PointsService
}

// NewPointsHandler constructs handler.
func NewPointsHandler(points *service.PointsService) *PointsHandler {
	return &PointsHandler{service: points}
}

// Summary GET /points/users/:id, or GET /points/me when :id is absent.
func (h *PointsHandler) Summary(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), actor, userParam(c, actor.UserID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PointsSummaryResponse{
		UserID:      summary.UserID,
		Points:      summary.Points,
		Level:       summary.Level,
		NextLevelAt: summary.NextLevelAt,
		Rate:        summary.Rate,
		Value:       summary.Value,
	}})
}

// History GET /points/users/:id/history, or GET /points/me/history.
func (h *PointsHandler) History(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), actor, userParam(c, actor.UserID), parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pointHistoryResponses(entries)})
}

// TeamHistory GET /points/history.
func (h *PointsHandler) TeamHistory(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	entries, err := h.service.TeamHistory(c.UserContext(), actor, parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pointHistoryResponses(entries)})
}

// Leaderboard GET /points/leaderboard.
func (h *PointsHandler) Leaderboard(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	users, err := h.service.Leaderboard(c.UserContext(), actor, parsePage(c))
	if err != nil {
		return err
	}
	items := make([]dto.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		items = append(items, dto.LeaderboardEntry{
			UserID: u.ID,
			Name:   u.Name,
			Role:   string(u.Role),
			Points: u.Points,
			Level:  u.Level,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func userParam(c *fiber.Ctx, fallback string) string {
	if id := c.Params("id"); id != "" {
		return id
	}
	return fallback
}
