package dto

import "time"

// PointsSummaryResponse is a user's balance and its value.
type PointsSummaryResponse struct {
	UserID      string  `json:"user_id"`
	Points      int     `json:"points"`
	Level       int     `json:"level"`
	NextLevelAt int     `json:"next_level_at"`
	Rate        float64 `json:"rate"`
	Value       float64 `json:"value"`
}

// PointHistoryResponse is one ledger entry.
type PointHistoryResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	TicketID    *string   `json:"ticket_id"`
	Points      int       `json:"points"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// LeaderboardEntry ranks a user by points.
type LeaderboardEntry struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Points int    `json:"points"`
	Level  int    `json:"level"`
}

// ProjectResponse represents a project.
type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	ManagerID   *string   `json:"manager_id"`
	ClientID    *string   `json:"client_id"`
	TeamIDs     []string  `json:"team_ids"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationResponse is an inbox entry.
type NotificationResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	Channel   string         `json:"channel"`
	Read      bool           `json:"is_read"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at"`
}
