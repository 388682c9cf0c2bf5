package domain

import "time"

// PointHistory is an append-only ledger entry owned by a user.
type PointHistory struct {
	ID          string
	UserID      string
	TicketID    *string
	Points      int
	Description string
	CreatedAt   time.Time
}

// PointRate is the monetary value of one point at a given level.
type PointRate struct {
	Level int
	Rate  float64
}
