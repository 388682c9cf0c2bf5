package domain

import "time"

// Team groups users; projects may be assigned to teams.
type Team struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
