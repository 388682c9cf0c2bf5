package domain

import "time"

// ProjectType distinguishes internal work from client work.
type ProjectType string

const (
	ProjectTypeInternal ProjectType = "internal"
	ProjectTypeExternal ProjectType = "external"
)

// Project is the scoping anchor for tickets.
type Project struct {
	ID          string
	Name        string
	Type        ProjectType
	Description string
	ManagerID   *string
	ClientID    *string
	TeamIDs     []string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Client is an external customer; UserID links the client's login account.
type Client struct {
	ID     string
	Name   string
	Email  string
	UserID *string
}
