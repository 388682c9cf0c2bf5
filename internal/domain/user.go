package domain

import "time"

// User is a member of the workspace. Level is derived from Points and is only
// ever written alongside a points change.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Role      Role
	TeamIDs   []string
	ClientID  *string
	Points    int
	Level     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor builds the caller identity used by scope and authorization checks.
func (u *User) Actor() Actor {
	return Actor{
		UserID:   u.ID,
		Role:     u.Role,
		TeamIDs:  append([]string(nil), u.TeamIDs...),
		ClientID: u.ClientID,
	}
}
