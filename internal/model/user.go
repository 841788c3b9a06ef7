package model

import "time"

// User roles.
const (
	RoleDeveloper = "developer"
	RoleClient    = "client"
)

type User struct {
	ID                int       `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	Rating            float64   `json:"rating"`
	CompletedProjects int       `json:"completed_projects"`
	CreatedAt         time.Time `json:"created_at"`
}

// PublicUser is the subset of user fields exposed to other users.
type PublicUser struct {
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	Role              string  `json:"role"`
	Rating            float64 `json:"rating"`
	CompletedProjects int     `json:"completed_projects"`
}

// Public strips private fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		Name:              u.Name,
		Role:              u.Role,
		Rating:            u.Rating,
		CompletedProjects: u.CompletedProjects,
	}
}
