package models

import "time"

const (
	RoleAdmin         = "admin"
	RoleAdminRegional = "admin_regional"
	RoleTeknisi       = "teknisi"
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Area         string    `json:"area"`
	Region       string    `json:"region"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
