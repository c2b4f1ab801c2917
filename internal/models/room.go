package models

import "time"

// ChatRoom pairs one teknisi with one admin regional. At most one room
// exists per (teknisi, admin regional) pair; the database enforces this.
type ChatRoom struct {
	ID                    int        `json:"id"`
	TeknisiUsername       string     `json:"teknisi_username"`
	AdminRegionalUsername string     `json:"admin_regional_username"`
	Region                string     `json:"region"`
	LastMessage           *string    `json:"last_message"`
	LastMessageAt         *time.Time `json:"last_message_at"`
	UnreadCountTeknisi    int        `json:"unread_count_teknisi"`
	UnreadCountAdmin      int        `json:"unread_count_admin"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// UnreadFor returns the unread counter belonging to the given role.
func (r *ChatRoom) UnreadFor(role string) int {
	if role == RoleTeknisi {
		return r.UnreadCountTeknisi
	}
	return r.UnreadCountAdmin
}
