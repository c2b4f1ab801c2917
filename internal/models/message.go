package models

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeWOLink = "wo_link"
)

type ChatMessage struct {
	ID             int       `json:"id"`
	RoomID         int       `json:"room_id"`
	SenderUsername string    `json:"sender_username"`
	SenderRole     string    `json:"sender_role"`
	Message        string    `json:"message"`
	MessageType    string    `json:"message_type"`
	AttachmentURL  *string   `json:"attachment_url"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}
