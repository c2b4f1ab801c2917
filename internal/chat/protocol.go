package chat

import (
	"encoding/json"

	"github.com/fieldops/wms-backend/internal/models"
)

const (
	ActionSendMessage = "send_message"
	ActionMarkRead    = "mark_read"

	TypeNewMessage = "new_message"
	TypeError      = "error"

	CodeBadRequest    = "BAD_REQUEST"
	CodeNotFound      = "NOT_FOUND"
	CodeForbidden     = "FORBIDDEN"
	CodeInternalError = "INTERNAL_ERROR"
)

// timeLayout matches what the mobile clients already parse.
const timeLayout = "2006-01-02 15:04:05"

// ActionFrame is the inbound client frame. Fields beyond action and room_id
// are action-specific.
type ActionFrame struct {
	Action        string  `json:"action"`
	RoomID        int     `json:"room_id"`
	Message       string  `json:"message,omitempty"`
	SenderRole    string  `json:"sender_role,omitempty"`
	MessageType   string  `json:"message_type,omitempty"`
	AttachmentURL *string `json:"attachment_url,omitempty"`
	Role          string  `json:"role,omitempty"`
}

type EventFrame struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

type MessagePayload struct {
	ID             int     `json:"id"`
	RoomID         int     `json:"room_id"`
	SenderUsername string  `json:"sender_username"`
	SenderRole     string  `json:"sender_role"`
	Message        string  `json:"message"`
	MessageType    string  `json:"message_type"`
	AttachmentURL  *string `json:"attachment_url"`
	CreatedAt      string  `json:"created_at"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewMessageEvent encodes a persisted message as a new_message frame.
func NewMessageEvent(m *models.ChatMessage) ([]byte, error) {
	payload, err := json.Marshal(MessagePayload{
		ID:             m.ID,
		RoomID:         m.RoomID,
		SenderUsername: m.SenderUsername,
		SenderRole:     m.SenderRole,
		Message:        m.Message,
		MessageType:    m.MessageType,
		AttachmentURL:  m.AttachmentURL,
		CreatedAt:      m.CreatedAt.Format(timeLayout),
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(EventFrame{Type: TypeNewMessage, Message: payload})
}

// NewErrorEvent encodes a structured error frame. Delivery failures never use
// this; it exists for frames the server refuses to act on.
func NewErrorEvent(message, code string) []byte {
	data, _ := json.Marshal(EventFrame{
		Type:  TypeError,
		Error: &ErrorPayload{Message: message, Code: code},
	})
	return data
}
