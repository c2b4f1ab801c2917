package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/wms-backend/internal/models"
)

func TestNewMessageEventShape(t *testing.T) {
	url := "/uploads/photos/wo42_ont.jpg"
	data, err := NewMessageEvent(&models.ChatMessage{
		ID:             7,
		RoomID:         3,
		SenderUsername: "tek1",
		SenderRole:     models.RoleTeknisi,
		Message:        "foto terlampir",
		MessageType:    models.MessageTypeImage,
		AttachmentURL:  &url,
		CreatedAt:      time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var frame map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &frame))

	var typ string
	require.NoError(t, json.Unmarshal(frame["type"], &typ))
	assert.Equal(t, TypeNewMessage, typ)

	var msg MessagePayload
	require.NoError(t, json.Unmarshal(frame["message"], &msg))
	assert.Equal(t, 7, msg.ID)
	assert.Equal(t, 3, msg.RoomID)
	assert.Equal(t, "tek1", msg.SenderUsername)
	assert.Equal(t, models.MessageTypeImage, msg.MessageType)
	require.NotNil(t, msg.AttachmentURL)
	assert.Equal(t, url, *msg.AttachmentURL)
	assert.Equal(t, "2025-06-01 09:30:00", msg.CreatedAt)
}

func TestNewErrorEvent(t *testing.T) {
	var ev EventFrame
	require.NoError(t, json.Unmarshal(NewErrorEvent("room not found", CodeNotFound), &ev))
	assert.Equal(t, TypeError, ev.Type)
	require.NotNil(t, ev.Error)
	assert.Equal(t, CodeNotFound, ev.Error.Code)
	assert.Equal(t, "room not found", ev.Error.Message)
}

func TestActionFrameDecoding(t *testing.T) {
	raw := `{"action":"send_message","room_id":5,"message":"unit collected","sender_role":"teknisi","message_type":"text"}`
	var frame ActionFrame
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	assert.Equal(t, ActionSendMessage, frame.Action)
	assert.Equal(t, 5, frame.RoomID)
	assert.Equal(t, "unit collected", frame.Message)
	assert.Equal(t, models.RoleTeknisi, frame.SenderRole)
}
