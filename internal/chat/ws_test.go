package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/wms-backend/internal/auth"
	"github.com/fieldops/wms-backend/internal/middleware"
	"github.com/fieldops/wms-backend/internal/models"
)

// The upgrade has to survive the full middleware chain: a wrapped
// ResponseWriter that hides the underlying http.Hijacker breaks the handshake.
func TestServeWSUpgradeThroughMiddlewareChain(t *testing.T) {
	store := newMemStore()
	room, err := store.CreateRoom("tek1", "reg1", "WEST")
	require.NoError(t, err)

	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, store, nil, "local")

	const secret = "test-secret"
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Logging, middleware.CORS("*"))
	router.HandleFunc("/ws/chat", ServeWS(registry, broadcaster, store, nil, secret))

	srv := httptest.NewServer(router)
	defer srv.Close()
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")

	token, err := auth.GenerateToken("tek1", models.RoleTeknisi, "Jakarta Selatan", "WEST", secret)
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsBase+"/ws/chat?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.WriteJSON(ActionFrame{
		Action:     ActionSendMessage,
		RoomID:     room.ID,
		Message:    "hello over the wire",
		SenderRole: models.RoleTeknisi,
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event EventFrame
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, TypeNewMessage, event.Type)

	var payload MessagePayload
	require.NoError(t, json.Unmarshal(event.Message, &payload))
	require.Equal(t, "hello over the wire", payload.Message)
	require.Equal(t, "tek1", payload.SenderUsername)
}

func TestServeWSRejectsBadToken(t *testing.T) {
	registry := NewRegistry()
	store := newMemStore()
	broadcaster := NewBroadcaster(registry, store, nil, "local")

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Logging)
	router.HandleFunc("/ws/chat", ServeWS(registry, broadcaster, store, nil, "test-secret"))

	srv := httptest.NewServer(router)
	defer srv.Close()
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsBase+"/ws/chat?token=bogus", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsBase+"/ws/chat", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
