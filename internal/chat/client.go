package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/fieldops/wms-backend/internal/auth"
	"github.com/fieldops/wms-backend/internal/database"
	"github.com/fieldops/wms-backend/internal/models"
	redisc "github.com/fieldops/wms-backend/internal/redis"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one live connection. Its read pump is the session's single
// control loop: actions are processed strictly in arrival order, and the only
// blocking point is the wait for the next frame.
type Client struct {
	registry    *Registry
	broadcaster *Broadcaster
	store       Store
	redis       *redis.Client

	conn     *websocket.Conn
	Username string
	Role     string
	send     chan []byte
}

// ServeWS upgrades the connection after verifying the JWT supplied as a query
// parameter. The identity and role bound to the session come from the token,
// never from the client.
func ServeWS(registry *Registry, broadcaster *Broadcaster, store Store, redisClient *redis.Client, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ValidateToken(token, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}

		client := &Client{
			registry:    registry,
			broadcaster: broadcaster,
			store:       store,
			redis:       redisClient,
			conn:        conn,
			Username:    claims.Username,
			Role:        claims.Role,
			send:        make(chan []byte, 256),
		}

		registry.Connect(client)
		client.setOnline()

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) setOnline() {
	if c.redis == nil {
		return
	}
	if err := redisc.SetOnline(c.redis, c.Username); err != nil {
		slog.Warn("failed to set presence", "username", c.Username, "error", err)
	}
}

func (c *Client) setOffline() {
	if c.redis == nil {
		return
	}
	if err := redisc.SetOffline(c.redis, c.Username); err != nil {
		slog.Warn("failed to clear presence", "username", c.Username, "error", err)
	}
}

func (c *Client) readPump() {
	defer func() {
		// A fault while processing one connection's frames must not take the
		// process down; close just this session.
		if r := recover(); r != nil {
			slog.Error("ws session fault", "username", c.Username, "panic", r)
		}
		c.registry.Disconnect(c)
		c.setOffline()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		// Each pong proves the connection is alive; keep the presence key from
		// expiring for as long as the client keeps answering pings.
		if c.redis != nil {
			if err := redisc.RefreshPresence(c.redis, c.Username); err != nil {
				slog.Warn("failed to refresh presence", "username", c.Username, "error", err)
			}
		}
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("ws read error", "error", err, "username", c.Username)
			}
			return
		}

		var frame ActionFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("malformed frame", CodeBadRequest)
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(frame ActionFrame) {
	switch frame.Action {
	case ActionSendMessage:
		c.handleSendMessage(frame)
	case ActionMarkRead:
		c.handleMarkRead(frame)
	default:
		c.sendError("unrecognized action", CodeBadRequest)
	}
}

func (c *Client) handleSendMessage(frame ActionFrame) {
	if frame.RoomID == 0 || frame.Message == "" || frame.SenderRole == "" {
		c.sendError("room_id, message, and sender_role are required", CodeBadRequest)
		return
	}
	if frame.SenderRole != c.Role {
		c.sendError("sender_role does not match connection identity", CodeBadRequest)
		return
	}

	messageType := frame.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	switch messageType {
	case models.MessageTypeText, models.MessageTypeImage, models.MessageTypeWOLink:
	default:
		c.sendError("invalid message_type", CodeBadRequest)
		return
	}

	room, err := c.store.RoomByID(frame.RoomID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.sendError("room not found", CodeNotFound)
		} else {
			slog.Error("failed to load room", "room_id", frame.RoomID, "error", err)
			c.sendError("failed to send message", CodeInternalError)
		}
		return
	}
	if !c.isMember(room) {
		c.sendError("not a member of this room", CodeForbidden)
		return
	}

	msg, err := c.store.AppendMessage(&models.ChatMessage{
		RoomID:         frame.RoomID,
		SenderUsername: c.Username,
		SenderRole:     c.Role,
		Message:        frame.Message,
		MessageType:    messageType,
		AttachmentURL:  frame.AttachmentURL,
	})
	if err != nil {
		slog.Error("failed to persist message", "room_id", frame.RoomID, "error", err)
		c.sendError("failed to send message", CodeInternalError)
		return
	}

	payload, err := NewMessageEvent(msg)
	if err != nil {
		return
	}
	// No exclusion: the sender receives their own echo as persist confirmation.
	c.broadcaster.Broadcast(msg.RoomID, payload, "")
}

func (c *Client) handleMarkRead(frame ActionFrame) {
	if frame.RoomID == 0 || frame.Role == "" {
		c.sendError("room_id and role are required", CodeBadRequest)
		return
	}
	if frame.Role != c.Role {
		c.sendError("role does not match connection identity", CodeBadRequest)
		return
	}

	if err := c.store.MarkRead(frame.RoomID, frame.Role, c.Username); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.sendError("room not found", CodeNotFound)
			return
		}
		slog.Error("failed to mark read", "room_id", frame.RoomID, "error", err)
	}
	// Read receipts are not broadcast to peers.
}

func (c *Client) isMember(room *models.ChatRoom) bool {
	switch c.Role {
	case models.RoleTeknisi:
		return room.TeknisiUsername == c.Username
	case models.RoleAdminRegional:
		return room.AdminRegionalUsername == c.Username
	}
	return false
}

func (c *Client) sendError(message, code string) {
	select {
	case c.send <- NewErrorEvent(message, code):
	default:
	}
}
