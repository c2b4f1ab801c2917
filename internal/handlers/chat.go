package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/fieldops/wms-backend/internal/auth"
	"github.com/fieldops/wms-backend/internal/chat"
	"github.com/fieldops/wms-backend/internal/database"
	"github.com/fieldops/wms-backend/internal/models"
	redisc "github.com/fieldops/wms-backend/internal/redis"
)

type roomResponse struct {
	ID                    int        `json:"id"`
	TeknisiUsername       string     `json:"teknisi_username"`
	AdminRegionalUsername string     `json:"admin_regional_username"`
	Region                string     `json:"region"`
	LastMessage           *string    `json:"last_message"`
	LastMessageAt         *time.Time `json:"last_message_at"`
	UnreadCount           int        `json:"unread_count"`
	CreatedAt             time.Time  `json:"created_at"`
}

func roomView(r *models.ChatRoom, role string) roomResponse {
	return roomResponse{
		ID:                    r.ID,
		TeknisiUsername:       r.TeknisiUsername,
		AdminRegionalUsername: r.AdminRegionalUsername,
		Region:                r.Region,
		LastMessage:           r.LastMessage,
		LastMessageAt:         r.LastMessageAt,
		UnreadCount:           r.UnreadFor(role),
		CreatedAt:             r.CreatedAt,
	}
}

// ListChatRooms returns the caller's rooms: teknisi and admin regional see
// their own pairings, admin sees all. The unread count is the caller's side.
func ListChatRooms(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		rooms, err := store.RoomsForUser(claims.Username, claims.Role)
		if err != nil {
			slog.Error("failed to list rooms", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		out := make([]roomResponse, 0, len(rooms))
		for i := range rooms {
			out = append(out, roomView(&rooms[i], claims.Role))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// CreateOrGetChatRoom resolves (or lazily creates) the room pairing a teknisi
// with their admin regional. A teknisi may only open their own room.
func CreateOrGetChatRoom(resolver *chat.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())

		var req struct {
			TeknisiUsername string `json:"teknisi_username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TeknisiUsername == "" {
			writeError(w, http.StatusBadRequest, "teknisi_username is required")
			return
		}
		if claims.Role == models.RoleTeknisi && req.TeknisiUsername != claims.Username {
			writeError(w, http.StatusForbidden, "teknisi can only open their own room")
			return
		}

		room, err := resolver.ResolveOrCreate(req.TeknisiUsername)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "no teknisi or admin regional matches")
				return
			}
			slog.Error("failed to resolve room", "teknisi", req.TeknisiUsername, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, roomView(room, claims.Role))
	}
}

// GetChatMessages returns one page of a room's history, oldest first.
func GetChatMessages(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())

		roomID, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid room id")
			return
		}

		room, err := store.RoomByID(roomID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "room not found")
				return
			}
			slog.Error("failed to get room", "room_id", roomID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		switch claims.Role {
		case models.RoleTeknisi:
			if room.TeknisiUsername != claims.Username {
				writeError(w, http.StatusForbidden, "access denied")
				return
			}
		case models.RoleAdminRegional:
			if room.AdminRegionalUsername != claims.Username {
				writeError(w, http.StatusForbidden, "access denied")
				return
			}
		}

		skip, limit := pagination(r, 0, 50, 100)
		messages, err := store.Messages(roomID, skip, limit)
		if err != nil {
			slog.Error("failed to get messages", "room_id", roomID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, messages)
	}
}

// OnlineUsers lists usernames with an active chat connection. Prefers the
// shared redis presence set so all instances are covered; falls back to the
// local registry when redis is unavailable.
func OnlineUsers(registry *chat.Registry, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if users, err := redisc.GetOnlineUsers(redisClient); err == nil {
				writeJSON(w, http.StatusOK, users)
				return
			}
		}
		writeJSON(w, http.StatusOK, registry.Online())
	}
}

func pagination(r *http.Request, defaultSkip, defaultLimit, maxLimit int) (skip, limit int) {
	skip, limit = defaultSkip, defaultLimit
	if s := r.URL.Query().Get("skip"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			skip = v
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= maxLimit {
			limit = v
		}
	}
	return skip, limit
}
