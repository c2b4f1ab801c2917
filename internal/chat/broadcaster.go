package chat

import (
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	redisc "github.com/fieldops/wms-backend/internal/redis"
)

// envelope wraps a broadcast payload for redis fan-out. Origin identifies the
// publishing process so it can skip its own envelopes; local delivery has
// already happened by publish time.
type envelope struct {
	Origin  string          `json:"origin"`
	Exclude string          `json:"exclude,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// Broadcaster delivers a payload to the members of a room. Delivery always
// happens after the message is durably persisted, so a missing room or an
// offline member never loses data and is never an error.
type Broadcaster struct {
	registry   *Registry
	rooms      RoomFinder
	redis      *redis.Client
	instanceID string
}

// NewBroadcaster builds a broadcaster. redisClient may be nil, in which case
// delivery stays within this process.
func NewBroadcaster(registry *Registry, rooms RoomFinder, redisClient *redis.Client, instanceID string) *Broadcaster {
	return &Broadcaster{
		registry:   registry,
		rooms:      rooms,
		redis:      redisClient,
		instanceID: instanceID,
	}
}

// Broadcast pushes payload to both room members except excludeUsername.
// Failures are logged only.
func (b *Broadcaster) Broadcast(roomID int, payload []byte, excludeUsername string) {
	b.deliverLocal(roomID, payload, excludeUsername)

	if b.redis == nil {
		return
	}
	data, err := json.Marshal(envelope{
		Origin:  b.instanceID,
		Exclude: excludeUsername,
		Data:    payload,
	})
	if err != nil {
		return
	}
	if err := redisc.PublishToRoom(b.redis, roomID, data); err != nil {
		slog.Warn("failed to publish broadcast", "room_id", roomID, "error", err)
	}
}

func (b *Broadcaster) deliverLocal(roomID int, payload []byte, excludeUsername string) {
	room, err := b.rooms.RoomByID(roomID)
	if err != nil {
		slog.Warn("broadcast to unknown room", "room_id", roomID, "error", err)
		return
	}
	for _, username := range []string{room.TeknisiUsername, room.AdminRegionalUsername} {
		if username != excludeUsername {
			b.registry.Send(username, payload)
		}
	}
}

// RunFanIn consumes room envelopes published by other instances and delivers
// them to locally connected members. Blocks until the redis client closes.
func (b *Broadcaster) RunFanIn() {
	if b.redis == nil {
		return
	}
	redisc.SubscribeRooms(b.redis, func(roomID int, data []byte) {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("malformed broadcast envelope", "room_id", roomID, "error", err)
			return
		}
		if env.Origin == b.instanceID {
			return
		}
		b.deliverLocal(roomID, env.Data, env.Exclude)
	})
}
