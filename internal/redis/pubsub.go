package redisc

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "chat:room:"

// PublishToRoom fans a broadcast envelope out to every server instance
// subscribed to the room's channel.
func PublishToRoom(client *redis.Client, roomID int, data []byte) error {
	return client.Publish(context.Background(), roomChannelPrefix+strconv.Itoa(roomID), data).Err()
}

// SubscribeRooms blocks, invoking handler for every envelope published to any
// room channel. Runs until the client is closed.
func SubscribeRooms(client *redis.Client, handler func(roomID int, data []byte)) {
	ctx := context.Background()
	pubsub := client.PSubscribe(ctx, roomChannelPrefix+"*")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		roomID, err := strconv.Atoi(strings.TrimPrefix(msg.Channel, roomChannelPrefix))
		if err != nil {
			slog.Warn("pubsub message on malformed channel", "channel", msg.Channel)
			continue
		}
		handler(roomID, []byte(msg.Payload))
	}
}
