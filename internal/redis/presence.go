package redisc

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 120 * time.Second

func SetOnline(client *redis.Client, username string) error {
	ctx := context.Background()
	pipe := client.Pipeline()
	pipe.SAdd(ctx, "online_users", username)
	pipe.Set(ctx, "presence:"+username, "online", presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func SetOffline(client *redis.Client, username string) error {
	ctx := context.Background()
	pipe := client.Pipeline()
	pipe.SRem(ctx, "online_users", username)
	pipe.Del(ctx, "presence:"+username)
	_, err := pipe.Exec(ctx)
	return err
}

func GetOnlineUsers(client *redis.Client) ([]string, error) {
	return client.SMembers(context.Background(), "online_users").Result()
}

func RefreshPresence(client *redis.Client, username string) error {
	return client.Expire(context.Background(), "presence:"+username, presenceTTL).Err()
}
