// Package notify fans flushed document chunks out to other systems.
package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the part of a redis client used here.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes every flushed chunk on a channel.
type Redis struct {
	client  Publisher
	channel string
}

func NewRedis(client Publisher, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

// Dial connects to a redis server and checks it is reachable.
func Dial(ctx context.Context, addr, channel string) (*Redis, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedis(rdb, channel), rdb, nil
}

func (r *Redis) Flushed(ctx context.Context, text string) error {
	if err := r.client.Publish(ctx, r.channel, text).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return nil
}
