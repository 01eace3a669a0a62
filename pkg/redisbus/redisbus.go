// Package redisbus is a thin JSON publish/subscribe layer over one Redis channel.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"

	"adminpanel/internal/logging"

	"github.com/redis/go-redis/v9"
)

// Bus publishes and receives JSON messages on a single Redis channel.
type Bus struct {
	rdb     *redis.Client
	channel string
	log     logging.Logger
}

// New returns a Bus on channel. Ping the client before use.
func New(rdb *redis.Client, channel string, log logging.Logger) *Bus {
	return &Bus{rdb: rdb, channel: channel, log: log.With("channel", channel)}
}

// Channel returns the Redis channel name.
func (b *Bus) Channel() string {
	return b.channel
}

// PublishJSON marshals v and publishes it.
func (b *Bus) PublishJSON(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe delivers every message payload to handler in a background
// goroutine until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, handler func(payload []byte) error) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	// wait for the subscription confirmation so setup errors surface here
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := handler([]byte(msg.Payload)); err != nil {
					b.log.Warn(ctx, "error processing message", "error", err)
				}
			}
		}
	}()
	return nil
}
