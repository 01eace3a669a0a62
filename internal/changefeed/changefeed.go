// Package changefeed carries document changes between service instances over
// RabbitMQ or Redis.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"adminpanel/internal/docstore"
	"adminpanel/pkg/rabbitmq"
	"adminpanel/pkg/redisbus"

	amqp "github.com/streadway/amqp"
)

// amqpClient is the part of rabbitmq.Client the feed needs.
type amqpClient interface {
	PublishJSON(v any) error
	Consume(messageHandler func(msg amqp.Delivery) error) error
}

// AMQP is a docstore.ChangeFeed over a RabbitMQ fanout exchange.
type AMQP struct {
	client amqpClient
}

var _ docstore.ChangeFeed = (*AMQP)(nil)

// NewAMQP wraps a connected RabbitMQ client.
func NewAMQP(client *rabbitmq.Client) *AMQP {
	return &AMQP{client: client}
}

func (f *AMQP) Publish(_ context.Context, c docstore.Change) error {
	return f.client.PublishJSON(c)
}

// Listen consumes until the connection closes; ctx is not consulted after setup.
func (f *AMQP) Listen(_ context.Context, fn func(docstore.Change)) error {
	return f.client.Consume(func(msg amqp.Delivery) error {
		c, err := decode(msg.Body)
		if err != nil {
			return err
		}
		fn(c)
		return nil
	})
}

// redisBus is the part of redisbus.Bus the feed needs.
type redisBus interface {
	PublishJSON(ctx context.Context, v any) error
	Subscribe(ctx context.Context, handler func(payload []byte) error) error
}

// Redis is a docstore.ChangeFeed over Redis pub/sub.
type Redis struct {
	bus redisBus
}

var _ docstore.ChangeFeed = (*Redis)(nil)

// NewRedis wraps a Redis bus.
func NewRedis(bus *redisbus.Bus) *Redis {
	return &Redis{bus: bus}
}

func (f *Redis) Publish(ctx context.Context, c docstore.Change) error {
	return f.bus.PublishJSON(ctx, c)
}

func (f *Redis) Listen(ctx context.Context, fn func(docstore.Change)) error {
	return f.bus.Subscribe(ctx, func(payload []byte) error {
		c, err := decode(payload)
		if err != nil {
			return err
		}
		fn(c)
		return nil
	})
}

func decode(body []byte) (docstore.Change, error) {
	var c docstore.Change
	if err := json.Unmarshal(body, &c); err != nil {
		return docstore.Change{}, fmt.Errorf("failed to decode change: %w", err)
	}
	if c.Collection == "" {
		return docstore.Change{}, fmt.Errorf("change without collection")
	}
	return c, nil
}
