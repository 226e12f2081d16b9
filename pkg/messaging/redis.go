package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient publishes and receives JSON messages over redis pub/sub
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan Message, error)
	Close() error
}

// Message is a message received from a channel
type Message struct {
	Channel string
	Payload []byte
	Time    time.Time
}

// Decode unmarshals the JSON payload into out
func (m Message) Decode(out interface{}) error {
	if err := json.Unmarshal(m.Payload, out); err != nil {
		return fmt.Errorf("failed to decode message on %s: %w", m.Channel, err)
	}
	return nil
}

type redisClient struct {
	client *redis.Client
}

// NewRedisClientFromConn wraps an existing go-redis client
func NewRedisClientFromConn(client *redis.Client) RedisClient {
	return &redisClient{client: client}
}

func (r *redisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	return r.client.Publish(ctx, channel, payload).Err()
}

// Subscribe delivers messages until ctx is done
func (r *redisClient) Subscribe(ctx context.Context, channel string) (<-chan Message, error) {
	pubsub := r.client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	messageCh := make(chan Message)
	go func() {
		defer close(messageCh)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case messageCh <- Message{
					Channel: msg.Channel,
					Payload: []byte(msg.Payload),
					Time:    time.Now(),
				}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return messageCh, nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
