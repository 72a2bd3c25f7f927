package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// RedisPublisher is a Sink that feeds the off-chain relayer through a Redis
// Stream. The relayer consumes with XREAD and invokes AI/human assessment;
// that transport is outside the core contract.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisPublisher connects to Redis and publishes to the named stream.
func NewRedisPublisher(addr, password string, db int, stream string) *RedisPublisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPublisher{client: rdb, stream: stream}
}

// NewRedisPublisherWithClient wraps an existing client (testing).
func NewRedisPublisherWithClient(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Emit(ctx context.Context, eventType Type, actor identity.Address, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", eventType, err)
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type":  string(eventType),
			"actor": string(actor),
			"data":  string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", eventType, err)
	}
	return nil
}

// Close releases the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
