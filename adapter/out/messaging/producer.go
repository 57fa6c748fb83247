// Package messaging provides the Redis Streams producer and consumer
// adapters for the event pipeline.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/domain"
	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"

	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	StreamInbound = "messages:inbound"
	StreamScores  = "churn:scores"
	StreamAlerts  = "critical:alerts"
)

// RedisProducer implements out.StreamProducer using Redis Streams.
type RedisProducer struct {
	client *redis.Client
}

// NewRedisProducer creates a new RedisProducer.
func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

// PublishInbound publishes a raw message for scoring.
func (p *RedisProducer) PublishInbound(ctx context.Context, msg *domain.InboundMessage) error {
	return p.publish(ctx, StreamInbound, msg)
}

// PublishScored publishes a scored message.
func (p *RedisProducer) PublishScored(ctx context.Context, msg *domain.ScoredMessage) error {
	return p.publish(ctx, StreamScores, msg)
}

// PublishAlert publishes a critical alert.
func (p *RedisProducer) PublishAlert(ctx context.Context, alert *domain.AlertEvent) error {
	return p.publish(ctx, StreamAlerts, alert)
}

// publish serializes the payload into the stream's data field.
func (p *RedisProducer) publish(ctx context.Context, stream string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}

	return nil
}

// Ensure RedisProducer implements out.StreamProducer
var _ out.StreamProducer = (*RedisProducer)(nil)
