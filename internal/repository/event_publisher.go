package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/office-hours-api/internal/models"
)

const eventStreamMaxLen = 10000

// RedisEventPublisher appends lifecycle events to a Redis stream for
// downstream consumers (mailers, push gateways).
type RedisEventPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisEventPublisher constructs the publisher. A nil client disables publishing.
func NewRedisEventPublisher(client *redis.Client, stream string) *RedisEventPublisher {
	return &RedisEventPublisher{client: client, stream: stream}
}

// Publish appends the event to the stream.
func (p *RedisEventPublisher) Publish(ctx context.Context, event models.LifecycleEvent) error {
	if p == nil || p.client == nil || p.stream == "" {
		return nil
	}
	args, err := streamArgs(p.stream, event)
	if err != nil {
		return err
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, p.stream, err)
	}
	return nil
}

func streamArgs(stream string, event models.LifecycleEvent) (*redis.XAddArgs, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal lifecycle event: %w", err)
	}
	return &redis.XAddArgs{
		Stream: stream,
		MaxLen: eventStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":          string(event.Type),
			"appointmentId": event.AppointmentID,
			"payload":       string(payload),
		},
	}, nil
}
