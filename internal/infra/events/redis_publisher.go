package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"rota-claims/internal/infra/telemetry"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 5 * time.Second

// RedisPublisher fans notification events out over Redis Pub/Sub. Publishes
// are fire and forget: they run on their own goroutine with their own
// timeout, and a failure only logs and counts. Commits never wait for, or
// roll back on, a notification.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func (p *RedisPublisher) Publish(topic, event string, payload any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		body, err := json.Marshal(envelope{Event: event, Data: payload})
		if err != nil {
			telemetry.PublishFailures.Inc()
			slog.Warn("failed to encode event", "topic", topic, "event", event, "error", err.Error())
			return
		}

		if err := p.client.Publish(ctx, topic, body).Err(); err != nil {
			telemetry.PublishFailures.Inc()
			slog.Warn("failed to publish event", "topic", topic, "event", event, "error", err.Error())
		}
	}()
}

// NopPublisher drops every event; used where no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(string, string, any) {}
