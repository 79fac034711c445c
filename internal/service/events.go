package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"auth-admin/internal/domain"
)

const EventsChannel = "auth:events"

// EventPublisher notifica eventos de dominio. Un fallo al publicar nunca
// cambia el resultado de la operacion que lo origino.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// LogEventPublisher escribe cada evento en el log.
type LogEventPublisher struct {
	logger *zap.Logger
}

func NewLogEventPublisher(logger *zap.Logger) *LogEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) Publish(_ context.Context, event domain.Event) error {
	p.logger.Info("domain event",
		zap.String("type", string(event.Type)),
		zap.Int64("user_id", event.UserID),
		zap.String("email", event.Email),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisEventPublisher publica los eventos como JSON en un canal pub/sub.
type RedisEventPublisher struct {
	client  redisPublisher
	channel string
}

func NewRedisEventPublisher(client redisPublisher, channel string) *RedisEventPublisher {
	if channel == "" {
		channel = EventsChannel
	}
	return &RedisEventPublisher{client: client, channel: channel}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// MultiPublisher reparte el evento a todos los publishers y une los errores.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func publishEvent(ctx context.Context, logger *zap.Logger, events EventPublisher, event domain.Event) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		logger.Warn("publish event failed",
			zap.String("type", string(event.Type)),
			zap.Int64("user_id", event.UserID),
			zap.Error(err),
		)
	}
}
