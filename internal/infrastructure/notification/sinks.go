package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"hostelhub.backend/internal/domain/entities"
	"hostelhub.backend/pkg/logger"
	"hostelhub.backend/pkg/redis"
)

// LogHandler writes every event to the structured log.
func LogHandler(ctx context.Context, event entities.NotificationEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID.String()),
		zap.String("type", string(event.Type)),
		zap.String("user_id", event.UserID.String()),
	}
	if event.VerificationStatus != "" {
		fields = append(fields, zap.String("verification_status", string(event.VerificationStatus)))
	}
	if event.AccountStatus != "" {
		fields = append(fields, zap.String("account_status", string(event.AccountStatus)))
	}
	if event.Role != "" {
		fields = append(fields, zap.String("role", string(event.Role)))
	}
	if event.Remarks.Valid {
		fields = append(fields, zap.String("remarks", event.Remarks.String))
	}
	logger.Info(ctx, "Notification", fields...)
	return nil
}

var publish = redis.Publish

// RedisPublisher returns a handler that publishes events as JSON on channel.
// Downstream mailers and push workers subscribe to it.
func RedisPublisher(channel string) Handler {
	return func(ctx context.Context, event entities.NotificationEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode notification: %w", err)
		}
		if _, err := publish(ctx, channel, payload); err != nil {
			return fmt.Errorf("failed to publish notification: %w", err)
		}
		return nil
	}
}
