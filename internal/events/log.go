package events

import (
	"context"
	"log/slog"
)

// Drain logs every event delivered on sub until ctx is cancelled or the
// subscription is closed. It closes sub before returning.
func Drain(ctx context.Context, sub Subscription, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			logger.Info("asset event",
				"event_id", event.ID,
				"type", string(event.Type),
				"public_id", event.PublicID,
				"resource_type", event.ResourceType,
				"occurred_at", event.OccurredAt)
		}
	}
}
