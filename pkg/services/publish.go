package services

import (
	"context"
	"log/slog"

	"github.com/nishchith-m1015/campaign-sync/pkg/eventbus"
)

// publishEvent emits a lifecycle event without blocking the calling flow.
// Publication is best-effort: a failed publish is logged and swallowed, it
// never fails the operation that produced it.
func publishEvent(ctx context.Context, publisher eventbus.EventPublisher, logger *slog.Logger, key string, event eventbus.Event) {
	if publisher == nil {
		return
	}

	err := publisher.Publish(ctx, key, event)
	if err != nil {
		logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.GetType(),
			"key", key,
			"error", err)
	}
}
