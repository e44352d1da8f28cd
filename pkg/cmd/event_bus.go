package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/nishchith-m1015/campaign-sync/pkg/channels/gochannel"
	"github.com/nishchith-m1015/campaign-sync/pkg/channels/kafka"
	"github.com/nishchith-m1015/campaign-sync/pkg/eventbus"
)

// NewEventBus creates the campaign event bus. "kafka" selects the broker
// configured through KAFKA_BROKERS; anything else gets the in-process
// channel, which is enough for single-instance deployments.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, "campaign-sync")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	}
}
