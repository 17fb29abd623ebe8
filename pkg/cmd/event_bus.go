package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowedit/pkg/channels/gochannel"
	"github.com/dukex/flowedit/pkg/channels/kafka"
	"github.com/dukex/flowedit/pkg/config"
	"github.com/dukex/flowedit/pkg/eventbus"
)

// NewEventBus creates the editor event bus. Provider "none" yields a nil bus.
func NewEventBus(cfg config.EventsConfig, serviceName string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch cfg.Provider {
	case "", "none":
		return nil, nil //nolint:nilnil // no bus configured
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "kafka":
		group := cfg.ConsumerGroup
		if group == "" {
			host, err := os.Hostname()
			if err != nil {
				return nil, fmt.Errorf("failed to derive Kafka consumer group: %w", err)
			}

			group = kafka.ConsumerGroup(serviceName, host)
		}

		pub, sub, err := kafka.CreateChannel(wmLogger, cfg.Brokers, group)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", cfg.Provider)
	}
}
