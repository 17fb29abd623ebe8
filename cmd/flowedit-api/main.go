package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/flowedit/pkg/channels/kafka"
	"github.com/dukex/flowedit/pkg/cmd"
	"github.com/dukex/flowedit/pkg/config"
	"github.com/dukex/flowedit/pkg/eventbus"
	"github.com/dukex/flowedit/pkg/log"
	"github.com/dukex/flowedit/pkg/otelhelper"
	"github.com/dukex/flowedit/pkg/presence"
	cli "github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCommand().Run(ctx, os.Args)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "flowedit-api",
		Usage:                 "Serve workflow editor sessions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Sources: cli.EnvVars("FLOWEDIT_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   config.Default().Server.Port,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "store-url",
				Usage:   "Workflow store URL (file://<dir> or http(s)://<server>)",
				Sources: cli.EnvVars("STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (none, gochannel, kafka)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, command *cli.Command) error {
	cfg, err := loadConfig(command)
	if err != nil {
		return err
	}

	log.Setup(cfg.LogLevel, cfg.LogFormat)

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing workflow editor API", "store", cfg.Store.URL)

	deps := sessionDeps{config: cfg, logger: logger}

	if cfg.Tracing.Enabled {
		tracer, provider, err := otelhelper.NewTracer(ctx, cfg.Tracing.ServiceName)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()

		deps.tracer = tracer
	}

	store, err := cmd.NewPersistence(log.WithModule("store"), cfg.Store)
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	deps.store = store

	catalog, err := store.GetNodeTypeCatalog(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Node type catalog unavailable, generator runs without it", "error", err)
	}

	deps.generator, err = cmd.NewGenerator(cfg.Generation, catalog, log.WithModule("generation"))
	if err != nil {
		return err
	}

	deps.presence, err = cmd.NewPresenceFeed(cfg.Presence, log.WithModule("presence"))
	if err != nil {
		return err
	}

	defer closePresence(deps.presence, logger)

	bus, err := cmd.NewEventBus(cfg.Events, cfg.Tracing.ServiceName, logger)
	if err != nil {
		return err
	}

	if bus != nil {
		defer func() {
			if err := bus.Close(); err != nil {
				logger.Error("Failed to close event bus", "error", err)
			}
		}()

		deps.sink = eventbus.NewForwarder(bus, log.WithModule("events"))
	}

	api := NewAPI(logger, store, deps.factory())

	if bus != nil {
		if err := api.WatchChanges(ctx, bus); err != nil {
			return fmt.Errorf("failed to subscribe to editor events: %w", err)
		}
	}

	return api.Start(ctx, cfg.Server.Port)
}

// closePresence releases feeds holding a connection, such as the Redis client.
func closePresence(feed presence.Feed, logger *slog.Logger) {
	closer, ok := feed.(io.Closer)
	if !ok {
		return
	}

	if err := closer.Close(); err != nil {
		logger.Error("Failed to close presence feed", "error", err)
	}
}

// loadConfig reads the config file and applies explicitly set flags on top.
func loadConfig(command *cli.Command) (config.Config, error) {
	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if command.IsSet("port") {
		cfg.Server.Port = command.Int("port")
	}

	if command.IsSet("store-url") {
		cfg.Store.URL = command.String("store-url")
	}

	if command.IsSet("event-bus") {
		cfg.Events.Provider = command.String("event-bus")
	}

	if command.IsSet("kafka-brokers") {
		cfg.Events.Brokers = kafka.ParseBrokers(command.String("kafka-brokers"))
	}

	if command.IsSet("log-level") {
		cfg.LogLevel = command.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}
