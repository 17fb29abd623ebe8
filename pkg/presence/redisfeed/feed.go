// Package redisfeed reads collaborator presence from a Redis pub/sub channel.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/presence"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is used when no channel prefix is configured.
const DefaultChannel = "flowedit.presence"

// Feed subscribes to one Redis channel per workflow, named "<channel>:<workflow id>",
// whose messages are full collaborator snapshots.
type Feed struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

func NewFeed(client redis.UniversalClient, channel string, logger *slog.Logger) *Feed {
	if channel == "" {
		channel = DefaultChannel
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Feed{
		client:  client,
		channel: channel,
		logger:  logger.With("channel", channel),
	}
}

// NewFeedFromURL parses a redis:// URL and subscribes under the channel prefix.
func NewFeedFromURL(redisURL, channel string, logger *slog.Logger) (*Feed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return NewFeed(redis.NewClient(opts), channel, logger), nil
}

// Channel names the Redis channel carrying the presence of workflowID.
func (f *Feed) Channel(workflowID string) string {
	return f.channel + ":" + workflowID
}

func (f *Feed) Subscribe(ctx context.Context, workflowID string) (<-chan []models.Collaborator, error) {
	channel := f.Channel(workflowID)
	pubsub := f.client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	logger := f.logger.With("workflow_id", workflowID)

	out := make(chan []models.Collaborator, 16)

	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				logger.Warn("Failed to close presence subscription", "error", err)
			}
		}()

		messages := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				decoded, err := presence.DecodeMessage([]byte(msg.Payload))
				if err != nil {
					logger.WarnContext(ctx, "Dropping malformed presence message", "error", err)

					continue
				}

				if !decoded.For(workflowID) {
					continue
				}

				select {
				case out <- decoded.Collaborators:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Publish broadcasts a snapshot on the channel of workflowID.
func (f *Feed) Publish(ctx context.Context, workflowID string, snapshot []models.Collaborator) error {
	payload, err := json.Marshal(presence.Message{WorkflowID: workflowID, Collaborators: snapshot})
	if err != nil {
		return err
	}

	return f.client.Publish(ctx, f.Channel(workflowID), payload).Err()
}

// Close releases the Redis client.
func (f *Feed) Close() error {
	return f.client.Close()
}
