package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/flowedit/pkg/config"
	"github.com/dukex/flowedit/pkg/presence"
	"github.com/dukex/flowedit/pkg/presence/redisfeed"
	"github.com/dukex/flowedit/pkg/presence/socketio"
)

// NewPresenceFeed creates the collaborator feed shared by all sessions. Each
// session subscribes to the workflow it edits. Provider "none" yields a nil feed.
func NewPresenceFeed(cfg config.PresenceConfig, logger *slog.Logger) (presence.Feed, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil //nolint:nilnil // presence disabled
	case "socketio":
		opts := []socketio.Option{socketio.WithLogger(logger)}
		if cfg.Namespace != "" {
			opts = append(opts, socketio.WithNamespace(cfg.Namespace))
		}

		if cfg.Event != "" {
			opts = append(opts, socketio.WithEvent(cfg.Event))
		}

		return socketio.NewFeed(cfg.URL, opts...), nil
	case "redis":
		feed, err := redisfeed.NewFeedFromURL(cfg.URL, cfg.Channel, logger)
		if err != nil {
			return nil, err
		}

		return feed, nil
	default:
		return nil, fmt.Errorf("unsupported presence provider: %s", cfg.Provider)
	}
}
