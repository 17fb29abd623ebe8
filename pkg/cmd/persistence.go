// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dukex/flowedit/pkg/config"
	"github.com/dukex/flowedit/pkg/persistence"
	"github.com/dukex/flowedit/pkg/persistence/file"
	"github.com/dukex/flowedit/pkg/persistence/remote"
)

var supportedPersistenceProviders = []string{"file", "http", "https"}

// NewPersistence opens the workflow store named by cfg.URL. A URL without a
// scheme is a file store directory.
func NewPersistence(logger *slog.Logger, cfg config.StoreConfig) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(cfg.URL)

	switch provider {
	case "file":
		store := file.NewPersistence(cfg.URL, file.WithLogger(logger))
		if err := os.MkdirAll(store.Root(), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}

		return store, nil
	case "http", "https":
		opts := []remote.Option{remote.WithLogger(logger)}
		if cfg.Timeout > 0 {
			opts = append(opts, remote.WithTimeout(cfg.Timeout))
		}

		return remote.NewPersistence(cfg.URL, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported store provider %q, expected one of %s",
			provider, strings.Join(supportedPersistenceProviders, ", "))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return strings.ToLower(provider)
}
