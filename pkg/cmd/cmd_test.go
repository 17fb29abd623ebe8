package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dukex/flowedit/pkg/config"
	"github.com/dukex/flowedit/pkg/generation"
	"github.com/dukex/flowedit/pkg/generation/anthropic"
	"github.com/dukex/flowedit/pkg/persistence/file"
	"github.com/dukex/flowedit/pkg/persistence/remote"
	"github.com/dukex/flowedit/pkg/presence/redisfeed"
	"github.com/dukex/flowedit/pkg/presence/socketio"
	"github.com/dukex/flowedit/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"file://./data", "file"},
		{"./data", "file"},
		{"/var/lib/flowedit", "file"},
		{"http://localhost:8080", "http"},
		{"HTTPS://store.internal", "https"},
		{"postgres://db/flowedit", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parsePersistenceProvider(tt.url))
		})
	}
}

func TestNewPersistence(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "store")

	store, err := NewPersistence(slog.Default(), config.StoreConfig{URL: "file://" + root})
	require.NoError(t, err)
	require.IsType(t, &file.Persistence{}, store)
	require.NoError(t, store.HealthCheck(context.Background()))

	store, err = NewPersistence(slog.Default(), config.StoreConfig{URL: "https://store.example.com"})
	require.NoError(t, err)
	assert.IsType(t, &remote.Persistence{}, store)

	_, err = NewPersistence(slog.Default(), config.StoreConfig{URL: "postgres://db/flowedit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestNewEventBus(t *testing.T) {
	t.Parallel()

	bus, err := NewEventBus(config.EventsConfig{Provider: "none"}, "flowedit", slog.Default())
	require.NoError(t, err)
	assert.Nil(t, bus)

	bus, err = NewEventBus(config.EventsConfig{Provider: "gochannel"}, "flowedit", slog.Default())
	require.NoError(t, err)
	require.NotNil(t, bus)
	assert.NoError(t, bus.Close())

	_, err = NewEventBus(config.EventsConfig{Provider: "kafka"}, "flowedit", slog.Default())
	require.Error(t, err)

	_, err = NewEventBus(config.EventsConfig{Provider: "nats"}, "flowedit", slog.Default())
	require.Error(t, err)
}

func TestNewPresenceFeed(t *testing.T) {
	t.Parallel()

	feed, err := NewPresenceFeed(config.PresenceConfig{Provider: "none"}, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, feed)

	feed, err = NewPresenceFeed(config.PresenceConfig{Provider: "socketio", URL: "http://localhost:3000", Namespace: "/editor"}, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &socketio.Feed{}, feed)

	feed, err = NewPresenceFeed(config.PresenceConfig{Provider: "redis", URL: "redis://localhost:6379/0"}, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &redisfeed.Feed{}, feed)

	_, err = NewPresenceFeed(config.PresenceConfig{Provider: "redis", URL: "mysql://nope"}, slog.Default())
	require.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	t.Parallel()

	gen, err := NewGenerator(config.GenerationConfig{Provider: "none"}, nil, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, generation.Disabled{}, gen)

	gen, err = NewGenerator(config.GenerationConfig{Provider: "anthropic", APIKey: "test-key"}, registry.Default(), slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Client{}, gen)

	_, err = NewGenerator(config.GenerationConfig{Provider: "openai"}, nil, slog.Default())
	require.Error(t, err)
}
