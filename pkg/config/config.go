// Package config loads the flowedit service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dukex/flowedit/pkg/autosave"
	"github.com/dukex/flowedit/pkg/graph"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root of flowedit.yaml.
type Config struct {
	LogLevel   string           `yaml:"log_level"  validate:"oneof=debug info warn error"`
	LogFormat  string           `yaml:"log_format" validate:"oneof=text json"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Canvas     CanvasConfig     `yaml:"canvas"`
	Autosave   AutosaveConfig   `yaml:"autosave"`
	Presence   PresenceConfig   `yaml:"presence"`
	Generation GenerationConfig `yaml:"generation"`
	Events     EventsConfig     `yaml:"events"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"min=1,max=65535"`
}

// StoreConfig selects the workflow store: file://<dir> or http(s)://<server>.
type StoreConfig struct {
	URL     string        `yaml:"url"     validate:"required"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

type CanvasConfig struct {
	Width      float64 `yaml:"width"       validate:"gt=0"`
	Height     float64 `yaml:"height"      validate:"gt=0"`
	NodeWidth  float64 `yaml:"node_width"  validate:"gt=0"`
	NodeHeight float64 `yaml:"node_height" validate:"gt=0"`
}

// Canvas converts the configured bounds.
func (c CanvasConfig) Canvas() graph.Canvas {
	return graph.Canvas{
		Width:      c.Width,
		Height:     c.Height,
		NodeWidth:  c.NodeWidth,
		NodeHeight: c.NodeHeight,
	}
}

type AutosaveConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
}

type PresenceConfig struct {
	Provider  string `yaml:"provider"  validate:"oneof=none socketio redis"`
	URL       string `yaml:"url"       validate:"required_unless=Provider none"`
	Channel   string `yaml:"channel"`
	Namespace string `yaml:"namespace"`
	Event     string `yaml:"event"`
}

type GenerationConfig struct {
	Provider  string `yaml:"provider"   validate:"oneof=none anthropic"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens" validate:"gte=0"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"   validate:"omitempty,url"`
}

// EventsConfig selects the editor event bus. Every instance needs its own Kafka
// consumer group to see all changes; an empty group derives one from the host name.
type EventsConfig struct {
	Provider      string   `yaml:"provider"       validate:"oneof=none gochannel kafka"`
	Brokers       []string `yaml:"brokers"        validate:"required_if=Provider kafka"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server:    ServerConfig{Port: 9091},
		Store:     StoreConfig{URL: "file://./data", Timeout: 30 * time.Second},
		Canvas: CanvasConfig{
			Width:      graph.DefaultCanvas.Width,
			Height:     graph.DefaultCanvas.Height,
			NodeWidth:  graph.DefaultCanvas.NodeWidth,
			NodeHeight: graph.DefaultCanvas.NodeHeight,
		},
		Autosave:   AutosaveConfig{Debounce: autosave.DefaultDelay},
		Presence:   PresenceConfig{Provider: "none"},
		Generation: GenerationConfig{Provider: "none"},
		Events:     EventsConfig{Provider: "gochannel"},
		Tracing:    TracingConfig{ServiceName: "flowedit"},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every field constraint.
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
