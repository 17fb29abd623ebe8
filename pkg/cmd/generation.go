package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/flowedit/pkg/config"
	"github.com/dukex/flowedit/pkg/generation"
	"github.com/dukex/flowedit/pkg/generation/anthropic"
	"github.com/dukex/flowedit/pkg/models"
)

// NewGenerator creates the workflow generator. The catalog, when known, is
// described to the model so it only proposes available node types.
func NewGenerator(cfg config.GenerationConfig, catalog *models.NodeTypeCatalog, logger *slog.Logger) (generation.Generator, error) {
	switch cfg.Provider {
	case "", "none":
		return generation.Disabled{}, nil
	case "anthropic":
		return anthropic.New(
			anthropic.WithModel(cfg.Model),
			anthropic.WithMaxTokens(cfg.MaxTokens),
			anthropic.WithAPIKey(cfg.APIKey),
			anthropic.WithBaseURL(cfg.BaseURL),
			anthropic.WithCatalog(catalog),
			anthropic.WithLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
}
