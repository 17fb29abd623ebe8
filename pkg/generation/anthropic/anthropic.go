// Package anthropic adapts the Anthropic Messages API to the generation port.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/dukex/flowedit/pkg/generation"
	"github.com/dukex/flowedit/pkg/models"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = int64(4096)
)

const systemPrompt = `You design automation workflows for a visual graph editor.
Answer with a single JSON object and nothing else.
To propose a workflow use {"type":"workflow","data":{"name":...,"description":...,"nodes":[...],"connections":[...]}}.
Each node is {"id","type","name","position":{"x","y"},"config":{}}; each connection is {"id","from","to"}.
If the request cannot be expressed as a workflow use {"type":"suggestion","data":"<advice>"}.`

var _ generation.Generator = (*Client)(nil)

// Client generates workflows with a Claude model.
type Client struct {
	sdk       anthropicsdk.Client
	model     string
	maxTokens int64
	catalog   string
	logger    *slog.Logger
	sdkOpts   []option.RequestOption
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithMaxTokens(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithAPIKey overrides ANTHROPIC_API_KEY.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.sdkOpts = append(c.sdkOpts, option.WithAPIKey(key))
		}
	}
}

func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.sdkOpts = append(c.sdkOpts, option.WithBaseURL(url))
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.sdkOpts = append(c.sdkOpts, option.WithMaxRetries(n))
	}
}

// WithCatalog lists the node types the model may use.
func WithCatalog(catalog *models.NodeTypeCatalog) Option {
	return func(c *Client) {
		c.catalog = describeCatalog(catalog)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a client. Without WithAPIKey the SDK reads ANTHROPIC_API_KEY.
func New(opts ...Option) *Client {
	c := &Client{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.sdk = anthropicsdk.NewClient(c.sdkOpts...)

	return c
}

func (c *Client) GenerateWorkflow(ctx context.Context, prompt, sessionID string) (*models.GenerationResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, generation.ErrEmptyPrompt
	}

	system := systemPrompt
	if c.catalog != "" {
		system += "\nAvailable node types:\n" + c.catalog
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  []anthropicsdk.MessageParam{anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt))},
		System:    []anthropicsdk.TextBlockParam{{Text: system}},
	}
	if sessionID != "" {
		params.Metadata = anthropicsdk.MetadataParam{UserID: param.NewOpt(sessionID)}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}

	var text strings.Builder

	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	result, err := generation.ParseResult(text.String())
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Generated workflow candidate",
		"session_id", sessionID,
		"type", result.Type,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens)

	return result, nil
}

func describeCatalog(catalog *models.NodeTypeCatalog) string {
	if catalog == nil {
		return ""
	}

	var b strings.Builder

	for _, category := range []models.CategoryType{
		models.CategoryTypeTrigger,
		models.CategoryTypeAction,
		models.CategoryTypeLogic,
		models.CategoryTypeAI,
	} {
		for _, desc := range catalog.Categories[category] {
			fmt.Fprintf(&b, "- %s (%s): %s\n", desc.ID, category, desc.Name)
		}
	}

	return b.String()
}

func mapError(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return fmt.Errorf("%w: %w", generation.ErrRateLimited, err)
		case 500, 502, 503, 529:
			return fmt.Errorf("%w: %w", generation.ErrUnavailable, err)
		}
	}

	return fmt.Errorf("anthropic: %w", err)
}
