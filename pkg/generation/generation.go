// Package generation defines the port used to turn a prompt into a workflow candidate.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/tidwall/gjson"
)

var (
	// ErrDisabled is returned by generators that have no backing model configured.
	ErrDisabled = errors.New("workflow generation is disabled")

	// ErrEmptyPrompt is returned when the prompt has no content.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("model returned no content")

	// ErrRateLimited is returned when the provider throttled the request.
	ErrRateLimited = errors.New("generation rate limited")

	// ErrUnavailable is returned on provider-side failures.
	ErrUnavailable = errors.New("generation provider unavailable")
)

// Generator produces a workflow candidate or a textual suggestion from a prompt.
type Generator interface {
	GenerateWorkflow(ctx context.Context, prompt, sessionID string) (*models.GenerationResult, error)
}

// Disabled is a Generator that always fails with ErrDisabled.
type Disabled struct{}

func (Disabled) GenerateWorkflow(_ context.Context, _, _ string) (*models.GenerationResult, error) {
	return nil, ErrDisabled
}

// ParseResult extracts the generation envelope from model output.
//
// Accepted shapes, after stripping a markdown code fence:
//   - {"type": "workflow"|"suggestion", "data": ...}
//   - a bare workflow document with a "nodes" array
//
// Anything else is returned as a suggestion carrying the raw text.
func ParseResult(text string) (*models.GenerationResult, error) {
	body := strings.TrimSpace(stripFence(text))
	if body == "" {
		return nil, ErrEmptyResponse
	}

	if !gjson.Valid(body) {
		return suggestion(text)
	}

	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return suggestion(text)
	}

	switch kind := doc.Get("type").String(); models.GenerationType(kind) {
	case models.GenerationTypeWorkflow:
		data := doc.Get("data")
		if !data.IsObject() {
			return nil, fmt.Errorf("workflow envelope without object data: %w", ErrEmptyResponse)
		}

		return &models.GenerationResult{Type: models.GenerationTypeWorkflow, Data: []byte(data.Raw)}, nil
	case models.GenerationTypeSuggestion:
		data := doc.Get("data")
		if !data.Exists() {
			return suggestion(text)
		}

		return &models.GenerationResult{Type: models.GenerationTypeSuggestion, Data: []byte(data.Raw)}, nil
	}

	if doc.Get("nodes").IsArray() {
		return &models.GenerationResult{Type: models.GenerationTypeWorkflow, Data: []byte(body)}, nil
	}

	return suggestion(text)
}

func suggestion(text string) (*models.GenerationResult, error) {
	raw, err := json.Marshal(strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}

	return &models.GenerationResult{Type: models.GenerationTypeSuggestion, Data: raw}, nil
}

func stripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}

	return strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
}
