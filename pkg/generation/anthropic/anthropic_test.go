package anthropic

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukex/flowedit/pkg/generation"
	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Metadata struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
	System []struct {
		Text string `json:"text"`
	} `json:"system"`
}

func newMessagesServer(t *testing.T, status int, text string, captured *capturedRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)

			return
		}

		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":  "error",
				"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
			})

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         DefaultModel,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]any{{"type": "text", "text": text}},
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	t.Cleanup(server.Close)

	return server
}

func TestClient_GenerateWorkflow(t *testing.T) {
	var captured capturedRequest

	server := newMessagesServer(t, http.StatusOK,
		`{"type":"workflow","data":{"name":"Mailer","nodes":[{"id":"a","type":"action-email"}],"connections":[]}}`,
		&captured)

	client := New(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(0),
		WithModel("claude-test"),
		WithCatalog(registry.Default()),
	)

	result, err := client.GenerateWorkflow(t.Context(), "email me on every order", "session-1")
	require.NoError(t, err)
	assert.Equal(t, models.GenerationTypeWorkflow, result.Type)
	assert.JSONEq(t, `{"name":"Mailer","nodes":[{"id":"a","type":"action-email"}],"connections":[]}`, string(result.Data))

	assert.Equal(t, "claude-test", captured.Model)
	assert.Equal(t, "session-1", captured.Metadata.UserID)
	require.Len(t, captured.System, 1)
	assert.Contains(t, captured.System[0].Text, "action-email")
}

func TestClient_GenerateWorkflow_Suggestion(t *testing.T) {
	server := newMessagesServer(t, http.StatusOK, "Try adding a schedule trigger first.", nil)

	client := New(WithAPIKey("test-key"), WithBaseURL(server.URL), WithMaxRetries(0))

	result, err := client.GenerateWorkflow(t.Context(), "help", "")
	require.NoError(t, err)
	assert.Equal(t, models.GenerationTypeSuggestion, result.Type)
	assert.JSONEq(t, `"Try adding a schedule trigger first."`, string(result.Data))
}

func TestClient_GenerateWorkflow_RateLimited(t *testing.T) {
	server := newMessagesServer(t, http.StatusTooManyRequests, "", nil)

	client := New(WithAPIKey("test-key"), WithBaseURL(server.URL), WithMaxRetries(0))

	_, err := client.GenerateWorkflow(t.Context(), "anything", "s")
	require.ErrorIs(t, err, generation.ErrRateLimited)
}

func TestClient_GenerateWorkflow_EmptyPrompt(t *testing.T) {
	client := New(WithAPIKey("test-key"))

	_, err := client.GenerateWorkflow(t.Context(), "  ", "s")
	require.ErrorIs(t, err, generation.ErrEmptyPrompt)
}
