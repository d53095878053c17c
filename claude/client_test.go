package claude_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/promptscore"
	"github.com/fwojciec/promptscore/claude"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "sk-ant-REDACTED"

const messageBody = `{
	"id": "msg_1",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-5-haiku-latest",
	"content": [{"type": "text", "text": "Paris."}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 12, "output_tokens": 3}
}`

func newServer(t *testing.T, handler http.HandlerFunc) *claude.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return claude.NewClient(claude.Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestClient_Complete(t *testing.T) {
	t.Parallel()

	t.Run("sends system, prompt and options", func(t *testing.T) {
		t.Parallel()
		var got map[string]any
		var apiKey string
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			apiKey = r.Header.Get("X-Api-Key")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &got)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, messageBody)
		})

		temp := 1.5
		completion, err := c.Complete(context.Background(), promptscore.CompletionRequest{
			APIKey:      testKey,
			Model:       "anthropic/claude-3-5-haiku-latest",
			System:      "Answer in one word.",
			User:        "Capital of France?",
			Temperature: &temp,
		})

		require.NoError(t, err)
		assert.Equal(t, "Paris.", completion.Content)
		assert.Equal(t, promptscore.NewTokenUsage(12, 3), completion.Usage)
		assert.Equal(t, testKey, apiKey)
		assert.Equal(t, "claude-3-5-haiku-latest", got["model"])
		assert.InDelta(t, claude.DefaultMaxTokens, got["max_tokens"], 0.001)
		assert.InDelta(t, 1.0, got["temperature"], 0.001)
		system, ok := got["system"].([]any)
		require.True(t, ok)
		assert.Equal(t, "Answer in one word.", system[0].(map[string]any)["text"])
	})

	tests := []struct {
		name   string
		status int
		want   promptscore.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, promptscore.KindCredential},
		{"rate limited", http.StatusTooManyRequests, promptscore.KindNetwork},
		{"overloaded", 529, promptscore.KindNetwork},
		{"bad request", http.StatusBadRequest, promptscore.KindInternal},
	}
	for _, tt := range tests {
		t.Run("classifies "+tt.name, func(t *testing.T) {
			t.Parallel()
			c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprintf(w, `{"type": "error", "error": {"type": "error", "message": "status %d"}}`, tt.status)
			})

			_, err := c.Complete(context.Background(), promptscore.CompletionRequest{APIKey: testKey, Model: "claude-3-5-haiku-latest", User: "hi"})

			require.Error(t, err)
			assert.Equal(t, tt.want, promptscore.ErrorKind(err))
		})
	}
}

func TestClient_VerifyKey(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid key", func(t *testing.T) {
		t.Parallel()
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/models", r.URL.Path)
			assert.Equal(t, testKey, r.Header.Get("X-Api-Key"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"data": [{"type": "model", "id": "claude-3-5-haiku-latest", "display_name": "Claude Haiku 3.5", "created_at": "2024-10-22T00:00:00Z"}], "has_more": false, "first_id": "claude-3-5-haiku-latest", "last_id": "claude-3-5-haiku-latest"}`)
		})

		require.NoError(t, c.VerifyKey(context.Background(), testKey))
	})

	t.Run("rejects an invalid key", func(t *testing.T) {
		t.Parallel()
		c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`)
		})

		err := c.VerifyKey(context.Background(), testKey)
		assert.Equal(t, promptscore.KindCredential, promptscore.ErrorKind(err))
	})
}

func TestModelName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "claude-3-5-haiku-latest", claude.ModelName("anthropic/claude-3-5-haiku-latest"))
	assert.Equal(t, "claude-3-5-haiku-latest", claude.ModelName("claude-3-5-haiku-latest"))
}
